package post

import (
	"context"
	"fmt"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/share"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/samber/do"
)

type telegramAPI interface {
	Send(tgbotapi.Chattable) (tgbotapi.Message, error)
}

type TelegramPoster struct {
	bot    telegramAPI
	chatID int64
}

func NewTelegramPoster(i *do.Injector) (*TelegramPoster, error) {
	token := do.MustInvokeNamed[string](i, "telegram_token")
	chatID := do.MustInvokeNamed[int64](i, "telegram_chat_id")

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramPoster{bot: bot, chatID: chatID}, nil
}

func (p *TelegramPoster) Post(ctx context.Context, params Params) error {
	log.FromContextOrDiscard(ctx).Info("posting to telegram", "chat_id", p.chatID, "id", params.ID)

	photo := tgbotapi.NewPhotoUpload(p.chatID, tgbotapi.FileBytes{
		Name:  share.Filename(params.MIMEType),
		Bytes: params.Image,
	})
	photo.Caption = params.Caption
	if params.PageURL != "" {
		photo.Caption += "\n" + params.PageURL
	}

	if _, err := p.bot.Send(photo); err != nil {
		return fmt.Errorf("send telegram photo: %w", err)
	}
	return nil
}
