package handler

import (
	"context"
	"errors"
	"mime"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmorgan81/cartoonbot/internal/feed"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/page"
	"github.com/dmorgan81/cartoonbot/internal/post"
	"github.com/dmorgan81/cartoonbot/internal/share"
	"github.com/dmorgan81/cartoonbot/internal/store"
	"github.com/samber/do"
	"github.com/samber/lo"
)

var ErrSharingDisabled = errors.New("sharing is not configured")

// S3 caps user metadata at 2 KB and a rune Q-encodes to at most twelve bytes.
const maxCaptionRunes = 100

type ShareInput struct {
	CartoonDataURI string `json:"cartoonDataUri"`
	Caption        string `json:"caption,omitempty"`
}

type ShareOutput struct {
	ID          string `json:"id"`
	ImageURL    string `json:"imageUrl"`
	PageURL     string `json:"pageUrl"`
	TelegramURL string `json:"telegramUrl"`
}

type feedGenerator interface {
	Generate(context.Context) ([]byte, error)
}

type Sharer struct {
	uploader    store.Uploader
	invalidator store.Invalidator
	templator   *page.Templator
	feed        feedGenerator
	poster      post.Poster
	baseURL     string
	appURL      string
	text        string
	maxBytes    int64
}

func NewSharer(i *do.Injector) (*Sharer, error) {
	if !do.MustInvokeNamed[bool](i, "share_enabled") {
		return nil, ErrSharingDisabled
	}
	s := &Sharer{
		uploader:    do.MustInvoke[store.Uploader](i),
		invalidator: do.MustInvoke[store.Invalidator](i),
		templator:   do.MustInvoke[*page.Templator](i),
		poster:      do.MustInvoke[post.Poster](i),
		baseURL:     do.MustInvokeNamed[string](i, "base_url"),
		appURL:      do.MustInvokeNamed[string](i, "app_url"),
		text:        do.MustInvokeNamed[string](i, "share_text"),
		maxBytes:    do.MustInvokeNamed[int64](i, "max_upload_bytes"),
	}
	if do.MustInvokeNamed[string](i, "bucket") != "" {
		s.feed = do.MustInvoke[*feed.Generator](i)
	}
	return s, nil
}

// Share publishes the cartoon with a share page, refreshes the feed and
// announces it on the configured posters.
func (s *Sharer) Share(ctx context.Context, input ShareInput) (ShareOutput, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("Sharer")
	logger.Info("handling share request")

	cartoon, err := decodeImage(input.CartoonDataURI, s.maxBytes)
	if err != nil {
		logger.Warn("rejected cartoon", log.Err(err))
		return ShareOutput{}, err
	}

	keys := share.NewKeys(cartoon.MIMEType)
	caption := truncateCaption(lo.Ternary(input.Caption != "", input.Caption, s.text))
	out := ShareOutput{
		ID:       keys.ID,
		ImageURL: share.URL(s.baseURL, keys.Image),
		PageURL:  share.URL(s.baseURL, keys.Page),
	}
	out.TelegramURL = share.TelegramURL(out.PageURL, caption)

	html, err := s.templator.Share(ctx, page.ShareParams{
		Title:    "My Cartoon Image",
		Caption:  caption,
		ImageURL: out.ImageURL,
		PageURL:  out.PageURL,
		AppURL:   s.appURL,
	})
	if err != nil {
		return ShareOutput{}, err
	}

	metadata := map[string]string{
		"id":      keys.ID,
		"caption": mime.QEncoding.Encode("utf-8", caption),
		"created": time.Now().UTC().Format(time.RFC3339),
		"size":    strconv.Itoa(len(cartoon.Data)),
	}
	uploads := []store.UploadParams{
		{Name: keys.Image, Data: cartoon.Data, ContentType: cartoon.MIMEType, Metadata: metadata},
		{Name: keys.Page, Data: html, ContentType: "text/html", Metadata: metadata},
	}
	for _, u := range uploads {
		if err := s.uploader.Upload(ctx, u); err != nil {
			return ShareOutput{}, err
		}
	}

	if s.feed != nil {
		rss, err := s.feed.Generate(ctx)
		if err != nil {
			return ShareOutput{}, err
		}
		if err := s.uploader.Upload(ctx, store.UploadParams{
			Name:        share.FeedKey,
			Data:        rss,
			ContentType: "application/rss+xml",
		}); err != nil {
			return ShareOutput{}, err
		}
		if err := s.invalidator.Invalidate(ctx, []string{"/" + share.FeedKey}); err != nil {
			return ShareOutput{}, err
		}
	}

	// The cartoon is already published; a failed announcement does not undo that.
	if err := s.poster.Post(ctx, post.Params{
		ID:       keys.ID,
		Image:    cartoon.Data,
		MIMEType: cartoon.MIMEType,
		ImageURL: out.ImageURL,
		PageURL:  out.PageURL,
		Caption:  caption,
	}); err != nil {
		logger.Error("posting shared cartoon failed", "id", keys.ID, log.Err(err))
	}

	logger.Info("shared cartoon", "id", keys.ID, "page", out.PageURL)
	return out, nil
}

func truncateCaption(caption string) string {
	caption = strings.TrimSpace(caption)
	if utf8.RuneCountInString(caption) <= maxCaptionRunes {
		return caption
	}
	return string([]rune(caption)[:maxCaptionRunes])
}
