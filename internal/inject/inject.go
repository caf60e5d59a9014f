package inject

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	cfg "github.com/dmorgan81/cartoonbot/internal/config"
	"github.com/dmorgan81/cartoonbot/internal/feed"
	"github.com/dmorgan81/cartoonbot/internal/handler"
	"github.com/dmorgan81/cartoonbot/internal/image"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/page"
	"github.com/dmorgan81/cartoonbot/internal/param"
	"github.com/dmorgan81/cartoonbot/internal/post"
	"github.com/dmorgan81/cartoonbot/internal/prompt"
	"github.com/dmorgan81/cartoonbot/internal/server"
	"github.com/dmorgan81/cartoonbot/internal/store"
	"github.com/samber/do"
)

func Setup(ctx context.Context, conf *cfg.Config) *do.Injector {
	logger := log.FromContextOrDiscard(ctx)

	injector := do.NewWithOpts(&do.InjectorOpts{
		Logf: func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...))
		},
	})
	do.ProvideValue[context.Context](injector, ctx)
	do.ProvideValue[*cfg.Config](injector, conf)

	do.Provide[aws.Config](injector, func(i *do.Injector) (aws.Config, error) {
		return config.LoadDefaultConfig(ctx)
	})
	do.Provide[*ssm.Client](injector, func(i *do.Injector) (*ssm.Client, error) {
		return ssm.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*s3.Client](injector, func(i *do.Injector) (*s3.Client, error) {
		return s3.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})
	do.Provide[*cloudfront.Client](injector, func(i *do.Injector) (*cloudfront.Client, error) {
		return cloudfront.NewFromConfig(do.MustInvoke[aws.Config](i)), nil
	})

	do.Provide[param.Fetcher](injector, param.NewParameterStoreFetcher)
	provideSecret(ctx, injector, "gemini_key", conf.Gemini.APIKey, conf.Gemini.APIKeyParam)
	provideSecret(ctx, injector, "prompt", conf.Gemini.Prompt, conf.Gemini.PromptParam)
	do.ProvideNamedValue[string](injector, "gemini_model", conf.Gemini.Model)
	do.ProvideNamedValue[int64](injector, "max_upload_bytes", conf.MaxUploadBytes)
	do.ProvideNamedValue[string](injector, "addr", conf.Addr)

	do.Provide[image.Generator](injector, image.NewGeminiGenerator)
	do.Provide[*prompt.Prompt](injector, prompt.NewPrompt)
	do.Provide[*page.Templator](injector, page.NewTemplator)
	do.Provide[*handler.Handler](injector, handler.NewHandler)

	provideSharing(ctx, injector, conf)
	do.Provide[*handler.Sharer](injector, handler.NewSharer)
	do.Provide[*server.Server](injector, server.NewServer)

	return injector
}

func provideSharing(ctx context.Context, injector *do.Injector, conf *cfg.Config) {
	do.ProvideNamedValue[bool](injector, "share_enabled", conf.Share.Enabled())
	do.ProvideNamedValue[string](injector, "base_url", conf.Share.BaseURL)
	do.ProvideNamedValue[string](injector, "app_url", conf.Share.AppURL)
	do.ProvideNamedValue[string](injector, "share_text", conf.Share.Text)
	do.ProvideNamedValue[string](injector, "bucket", conf.Share.Bucket)
	do.ProvideNamedValue[string](injector, "distribution", conf.Share.Distribution)
	do.ProvideNamedValue[string](injector, "share_dir", conf.Share.Dir)
	do.ProvideNamedValue[string](injector, "share_path", conf.Share.LocalPath())

	if conf.Share.Bucket != "" {
		do.Provide[store.Uploader](injector, store.NewS3Uploader)
		do.Provide[store.Invalidator](injector, store.NewCloudFrontInvalidator)
		do.Provide[*feed.Generator](injector, feed.NewS3Generator)
	} else {
		do.Provide[store.Uploader](injector, store.NewFileUploader)
		do.ProvideValue[store.Invalidator](injector, store.NopInvalidator{})
	}

	if conf.Telegram.Enabled() {
		provideSecret(ctx, injector, "telegram_token", conf.Telegram.Token, conf.Telegram.TokenParam)
		do.ProvideNamedValue[int64](injector, "telegram_chat_id", conf.Telegram.ChatID)
		do.Provide[*post.TelegramPoster](injector, post.NewTelegramPoster)
	}
	if conf.Reddit.Enabled() {
		provideSecret(ctx, injector, "reddit_client_id", conf.Reddit.ClientID, conf.Reddit.ClientIDParam)
		provideSecret(ctx, injector, "reddit_client_secret", conf.Reddit.ClientSecret, conf.Reddit.ClientSecretParam)
		provideSecret(ctx, injector, "reddit_password", conf.Reddit.Password, conf.Reddit.PasswordParam)
		do.ProvideNamedValue[string](injector, "reddit_username", conf.Reddit.Username)
		do.ProvideNamedValue[string](injector, "subreddit", conf.Reddit.Subreddit)
		do.Provide[*post.RedditPoster](injector, post.NewRedditPoster)
	}

	do.Provide[post.Poster](injector, func(i *do.Injector) (post.Poster, error) {
		var posters post.MultiPoster
		if conf.Telegram.Enabled() {
			posters = append(posters, do.MustInvoke[*post.TelegramPoster](i))
		}
		if conf.Reddit.Enabled() {
			posters = append(posters, do.MustInvoke[*post.RedditPoster](i))
		}
		return posters, nil
	})
}

// provideSecret registers name lazily so the parameter store is only touched
// when a component asks for it.
func provideSecret(ctx context.Context, injector *do.Injector, name, value, path string) {
	do.ProvideNamed[string](injector, name, func(i *do.Injector) (string, error) {
		if path == "" {
			return value, nil
		}
		return param.Resolve(ctx, do.MustInvoke[param.Fetcher](i), value, path)
	})
}
