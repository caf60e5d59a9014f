package post

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/vartanbeno/go-reddit/v2/reddit"
)

type linkSubmitter interface {
	SubmitLink(context.Context, reddit.SubmitLinkRequest) (*reddit.Submitted, *reddit.Response, error)
}

type RedditPoster struct {
	posts     linkSubmitter
	subreddit string
}

func NewRedditPoster(i *do.Injector) (*RedditPoster, error) {
	id := do.MustInvokeNamed[string](i, "reddit_client_id")
	secret := do.MustInvokeNamed[string](i, "reddit_client_secret")
	username := do.MustInvokeNamed[string](i, "reddit_username")
	password := do.MustInvokeNamed[string](i, "reddit_password")
	subreddit := do.MustInvokeNamed[string](i, "subreddit")

	revision := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		revision = lo.FindOrElse(info.Settings, debug.BuildSetting{Value: revision}, func(s debug.BuildSetting) bool {
			return s.Key == "vcs.revision"
		}).Value
	}

	client, err := reddit.NewClient(reddit.Credentials{
		ID:       id,
		Secret:   secret,
		Username: username,
		Password: password,
	}, reddit.WithUserAgent(fmt.Sprintf("web:cartoonbot:%s (by /u/%s)", revision, username)))
	if err != nil {
		return nil, err
	}

	return &RedditPoster{posts: client.Post, subreddit: subreddit}, nil
}

func (p *RedditPoster) Post(ctx context.Context, params Params) error {
	log.FromContextOrDiscard(ctx).Info("posting to reddit", "subreddit", p.subreddit, "id", params.ID)
	_, _, err := p.posts.SubmitLink(ctx, reddit.SubmitLinkRequest{
		Subreddit:   p.subreddit,
		Title:       lo.Ternary(params.Caption != "", params.Caption, "Cartoon "+params.ID),
		URL:         params.PageURL,
		SendReplies: lo.ToPtr(false),
	})
	if err != nil {
		return fmt.Errorf("submit reddit link: %w", err)
	}
	return nil
}
