package post

import (
	"context"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"golang.org/x/sync/errgroup"
)

type Params struct {
	ID       string
	Image    []byte
	MIMEType string
	ImageURL string
	PageURL  string
	Caption  string
}

type Poster interface {
	Post(context.Context, Params) error
}

// MultiPoster posts to every configured destination concurrently. An empty
// MultiPoster posts nowhere.
type MultiPoster []Poster

func (m MultiPoster) Post(ctx context.Context, params Params) error {
	log.FromContextOrDiscard(ctx).Info("posting shared cartoon", "id", params.ID, "destinations", len(m))

	group, ctx := errgroup.WithContext(ctx)
	for _, p := range m {
		p := p
		group.Go(func() error {
			return p.Post(ctx, params)
		})
	}
	return group.Wait()
}
