package feed

import (
	"context"
	"mime"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/share"
	"github.com/gorilla/feeds"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

type API interface {
	s3.ListObjectsV2APIClient
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type Generator struct {
	client  API
	bucket  string
	baseURL string
}

func NewS3Generator(i *do.Injector) (*Generator, error) {
	return &Generator{
		client:  do.MustInvoke[*s3.Client](i),
		bucket:  do.MustInvokeNamed[string](i, "bucket"),
		baseURL: do.MustInvokeNamed[string](i, "base_url"),
	}, nil
}

// Generate renders an RSS feed with one item per shared cartoon in the bucket.
func (g *Generator) Generate(ctx context.Context) ([]byte, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("feed")
	log.Info("generating rss feed", "bucket", g.bucket)

	feed := feeds.Feed{
		Title:       "CartoonizeMe",
		Description: "Photos turned into cartoons",
		Link:        &feeds.Link{Href: g.baseURL},
		Updated:     time.Now(),
	}

	pager := s3.NewListObjectsV2Paginator(g.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
	})

	var objs []s3types.Object
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		objs = append(objs, lo.Filter(page.Contents, func(o s3types.Object, _ int) bool {
			return share.IsImageKey(aws.ToString(o.Key))
		})...)
	}

	// Listing finishes before any HeadObject starts, so a paging error leaves
	// nothing running.
	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for _, obj := range objs {
		obj := obj
		group.Go(func() error {
			out, err := g.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(g.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				return err
			}

			key := aws.ToString(obj.Key)
			id := strings.TrimSuffix(key, path.Ext(key))
			caption := decodeCaption(out.Metadata["caption"])
			item := &feeds.Item{
				Id:    id,
				Title: lo.Ternary(caption != "", caption, "Cartoon "+id),
				Link:  &feeds.Link{Href: share.URL(g.baseURL, id+".html")},
				Enclosure: &feeds.Enclosure{
					Url:    share.URL(g.baseURL, key),
					Type:   aws.ToString(out.ContentType),
					Length: lo.Ternary(out.Metadata["size"] != "", out.Metadata["size"], "0"),
				},
				Created:     aws.ToTime(out.LastModified),
				Updated:     aws.ToTime(out.LastModified),
				Description: caption,
			}

			mu.Lock()
			defer mu.Unlock()
			feed.Add(item)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	feed.Sort(func(a, b *feeds.Item) bool {
		return a.Updated.After(b.Updated)
	})
	rss, err := feed.ToRss()
	return []byte(rss), err
}

// decodeCaption undoes the RFC 2047 encoding captions get for S3 metadata.
func decodeCaption(s string) string {
	decoded, err := new(mime.WordDecoder).DecodeHeader(s)
	if err != nil {
		return s
	}
	return decoded
}
