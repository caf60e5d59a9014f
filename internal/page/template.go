package page

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"sync"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/samber/do"
)

//go:embed assets/*.html
var assets embed.FS

type IndexParams struct {
	Title        string
	MaxUploadMB  int64
	ShareEnabled bool
}

type ShareParams struct {
	Title    string
	Caption  string
	ImageURL string
	PageURL  string
	AppURL   string
}

type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func NewTemplator(_ *do.Injector) (*Templator, error) {
	return &Templator{}, nil
}

func (g *Templator) Index(ctx context.Context, params IndexParams) ([]byte, error) {
	return g.execute(ctx, "index.html", params)
}

func (g *Templator) Share(ctx context.Context, params ShareParams) ([]byte, error) {
	return g.execute(ctx, "share.html", params)
}

func (g *Templator) execute(ctx context.Context, name string, params any) ([]byte, error) {
	g.once.Do(func() {
		g.tmpl = template.Must(template.ParseFS(assets, "assets/*.html"))
	})

	log := log.FromContextOrDiscard(ctx).WithGroup("templator")
	log.Debug("generating page", "template", name)

	var data bytes.Buffer
	if err := g.tmpl.ExecuteTemplate(&data, name, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
