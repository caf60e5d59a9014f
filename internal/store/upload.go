package store

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/samber/do"
)

type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

type Uploader interface {
	Upload(context.Context, UploadParams) error
}

// FileUploader writes objects below Dir, for running without a bucket.
type FileUploader struct {
	Dir string
}

func NewFileUploader(i *do.Injector) (Uploader, error) {
	dir := do.MustInvokeNamed[string](i, "share_dir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileUploader{Dir: dir}, nil
}

func (u *FileUploader) Upload(ctx context.Context, params UploadParams) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("file")
	log.Info("writing", "file", params.Name, "dir", u.Dir)
	return os.WriteFile(filepath.Join(u.Dir, filepath.Base(params.Name)), params.Data, 0o644)
}
