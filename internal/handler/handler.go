package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmorgan81/cartoonbot/internal/datauri"
	"github.com/dmorgan81/cartoonbot/internal/image"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/prompt"
	"github.com/samber/do"
)

var (
	ErrInvalidPhoto = errors.New("invalid photo data uri")
	ErrNotImage     = errors.New("please upload an image file (e.g., PNG, JPG, GIF)")
	ErrTooLarge     = errors.New("image is too large")
)

type Input struct {
	PhotoDataURI string `json:"photoDataUri"`
}

type Output struct {
	CartoonDataURI string `json:"cartoonDataUri"`
}

type Handler struct {
	generator image.Generator
	prompt    *prompt.Prompt
	maxBytes  int64
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		generator: do.MustInvoke[image.Generator](i),
		prompt:    do.MustInvoke[*prompt.Prompt](i),
		maxBytes:  do.MustInvokeNamed[int64](i, "max_upload_bytes"),
	}, nil
}

// Cartoonize sends the photo to the image model once and returns the result
// as a data URI.
func (h *Handler) Cartoonize(ctx context.Context, input Input) (Output, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("Handler")
	logger.Info("handling cartoonize request")

	photo, err := decodeImage(input.PhotoDataURI, h.maxBytes)
	if err != nil {
		logger.Warn("rejected photo", log.Err(err))
		return Output{}, err
	}

	res, err := h.generator.Generate(ctx, image.Params{
		Data:     photo.Data,
		MIMEType: photo.MIMEType,
		Prompt:   h.prompt.Text(ctx),
	})
	if err != nil {
		logger.Error("cartoonization failed", log.Err(err))
		return Output{}, err
	}

	logger.Info("cartoonization complete", "mime_type", res.MIMEType, "size", len(res.Data))
	return Output{CartoonDataURI: datauri.Encode(res.Data, res.MIMEType)}, nil
}

func decodeImage(s string, maxBytes int64) (datauri.URI, error) {
	uri, err := datauri.Parse(s)
	if err != nil {
		return datauri.URI{}, fmt.Errorf("%w: %w", ErrInvalidPhoto, err)
	}
	if !uri.IsImage() {
		return datauri.URI{}, ErrNotImage
	}
	if maxBytes > 0 && int64(len(uri.Data)) > maxBytes {
		return datauri.URI{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(uri.Data), maxBytes)
	}
	return uri, nil
}
