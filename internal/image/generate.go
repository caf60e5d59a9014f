package image

import (
	"context"
	"errors"
)

var ErrNoImage = errors.New("image generation failed: response did not include a valid image")

type Params struct {
	Data     []byte
	MIMEType string
	Prompt   string
}

type Result struct {
	Data     []byte
	MIMEType string
}

type Generator interface {
	Generate(context.Context, Params) (Result, error)
}
