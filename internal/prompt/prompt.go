package prompt

import (
	"context"
	"strings"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/samber/do"
)

const Default = "Transform this image into a cartoon style. Output only the generated cartoon image."

type Prompt struct {
	text string
}

func New(text string) *Prompt {
	text = strings.TrimSpace(text)
	if text == "" {
		text = Default
	}
	return &Prompt{text}
}

func NewPrompt(i *do.Injector) (*Prompt, error) {
	return New(do.MustInvokeNamed[string](i, "prompt")), nil
}

func (p *Prompt) Text(ctx context.Context) string {
	log.FromContextOrDiscard(ctx).Debug("using prompt", "prompt", p.text)
	return p.text
}
