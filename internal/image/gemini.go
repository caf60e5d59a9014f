package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/samber/do"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash-exp"

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiGenerator struct {
	models contentGenerator
	model  string
}

func NewGeminiGenerator(i *do.Injector) (Generator, error) {
	key := do.MustInvokeNamed[string](i, "gemini_key")
	model := do.MustInvokeNamed[string](i, "gemini_model")
	ctx := do.MustInvoke[context.Context](i)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{models: client.Models, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, params Params) (Result, error) {
	logger := log.FromContextOrDiscard(ctx).WithGroup("gemini").With(
		"model", g.model,
		"mime_type", params.MIMEType,
		"size", len(params.Data),
	)
	logger.Info("generating image via gemini")

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(params.Data, params.MIMEType),
			genai.NewPartFromText(params.Prompt),
		}, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return Result{}, fmt.Errorf("gemini generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		logger.Error("response had no candidates")
		return Result{}, ErrNoImage
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			logger.Info("received image via gemini", "result_mime_type", mimeType, "result_size", len(part.InlineData.Data))
			return Result{Data: part.InlineData.Data, MIMEType: mimeType}, nil
		}
		text.WriteString(part.Text)
	}

	if text.Len() > 0 {
		logger.Debug("model replied with text", "text", text.String())
	}
	logger.Error("response did not include an image")
	return Result{}, ErrNoImage
}
