package param

import (
	"context"
	"fmt"
)

type Fetcher interface {
	Fetch(context.Context, string) (string, error)
}

// Resolve prefers the parameter at path over the literal value, so secrets
// can live in the parameter store while local runs set them directly.
func Resolve(ctx context.Context, f Fetcher, value, path string) (string, error) {
	if path == "" {
		return value, nil
	}
	v, err := f.Fetch(ctx, path)
	if err != nil {
		return "", fmt.Errorf("fetch parameter %s: %w", path, err)
	}
	return v, nil
}
