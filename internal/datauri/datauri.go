// Package datauri converts between raw image bytes and RFC 2397 data URIs of
// the form data:<mimetype>;base64,<data>.
package datauri

import (
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

var (
	ErrNotBase64 = errors.New("data uri must use base64 encoding")
	ErrEmpty     = errors.New("data uri has no payload")
)

const defaultMIMEType = "application/octet-stream"

type URI struct {
	MIMEType string
	Data     []byte
}

func (u URI) IsImage() bool {
	return strings.HasPrefix(u.MIMEType, "image/")
}

func (u URI) String() string {
	return Encode(u.Data, u.MIMEType)
}

func Parse(s string) (URI, error) {
	du, err := dataurl.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return URI{}, fmt.Errorf("parse data uri: %w", err)
	}
	if du.Encoding != dataurl.EncodingBase64 {
		return URI{}, ErrNotBase64
	}
	if len(du.Data) == 0 {
		return URI{}, ErrEmpty
	}
	return URI{MIMEType: du.MediaType.ContentType(), Data: du.Data}, nil
}

// Encode drops any media type parameters and falls back to
// application/octet-stream when mimeType is not of the form type/subtype.
func Encode(data []byte, mimeType string) string {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || strings.Count(mediaType, "/") != 1 {
		mediaType = defaultMIMEType
	}
	return dataurl.New(data, mediaType).String()
}
