// Package share names shared cartoons and builds the links used to pass them on.
package share

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	DownloadBase = "cartoon_image"
	DefaultText  = "Check out this cool cartoon I created with CartoonizeMe!"
	FeedKey      = "feed.xml"

	telegramShareURL = "https://t.me/share/url"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/heic": ".heic",
}

// Ext maps an image MIME type to a file extension, falling back to .png.
func Ext(mimeType string) string {
	if ext, ok := extensions[strings.ToLower(mimeType)]; ok {
		return ext
	}
	return ".png"
}

// IsImageKey reports whether key names a shared image object.
func IsImageKey(key string) bool {
	return lo.ContainsBy(lo.Values(extensions), func(ext string) bool {
		return strings.HasSuffix(key, ext)
	})
}

func Filename(mimeType string) string {
	return DownloadBase + Ext(mimeType)
}

type Keys struct {
	ID    string
	Image string
	Page  string
}

func NewKeys(mimeType string) Keys {
	id := uuid.NewString()
	return Keys{ID: id, Image: id + Ext(mimeType), Page: id + ".html"}
}

// URL joins base and key with exactly one slash.
func URL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

func TelegramURL(target, text string) string {
	q := url.Values{}
	q.Set("url", target)
	q.Set("text", lo.Ternary(text != "", text, DefaultText))
	return telegramShareURL + "?" + q.Encode()
}
