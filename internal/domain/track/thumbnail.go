package track

import (
	"net/url"
	"strings"
)

// DefaultThumbnailBaseURL is the endpoint serving artwork for a given author and title.
const DefaultThumbnailBaseURL = "https://ytmdl-music-server.vercel.app/api/thumbnail"

// Thumbnailer builds a thumbnail URL for an author and title.
type Thumbnailer func(author, title string) string

// NewThumbnailer returns a Thumbnailer rooted at base.
// An empty base falls back to DefaultThumbnailBaseURL.
func NewThumbnailer(base string) Thumbnailer {
	if base == "" {
		base = DefaultThumbnailBaseURL
	}
	return func(author, title string) string {
		return ThumbnailURL(base, author, title)
	}
}

// componentUnescaper undoes the escapes url.QueryEscape applies beyond those of
// a URI component: spaces become %20 and !'()* stay literal.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapeComponent escapes s as a URI component.
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// ThumbnailURL returns base with author and title as escaped query parameters.
func ThumbnailURL(base, author, title string) string {
	return base + "?author=" + escapeComponent(author) + "&title=" + escapeComponent(title)
}
