package seriesnet

import (
	"net/url"
	"strings"
)

// Assets builds URLs for the backend's static files. Assets are served
// unauthenticated, usually from the API host.
type Assets struct {
	base string
}

// NewAssets returns an asset URL builder rooted at base. An empty base
// yields relative paths.
func NewAssets(base string) Assets {
	return Assets{base: strings.TrimRight(strings.TrimSpace(base), "/")}
}

// ProfileImage returns the URL of a user's avatar.
func (a Assets) ProfileImage(name string) string {
	return a.join("profileImg", name)
}

// PostImage returns the URL of an image attached to a post.
func (a Assets) PostImage(name string) string {
	return a.join("postImg", name)
}

// SeriesImage returns the URL of a series poster or background.
func (a Assets) SeriesImage(name string) string {
	return a.join("animeImg", name)
}

// Video returns the URL of an episode's video file. The backend stores a
// path relative to the asset root.
func (a Assets) Video(path string) string {
	if strings.Contains(path, "://") {
		return path
	}
	return a.base + "/" + strings.TrimLeft(path, "/")
}

func (a Assets) join(dir, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.Contains(name, "://") {
		return name
	}
	return a.base + "/" + dir + "/" + url.PathEscape(name)
}
