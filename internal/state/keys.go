package state

import (
	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/seriesnet"
)

// PageSize is the number of posts or users the backend returns per page.
const PageSize = 10

// FeedKey identifies one filtered, sorted page of the feed.
func FeedKey(f seriesnet.PostFilter) query.Key {
	return query.K("posts", f.Search, f.Tags, normalizePage(f.Page), f.Sort)
}

// UserPostsKey identifies the posts written by one user.
func UserPostsKey(userID string) query.Key {
	return query.K("posts", "user", userID)
}

// PostKey identifies a single post.
func PostKey(id string) query.Key {
	return query.K("post", id)
}

// SeriesListKey identifies one filtered view of the catalogue. The token is
// part of the key because the backend personalises the listing.
func SeriesListKey(f seriesnet.SeriesFilter) query.Key {
	return query.K("animes", f.Search, f.Genre, f.Sort, f.Token)
}

// SeriesKey identifies a single series.
func SeriesKey(id string) query.Key {
	return query.K("anime", id)
}

// GenresKey identifies the genre list.
func GenresKey() query.Key {
	return query.K("genres")
}

// EpisodeKey identifies a single episode.
func EpisodeKey(id string) query.Key {
	return query.K("episode", id)
}

// FavouritesKey identifies the favourite list of the session holding token.
func FavouritesKey(token string) query.Key {
	return query.K("list", token)
}

// UsersKey identifies one page of the user directory.
func UsersKey(f seriesnet.UserFilter) query.Key {
	return query.K("users", f.Username, normalizePage(f.Page))
}

// UserKey identifies one user.
func UserKey(id string) query.Key {
	return query.K("user", id)
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// HasNextPage reports whether a page holding n results may be followed by
// another. The backend sends no totals, so only a full page enables "next".
func HasNextPage(n int) bool {
	return n >= PageSize
}

// HasPrevPage reports whether page has a predecessor.
func HasPrevPage(page int) bool {
	return page > 1
}
