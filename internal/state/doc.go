// Package state binds the SeriesNet API to the query cache.
//
// # Overview
//
// Every read the UI performs is described by a Query: a cache key derived
// only from the page's local state, plus the fetch that fills it. Every write
// is a Store method that runs through the cache's Mutate and, when it
// succeeds, invalidates the keys the change affects.
//
// # Keys
//
//	("posts", search, tags, page, sort)   feed page
//	("posts", "user", userID)             posts by one user
//	("post", id)                          single post
//	("animes", search, genre, sort, tok)  series catalogue
//	("anime", id)                         single series
//	("genres")                            genre list
//	("episode", id)                       single episode
//	("list", token)                       favourites
//	("users", username, page)             user directory
//	("user", id)                          single user
//
// # Invalidation
//
// Post writes, and reactions or comments on a post, invalidate ("posts") and
// the post itself. Episode reactions and comments invalidate the episode.
// Series writes invalidate ("animes"), ("list") and the series. Deleting a
// genre also invalidates ("animes"). Favourite changes invalidate ("list")
// and the series. Login, register and logout invalidate everything.
//
// # Sessions
//
// The session is passed explicitly into each operation that needs a token.
// Operations that need one fail with ErrLoginRequired before any network
// call when the session is anonymous. Only Login, Register and Logout write
// the session store.
package state
