// Package ui provides the terminal user interface for seriesnet.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model is the root state and owns one
// small state struct per page (feed, series catalogue, series detail,
// episode, users, profile, favourites, forms and the client log viewer).
// Pages never fetch directly: each page derives the query keys it needs
// from its own local state in queries(), and syncQueries() mounts new keys
// on the cache, unmounts keys the page no longer needs and starts loads for
// the new ones. This runs after every Update, so changing a filter, a page
// number or the session is enough to refetch.
//
// Rendering reads the cache with peek and never blocks. The cache publishes
// an Event whenever a key settles or is invalidated; the program waits on
// that channel and redraws on every event.
//
// # Writes
//
// Every write goes through the state store and comes back as a mutationMsg.
// On success the store has already invalidated the affected keys and the
// message's apply hook clears the form or navigates away. On failure
// nothing is applied, the form keeps its input and a notification shows
// the backend message.
//
// # Sessions
//
// Anonymous sessions can browse the feed, log in, register and read the
// client log. Every other page shows a login prompt instead of content and
// derives no queries, so nothing is requested on its behalf.
//
// # Keyboard Navigation
//
// Global:
//   - f/s/v/u/p: Feed, series, my list, users, profile
//   - L: Client log
//   - a/R/O: Login, register, logout
//   - r: Refetch the page's queries
//   - T: Cycle theme (persisted to prefs)
//   - ?: Help
//   - esc: Back
//   - q: Quit
//
// Lists:
//   - j/k, g/G: Move
//   - [/]: Previous/next page
//   - /: Search
//   - o: Cycle sort
//   - enter: Open or expand
//
// Forms:
//   - tab/shift+tab: Move between fields
//   - ctrl+s: Submit
//   - ctrl+p: Render image previews
//
// # Themes
//
// Themes live in theme.go; every page styles through Theme.Styles so a
// theme switch repaints the whole program on the next frame.
package ui
