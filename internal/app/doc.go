// Package app is the composition root of the SeriesNet client.
//
// # Overview
//
// Run loads configuration, opens the log file and the session file, builds
// the API client, the query cache and the domain store, and hands them to
// the terminal UI. It blocks until the user quits or the context is
// cancelled, then closes the cache (stopping background refetches and the
// janitor) and the log file.
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │ Initialize everything
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()         Read client config (TOML or YAML)
//	       ├─────> logging.New()         Open the client log
//	       ├─────> session.Open()        Restore the saved session
//	       ├─────> seriesnet.NewClient() HTTP client for the backend
//	       ├─────> query.New()           Cache + StartJanitor()
//	       ├─────> state.New()           Keys and invalidation rules
//	       └─────> ui.Run()              Start TUI (blocks)
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Configuration file unreadable or invalid
//   - Log directory or session path unusable
//   - Invalid backend URL
//
// A backend that is down is not fatal. Pages show the fetch error and
// retry on refresh, so the client can start before the server does.
package app
