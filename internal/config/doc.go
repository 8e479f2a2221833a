// Package config loads the SeriesNet client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/seriesnet/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. Empty fields keep their defaults
//  5. SERIESNET_* environment variables override whatever was loaded
//
// Files ending in .yaml or .yml are decoded as YAML; everything else is TOML.
//
// # Default Values
//
//   - API URL: http://127.0.0.1:3000 (asset URL follows it unless set)
//   - Session file: ~/.config/seriesnet/session.toml
//   - Log file: ~/.local/state/seriesnet/client.log
//   - Stale time: 30s, GC time: 5m, request timeout: 10s
//
// # TOML Format
//
//	api_url = "https://seriesnet.example.com"
//	asset_url = "https://cdn.seriesnet.example.com"
//	stale_time = "30s"
//	gc_time = "5m"
//	request_timeout = "10s"
//	log_level = "info"
//
// # Environment Overrides
//
//   - SERIESNET_API_URL
//   - SERIESNET_ASSET_URL
//   - SERIESNET_STALE_TIME (Go duration)
//   - SERIESNET_TIMEOUT (Go duration)
//
// Invalid override values fail the load rather than being ignored.
package config
