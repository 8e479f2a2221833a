// Package seriesnet provides an HTTP client for the SeriesNet backend API.
//
// # Overview
//
// One method exists per backend operation: authentication, posts, series,
// genres, episodes, favourite lists, reactions, comments and the user
// directory. Each method performs exactly one request and returns the decoded
// payload or an error. There are no retries and no deduplication here; the
// query cache sits on top of this package for that.
//
// # Client Usage
//
//	client, err := seriesnet.NewClient("127.0.0.1:3000")
//	if err != nil {
//		log.Fatalf("failed to create client: %v", err)
//	}
//
//	posts, err := client.ListPosts(ctx, seriesnet.PostFilter{Page: 1})
//	if err != nil {
//		log.Printf("feed fetch failed: %v", seriesnet.Message(err))
//	}
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: seriesnet/0.1
//   - Carry a fresh X-Request-ID
//   - Send Authorization: Bearer <token> when a token is supplied
//
// Uploads (post images, series poster and background) are encoded as
// multipart form data. List filters are encoded from tagged structs.
//
// # Error Handling
//
// Non-2xx responses are returned as *APIError carrying the status code and
// the backend's {"msg": ...} text. Use Message to get the text to show a
// user and IsUnauthorized to detect an expired or missing token.
//
// # Thread Safety
//
// Client is safe for concurrent use by multiple goroutines.
package seriesnet
