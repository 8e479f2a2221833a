// Package query caches backend reads by key and keeps them consistent with
// writes.
//
// A Key is a tuple of an operation name and its parameters. Fetch serves
// cached data at once, refetching in the background when it is stale, and
// shares one in-flight request among all callers of the same key. Mutate runs
// a write and, only when it succeeds, invalidates the keys matching its
// patterns. Patterns match by prefix, so ("posts") covers every filtered and
// paginated variant of the feed.
//
// Every fetch is tagged with a generation. Invalidate and Refetch open a new
// generation, and a response whose generation is no longer current is
// discarded rather than written over fresher data.
//
// The cache lives for the process; nothing is persisted.
package query
