// Package logtail reads and parses the client's own log file.
//
// # Overview
//
// The client logs through log/slog's text handler into a file, since the
// terminal UI owns stdout. The log viewer page uses this package to show the
// tail of that file.
//
// # Reading
//
// Read keeps a ring buffer of maxLines entries and scans the file once, so
// memory use is bounded by the number of lines requested rather than the
// file size. Lines come back oldest first. A missing file yields nil, nil.
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// # Parsing
//
// Parse splits a record such as
//
//	time=2026-10-19T10:00:00.000Z level=INFO msg="request done" component=api status=200
//
// into an Entry. time, level, msg and component become fields; everything
// else is kept in Attrs in order. Quoted values are unescaped. Lines that are
// not key=value records (panics, stray output) are returned with the whole
// line as Message.
//
// Filter narrows entries by minimum level and component for the viewer's
// filter controls.
package logtail
