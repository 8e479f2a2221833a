package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// LayoutCardMaxWidth caps the width of post and series cards.
	LayoutCardMaxWidth = 110

	// LayoutChromeHeight is the rows taken by the nav bar, command bar and
	// toast line.
	LayoutChromeHeight = 3
)

// Client log display limits.
const (
	// LogTailLines is the number of lines read from the end of the log file.
	LogTailLines = 400
)

// Timing constants.
const (
	// DefaultUIInterval is the tick that expires toasts and refreshes the
	// nav bar.
	DefaultUIInterval = time.Second

	// LogRefreshInterval is how often the log viewer rereads the file while
	// following.
	LogRefreshInterval = 2 * time.Second

	// ToastDuration is how long a notification stays on screen.
	ToastDuration = 4 * time.Second

	// ImageWidth is the column width of images drawn in the preview modal.
	ImageWidth = 60
)
