package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/seriesnet/internal/logtail"
	"github.com/five82/seriesnet/internal/query"
	"github.com/five82/seriesnet/internal/session"
	"github.com/five82/seriesnet/internal/state"
	"github.com/five82/seriesnet/internal/upload"
)

// Messages

type tickMsg time.Time

type cacheEventMsg query.Event

type cacheClosedMsg struct{}

// loadedMsg reports that a page query settled.
type loadedMsg struct {
	key query.Key
	err error
}

// mutationMsg carries the result of a write. apply runs only on success.
type mutationMsg struct {
	notice string
	err    error
	warn   string
	apply  func(*Model) tea.Cmd
}

type authMsg struct {
	sess     session.Session
	username string
	err      error
}

type assetMsg struct {
	url string
	art string
	err error
}

type previewMsg struct {
	previews []upload.Preview
	err      error
}

type logsMsg struct {
	lines []string
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(events <-chan query.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return cacheClosedMsg{}
		}
		return cacheEventMsg(ev)
	}
}

func loadCmd(ctx context.Context, store *state.Store, q state.Query) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Cache().Fetch(ctx, q.Key, q.Fetch)
		return loadedMsg{key: q.Key, err: err}
	}
}

func refetchCmd(ctx context.Context, store *state.Store, key query.Key) tea.Cmd {
	return func() tea.Msg {
		_, err := store.Cache().Refetch(ctx, key)
		return loadedMsg{key: key, err: err}
	}
}

func assetCmd(ctx context.Context, store *state.Store, url string) tea.Cmd {
	return func() tea.Msg {
		data, err := store.FetchAsset(ctx, url)
		if err != nil {
			return assetMsg{url: url, err: err}
		}
		img, err := upload.Decode(data)
		if err != nil {
			return assetMsg{url: url, err: fmt.Errorf("decode image: %w", err)}
		}
		return assetMsg{url: url, art: upload.RenderANSI(img, ImageWidth)}
	}
}

func previewCmd(ctx context.Context, paths []string) tea.Cmd {
	return func() tea.Msg {
		files, err := upload.Read(paths)
		if err != nil {
			return previewMsg{err: err}
		}
		previews, err := upload.Previews(ctx, files, ImageWidth/2)
		return previewMsg{previews: previews, err: err}
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, LogTailLines)
		return logsMsg{lines: lines, err: err}
	}
}
