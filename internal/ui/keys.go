package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Back       key.Binding
	Refresh    key.Binding

	// Page switching
	ViewFeed       key.Binding
	ViewSeries     key.Binding
	ViewFavourites key.Binding
	ViewUsers      key.Binding
	ViewProfile    key.Binding
	ViewLogs       key.Binding
	Login          key.Binding
	Register       key.Binding
	Logout         key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Open     key.Binding

	// Lists
	Search    key.Binding
	FilterTag key.Binding
	CycleSort key.Binding

	// Content actions
	New         key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Like        key.Binding
	Dislike     key.Binding
	Comment     key.Binding
	Image       key.Binding
	Favourite   key.Binding
	GenreFilter key.Binding
	AddGenre    key.Binding
	DropGenre   key.Binding

	// Forms
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Preview   key.Binding
	Announce  key.Binding
	Toggle    key.Binding

	// Dialogs
	Confirm key.Binding
	Cancel  key.Binding

	// Logs actions
	ToggleFollow key.Binding
	CycleLevel   key.Binding
	CycleComp    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh page"),
		),

		// Page switching
		ViewFeed: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Feed"),
		),
		ViewSeries: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Series"),
		),
		ViewFavourites: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "My list"),
		),
		ViewUsers: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Users"),
		),
		ViewProfile: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "My profile"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Client log"),
		),
		Login: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Login"),
		),
		Register: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Register"),
		),
		Logout: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Logout"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "pgdown"),
			key.WithHelp("]", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "pgup"),
			key.WithHelp("[", "Previous page"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open/expand"),
		),

		// Lists
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),
		FilterTag: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "Filter tags"),
		),
		CycleSort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Cycle sort"),
		),

		// Content actions
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Delete"),
		),
		Like: key.NewBinding(
			key.WithKeys("+"),
			key.WithHelp("+", "Like"),
		),
		Dislike: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "Dislike"),
		),
		Comment: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Comment"),
		),
		Image: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "View images"),
		),
		Favourite: key.NewBinding(
			key.WithKeys("*"),
			key.WithHelp("*", "Toggle my list"),
		),
		GenreFilter: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "Cycle genre filter"),
		),
		AddGenre: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Add genre"),
		),
		DropGenre: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Delete genre"),
		),

		// Forms
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "Submit"),
		),
		Preview: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "Preview images"),
		),
		Announce: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("ctrl+a", "Toggle announcement"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Toggle"),
		),

		// Dialogs
		Confirm: key.NewBinding(
			key.WithKeys("y", "enter"),
			key.WithHelp("y", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("n", "esc"),
			key.WithHelp("n", "Cancel"),
		),

		// Logs actions
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Cycle level filter"),
		),
		CycleComp: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Cycle component filter"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ViewFeed, k.ViewSeries, k.ViewFavourites, k.ViewUsers, k.ViewProfile, k.ViewLogs},
		{k.Login, k.Register, k.Logout},
		{k.Up, k.Down, k.Top, k.Bottom, k.NextPage, k.PrevPage, k.Open},
		{k.Search, k.FilterTag, k.CycleSort, k.GenreFilter},
		{k.New, k.Edit, k.Delete, k.Like, k.Dislike, k.Comment, k.Image, k.Favourite},
		{k.NextField, k.PrevField, k.Submit, k.Preview},
		{k.CycleTheme, k.Refresh, k.Help, k.Quit},
	}
}
