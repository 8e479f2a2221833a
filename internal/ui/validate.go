package ui

import (
	"errors"
	"strings"
)

// Form validation messages. They match what the backend answers for the same
// mistakes so the user sees one wording either way.
const (
	msgLoginRequired = "You need to login first"
	msgAllFields     = "All fields are required"
	msgTitleCreate   = "Title cannot be empty."
	msgContentCreate = "Please add content or upload at least one image."
	msgTitleEdit     = "Title shouldn't be empty"
	msgContentEdit   = "Type some content or upload an image"
	msgGenreEmpty    = "Genre name should not be empty"
	msgCommentEmpty  = "Content should not be empty"
)

// validatePost checks a post form before any network call. images counts
// both kept and newly selected images.
func validatePost(editing bool, title, content string, images int) error {
	if strings.TrimSpace(title) == "" {
		return errors.New(ternary(editing, msgTitleEdit, msgTitleCreate))
	}
	if strings.TrimSpace(content) == "" && images == 0 {
		return errors.New(ternary(editing, msgContentEdit, msgContentCreate))
	}
	return nil
}

// validateSeries checks a series form. New series need both images; edits
// keep the current ones when none are chosen.
func validateSeries(editing bool, name, description string, genres int, poster, background string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" || genres == 0 {
		return errors.New(msgAllFields)
	}
	if !editing && (strings.TrimSpace(poster) == "" || strings.TrimSpace(background) == "") {
		return errors.New(msgAllFields)
	}
	return nil
}

func validateGenre(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New(msgGenreEmpty)
	}
	return nil
}

func validateComment(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New(msgCommentEmpty)
	}
	return nil
}

func validateCredentials(username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return errors.New(msgAllFields)
	}
	return nil
}
