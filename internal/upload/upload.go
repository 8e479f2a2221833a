// Package upload validates and previews image files before they are sent to
// the backend.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/five82/seriesnet/internal/seriesnet"
)

const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeGIF  = "image/gif"

	msgBadType = "Only .png, .jpg, and .jpeg files are allowed."
)

// Rules describe which files a form accepts.
type Rules struct {
	Allowed  []string
	MaxBytes int64
	// Partial keeps the valid files when some are rejected. Without it one
	// bad file rejects the whole selection.
	Partial bool
}

var (
	// PostCreate applies to images on a new post.
	PostCreate = Rules{Allowed: []string{mimePNG, mimeJPEG}}
	// PostEdit applies to images added while editing a post.
	PostEdit = Rules{Allowed: []string{mimePNG, mimeJPEG, mimeGIF}, MaxBytes: 2 << 20, Partial: true}
	// SeriesImage applies to series posters and backgrounds.
	SeriesImage = Rules{Allowed: []string{mimePNG, mimeJPEG}}
)

// File is a selected file held in memory.
type File struct {
	Name string
	Path string
	Data []byte
	MIME string
}

// Upload converts f for the API client.
func (f File) Upload() seriesnet.Upload {
	return seriesnet.Upload{Name: f.Name, Data: f.Data}
}

// ValidationError reports files a form refused. It is shown to the user as
// is and never reaches the network.
type ValidationError struct {
	Rejected []string
	Msg      string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// Read loads the files at paths and sniffs their content type.
func Read(paths []string) ([]File, error) {
	files := make([]File, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		expanded, err := expandHome(p)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, FromBytes(filepath.Base(expanded), data))
		files[len(files)-1].Path = expanded
	}
	return files, nil
}

// FromBytes wraps in-memory data as a File.
func FromBytes(name string, data []byte) File {
	return File{Name: name, Data: data, MIME: mimetype.Detect(data).String()}
}

// Validate checks files against rules. It returns the accepted files and,
// when any were refused, a *ValidationError.
func Validate(files []File, rules Rules) ([]File, error) {
	var accepted []File
	var rejected []string
	for _, f := range files {
		switch {
		case !allowed(f, rules.Allowed):
			rejected = append(rejected, f.Name)
		case rules.MaxBytes > 0 && int64(len(f.Data)) > rules.MaxBytes:
			rejected = append(rejected, f.Name+" (too large)")
		default:
			accepted = append(accepted, f)
		}
	}
	if len(rejected) == 0 {
		return accepted, nil
	}
	verr := &ValidationError{Rejected: rejected, Msg: msgBadType}
	if !rules.Partial {
		return nil, verr
	}
	return accepted, verr
}

func allowed(f File, types []string) bool {
	mtype := f.MIME
	if mtype == "" {
		mtype = mimetype.Detect(f.Data).String()
	}
	if i := strings.IndexByte(mtype, ';'); i >= 0 {
		mtype = mtype[:i]
	}
	return slices.Contains(types, mtype)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
