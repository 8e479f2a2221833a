package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
)

const (
	thumbSize        = 320
	defaultANSIWidth = 32
	maxConcurrency   = 4
)

// Preview is a thumbnail of a selected image.
type Preview struct {
	Name    string
	DataURL string
	ANSI    string
}

// Previews encodes a thumbnail for every file concurrently. Results keep the
// order of files.
func Previews(ctx context.Context, files []File, width int) ([]Preview, error) {
	out := make([]Preview, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := buildPreview(f, width)
			if err != nil {
				return fmt.Errorf("preview %s: %w", f.Name, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func buildPreview(f File, width int) (Preview, error) {
	img, err := Decode(f.Data)
	if err != nil {
		return Preview{}, err
	}
	thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return Preview{}, fmt.Errorf("encode thumbnail: %w", err)
	}
	return Preview{
		Name:    f.Name,
		DataURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
		ANSI:    RenderANSI(thumb, width),
	}, nil
}

// Decode reads an image, honouring EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// RenderANSI draws img with upper half blocks, two pixel rows per text line.
func RenderANSI(img image.Image, width int) string {
	if width <= 0 {
		width = defaultANSIWidth
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return ""
	}
	// Terminal cells are about twice as tall as wide; half blocks cancel that.
	height := b.Dy() * width / b.Dx()
	if height < 2 {
		height = 2
	}
	if height%2 == 1 {
		height++
	}
	small := imaging.Resize(img, width, height, imaging.Box)

	var sb strings.Builder
	for y := 0; y < height; y += 2 {
		if y > 0 {
			sb.WriteByte('\n')
		}
		for x := 0; x < width; x++ {
			top := small.At(x, y)
			bottom := small.At(x, y+1)
			sb.WriteString(lipgloss.NewStyle().
				Foreground(hexColor(top)).
				Background(hexColor(bottom)).
				Render("▀"))
		}
	}
	return sb.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
