package blog

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	// CoverWidth is the maximum width of a stored cover image.
	CoverWidth  = 1200
	jpegQuality = 82
	// MaxCoverSize bounds the upload body.
	MaxCoverSize = 10 << 20
)

// Cover is a processed cover image ready to be written to disk.
type Cover struct {
	Filename string
	Width    int
	Height   int
	Data     []byte
}

// ProcessCover decodes src, scales it down to CoverWidth when wider, and
// re-encodes it as JPEG named after slug.
func ProcessCover(src io.Reader, slug string) (Cover, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return Cover{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > CoverWidth {
		newH := h * CoverWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, CoverWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w, h = CoverWidth, newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Cover{}, fmt.Errorf("encode jpeg: %w", err)
	}
	name := Slugify(slug)
	if name == "" {
		name = "cover"
	}
	return Cover{Filename: name + "-cover.jpg", Width: w, Height: h, Data: buf.Bytes()}, nil
}

// SaveCover writes c into dir, appending a counter when the name is taken,
// and returns the final file name.
func SaveCover(dir string, c Cover) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create uploads dir: %w", err)
	}
	base := strings.TrimSuffix(c.Filename, ".jpg")
	candidate := c.Filename
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			break
		}
		candidate = fmt.Sprintf("%s-%d.jpg", base, n)
	}
	if err := os.WriteFile(filepath.Join(dir, candidate), c.Data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return candidate, nil
}
