// Package imageio decodes and encodes the raster formats the adjustment
// pipeline accepts. Decoding is format-sniffing: PNG, JPEG and GIF come
// from the standard library, BMP, TIFF and WebP from golang.org/x/image.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register the extended decoders with image.Decode.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when the image format is not recognized.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("imageio: empty data")
)

// Decode decodes an image from the given byte slice, auto-detecting the
// format. It fails with ErrEmptyData for empty input and wraps
// ErrUnsupportedFormat when no registered decoder recognizes the data.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("imageio: decode: %w", err)
	}
	return img, nil
}

// DecodeReader decodes an image from the given reader, auto-detecting the
// format.
func DecodeReader(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("imageio: decode: %w", err)
	}
	return img, nil
}

// EncodePNG encodes the image as PNG and returns the bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("imageio: encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes the image as JPEG with the given quality (1-100) and
// returns the bytes.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("imageio: encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadFile reads and decodes an image file, auto-detecting the format.
func LoadFile(path string) (image.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeReader(f)
}

// SaveFile encodes the image to the given path. The encoder is chosen from
// the file extension: .png (default), .jpg/.jpeg, .gif.
func SaveFile(path string, img image.Image) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}

	if err := encodeByExt(f, path, img); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

func encodeByExt(w io.Writer, path string, img image.Image) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(w, img, &jpeg.Options{Quality: 95}); err != nil {
			return fmt.Errorf("imageio: encode JPEG: %w", err)
		}
	case ".gif":
		if err := gif.Encode(w, img, nil); err != nil {
			return fmt.Errorf("imageio: encode GIF: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("imageio: encode PNG: %w", err)
		}
	}
	return nil
}
