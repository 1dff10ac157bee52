package imagemeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // Register BMP format decoder
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
	_ "golang.org/x/image/webp" // Register WEBP format decoder
)

// Extensions lists the file extensions treated as images when scanning a folder.
var Extensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// IsImage reports whether name has one of the recognised image extensions.
func IsImage(name string) bool {
	_, ok := Extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Info contains the metadata used to compare an image against a capture profile.
type Info struct {
	// Filename is the path the image was probed from.
	Filename string

	// Width and Height are the pixel dimensions.
	Width  int
	Height int

	// Format is the upper-case encoding name, e.g. "PNG" or "JPEG".
	Format string

	// Mode is the colour mode, e.g. "RGB", "RGBA", "L" or "P".
	Mode string

	// Animated is true for multi-frame GIFs and APNGs.
	Animated bool

	// Frames is the number of frames, 1 for still images.
	Frames int
}

// Size returns the (width, height) pair.
func (i Info) Size() [2]int {
	return [2]int{i.Width, i.Height}
}

// Probe opens path and reads its image metadata.
//
// The file handle is released before returning, including on decode errors.
// A file that is not a decodable image returns an error wrapping
// image.ErrFormat or the decoder's own error.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode image header of %s: %w", path, err)
	}

	info := Info{
		Filename: path,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Format:   strings.ToUpper(format),
		Mode:     modeOf(cfg.ColorModel),
		Frames:   1,
	}

	switch format {
	case "png":
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Info{}, err
		}
		mode, frames, err := readPNGChunks(f)
		if err != nil {
			return Info{}, fmt.Errorf("failed to read PNG chunks of %s: %w", path, err)
		}
		info.Mode = mode
		info.Frames = frames
	case "gif":
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return Info{}, err
		}
		g, err := gif.DecodeAll(f)
		if err != nil {
			return Info{}, fmt.Errorf("failed to decode GIF frames of %s: %w", path, err)
		}
		info.Frames = len(g.Image)
	}
	info.Animated = info.Frames > 1

	return info, nil
}

// modeOf maps a decoder colour model onto a mode name.
func modeOf(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.YCbCrModel, color.NYCbCrAModel:
		return "RGB"
	case color.GrayModel:
		return "L"
	case color.Gray16Model:
		return "I"
	case color.CMYKModel:
		return "CMYK"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "RGBA"
	}
	return "unknown"
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

var errShortPNG = errors.New("truncated or malformed PNG header")

// readPNGChunks walks the chunks up to the first IDAT and returns the colour
// mode from IHDR and the frame count from acTL (1 when absent).
func readPNGChunks(r io.Reader) (string, int, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return "", 0, errShortPNG
	}

	mode := ""
	frames := 1
	header := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if mode != "" {
				return mode, frames, nil
			}
			return "", 0, errShortPNG
		}
		length := binary.BigEndian.Uint32(header[:4])
		kind := string(header[4:8])

		switch kind {
		case "IHDR":
			if length != 13 {
				return "", 0, errShortPNG
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil || len(data) < 10 {
				return "", 0, errShortPNG
			}
			mode = pngMode(data[8], data[9])
		case "acTL":
			if length != 8 {
				return "", 0, errShortPNG
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil || len(data) < 4 {
				return "", 0, errShortPNG
			}
			frames = int(binary.BigEndian.Uint32(data[:4]))
		case "IDAT", "IEND":
			return mode, frames, nil
		default:
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return mode, frames, nil
			}
		}
		// CRC
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return mode, frames, nil
		}
	}
}

// pngMode converts IHDR bit depth and colour type into a mode name.
func pngMode(depth, colorType byte) string {
	switch colorType {
	case 0:
		if depth == 16 {
			return "I"
		}
		return "L"
	case 2:
		return "RGB"
	case 3:
		return "P"
	case 4:
		return "LA"
	case 6:
		return "RGBA"
	}
	return "unknown"
}
