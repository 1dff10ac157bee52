// Package imagemeta reads capture metadata from image files.
//
// Only headers are decoded: dimensions and colour model come from
// image.DecodeConfig, so probing a folder of full-resolution street scenes
// never materialises pixel data. Two formats need more than the generic
// header:
//
//   - PNG: the IHDR colour type decides between RGB and RGBA (Go's decoder
//     reports both as an RGBA model), and an acTL chunk marks an animated PNG.
//   - GIF: frames are counted by decoding the whole stream.
//
// # Mode Names
//
// Modes follow the names common to imaging tools:
//
//	L     8-bit greyscale
//	I     16-bit greyscale
//	LA    greyscale with alpha
//	P     palette
//	RGB   true colour
//	RGBA  true colour with alpha
//	CMYK  four-channel print colour
//
// # Supported Formats
//
// PNG, JPEG and GIF come from the standard library; BMP, TIFF and WEBP are
// registered from golang.org/x/image. Formats are reported in upper case.
package imagemeta
