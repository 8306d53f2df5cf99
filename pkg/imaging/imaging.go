// Package imaging inspects raw image bytes: format sniffing, content
// hashing, and frame extraction for animated inputs.
package imaging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Format identifies one of the supported image container formats.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatWebP Format = "webp"
)

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// MimeType returns the MIME type for the format.
func (f Format) MimeType() string {
	return "image/" + string(f)
}

// Magic-byte prefixes checked against the first bytes of the input.
var (
	magicPNG  = []byte{0x89, 'P', 'N', 'G'}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicGIF  = []byte("GIF8")
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP")
)

// DetectFormat sniffs the image format from the first 10 bytes.
//
// Unrecognized prefixes fall back to JPEG rather than failing: upstream
// sources occasionally deliver JPEGs with mangled headers, and a wrong
// extension is more recoverable than a rejected upload.
func DetectFormat(data []byte) Format {
	if len(data) < 10 {
		return FormatJPEG
	}
	switch {
	case bytes.HasPrefix(data, magicPNG):
		return FormatPNG
	case bytes.HasPrefix(data, magicJPEG):
		return FormatJPEG
	case bytes.HasPrefix(data, magicGIF):
		return FormatGIF
	case bytes.HasPrefix(data, magicRIFF) && bytes.Equal(data[8:10], magicWEBP[:2]):
		return FormatWebP
	default:
		return FormatJPEG
	}
}

// Hash returns the lowercase hex SHA-256 of the exact input bytes.
// This is the identity used for both ingest dedup and the AI result cache.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Metadata describes an inspected image.
type Metadata struct {
	Format     Format
	FrameCount int
}

// Inspect returns the format and frame count of the input.
//
// Only GIF inputs can report more than one frame; WebP animations are not
// decoded and are treated as static, which the analysis path tolerates by
// sending the original bytes to the model.
func Inspect(data []byte) Metadata {
	format := DetectFormat(data)
	meta := Metadata{Format: format, FrameCount: 1}
	if format == FormatGIF {
		if n, err := gifFrameCount(data); err == nil && n > 0 {
			meta.FrameCount = n
		}
	}
	return meta
}
