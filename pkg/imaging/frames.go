package imaging

import (
	"bytes"
	"image"
	"image/draw"
	"image/gif"
	"image/png"
)

// PrepareFrames produces the frame set sent to a vision model: the original
// bytes for static images, up to n composited frames for animations. It
// never returns an empty slice.
func PrepareFrames(data []byte, n int) [][]byte {
	format := DetectFormat(data)
	frames := SampleFrames(data, n, format)
	if len(frames) == 0 {
		return [][]byte{data}
	}
	return frames
}

// gifFrameCount decodes only the GIF structure to count frames.
func gifFrameCount(data []byte) (int, error) {
	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	return len(g.Image), nil
}

// SampleFrames extracts up to n roughly evenly spaced frames from an animated
// input, each re-encoded as PNG for the vision model.
//
// Static inputs come back as a single-element slice holding the original
// bytes. Decode failures yield an empty slice: the caller falls back to
// sending the original bytes unchanged, so a broken animation still gets
// analyzed as a whole.
func SampleFrames(data []byte, n int, format Format) [][]byte {
	if n <= 0 {
		n = 1
	}
	if format != FormatGIF {
		return [][]byte{data}
	}

	g, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil || len(g.Image) == 0 {
		return nil
	}
	if len(g.Image) == 1 {
		return [][]byte{data}
	}

	indices := sampleIndices(len(g.Image), n)

	// GIF frames can be partial updates over the previous canvas, so frames
	// are composited in order and snapshots taken at the sampled indices.
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)

	var frames [][]byte
	next := 0
	for i, frame := range g.Image {
		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		if next < len(indices) && i == indices[next] {
			var buf bytes.Buffer
			if err := png.Encode(&buf, canvas); err != nil {
				return nil
			}
			frames = append(frames, buf.Bytes())
			next++
		}
	}
	return frames
}

// sampleIndices picks n evenly spaced indices in [0, total).
func sampleIndices(total, n int) []int {
	if n >= total {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	if n == 1 {
		return []int{total / 2}
	}
	indices := make([]int, 0, n)
	step := float64(total-1) / float64(n-1)
	last := -1
	for i := 0; i < n; i++ {
		idx := int(float64(i)*step + 0.5)
		if idx >= total {
			idx = total - 1
		}
		if idx != last {
			indices = append(indices, idx)
			last = idx
		}
	}
	return indices
}
