package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// DefaultPreviewQuality is the JPEG quality of preview images.
const DefaultPreviewQuality = 80

// Preview keeps the most recent frame as JPEG for the camera preview stream.
// The frame pump publishes into it so that preview readers never compete with
// the tracker for the camera.
type Preview struct {
	mu      sync.Mutex
	jpeg    []byte
	seq     uint64
	next    chan struct{}
	quality int
}

// NewPreview returns an empty preview encoding at the given JPEG quality.
func NewPreview(quality int) *Preview {
	if quality <= 0 || quality > 100 {
		quality = DefaultPreviewQuality
	}
	return &Preview{
		quality: quality,
		next:    make(chan struct{}),
	}
}

// Publish encodes frame and makes it the latest preview image.
func (p *Preview) Publish(frame *gocv.Mat) error {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, p.quality})
	if err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	p.Set(data)
	return nil
}

// Set stores an already encoded image.
func (p *Preview) Set(jpeg []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.jpeg = jpeg
	p.seq++
	close(p.next)
	p.next = make(chan struct{})
}

// Latest returns the newest image and its sequence number. seq is zero until
// the first image arrives.
func (p *Preview) Latest() (jpeg []byte, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jpeg, p.seq
}

// Updated returns a channel that is closed when the next image arrives.
func (p *Preview) Updated() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}
