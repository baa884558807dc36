package detector

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// ReplayDetector plays back recorded hand frames. Each line of the recording
// is one landmarker response ({"hands": [...]}); Detect ignores the video
// frame and returns the next recorded hands.
type ReplayDetector struct {
	frames [][]HandLandmarks
	index  int
	loop   bool
	seam   bool
	mu     sync.Mutex
}

// NewReplayDetector reads a JSON-lines recording. Blank lines are skipped.
func NewReplayDetector(r io.Reader, loop bool) (*ReplayDetector, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var frames [][]HandLandmarks
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		hands, err := decodeHands(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		frames = append(frames, hands)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	return &ReplayDetector{frames: frames, loop: loop}, nil
}

// OpenReplay loads a recording from a file.
func OpenReplay(path string, loop bool) (*ReplayDetector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return NewReplayDetector(f, loop)
}

// Detect returns the next recorded frame. After the last frame it returns no
// hands unless looping. A looping replay returns one frame with no hands
// between the end and the start so gestures do not carry across the seam.
func (d *ReplayDetector) Detect(_ *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.index >= len(d.frames) {
		if !d.loop || len(d.frames) == 0 {
			return nil, nil
		}
		if !d.seam {
			d.seam = true
			return nil, nil
		}
		d.seam = false
		d.index = 0
	}

	hands := d.frames[d.index]
	d.index++
	return hands, nil
}

// Len returns the number of recorded frames.
func (d *ReplayDetector) Len() int {
	return len(d.frames)
}

// Close is a no-op.
func (d *ReplayDetector) Close() error {
	return nil
}
