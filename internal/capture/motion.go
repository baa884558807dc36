package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// BlurKernel is the Gaussian kernel size applied before differencing.
	BlurKernel = 21
	// PixelDelta is the grey-level difference that counts a pixel as changed.
	PixelDelta = 25
	// DefaultIdleTimeout is how long a gate stays active after the last motion.
	DefaultIdleTimeout = 2 * time.Second
)

// MotionDetector compares each frame with the previous one and reports the
// percentage of pixels that changed.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	hasPrev   bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector. threshold is a percentage of the frame
// area; 1.0 means one pixel in a hundred must change.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect reports whether frame differs from the previous frame by more than
// the threshold. The first frame after construction or Reset only becomes the
// baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(BlurKernel, BlurKernel), 0, 0, gocv.BorderDefault)

	if !m.hasPrev {
		blurred.CopyTo(&m.prev)
		m.hasPrev = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)
	gocv.Threshold(diff, &diff, PixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset forgets the baseline.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
}

// Close releases the baseline Mat. The detector can be used again afterwards.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
}

func (m *MotionDetector) clear() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.hasPrev = false
}

// SetThreshold ignores non-positive values.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// Threshold returns the current change percentage threshold.
func (m *MotionDetector) Threshold() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// GateState is the result of feeding one motion sample to a MotionGate.
type GateState int

const (
	// GateIdle means nothing has moved for longer than the idle timeout.
	GateIdle GateState = iota
	// GateActive means motion was seen recently.
	GateActive
	// GateOpened is returned on the sample that switched idle to active.
	GateOpened
	// GateClosed is returned on the sample that switched active to idle.
	GateClosed
)

// Active reports whether frames should be tracked in this state.
func (s GateState) Active() bool {
	return s == GateActive || s == GateOpened
}

// MotionGate turns per-frame motion samples into active and idle periods.
// The gate opens on the first motion and closes once no motion has been seen
// for the idle timeout.
type MotionGate struct {
	timeout    time.Duration
	active     bool
	lastMotion time.Time
	now        func() time.Time
}

// NewMotionGate returns a closed gate. A non-positive timeout uses
// DefaultIdleTimeout.
func NewMotionGate(timeout time.Duration) *MotionGate {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	return &MotionGate{timeout: timeout, now: time.Now}
}

// Observe records one sample.
func (g *MotionGate) Observe(motion bool) GateState {
	now := g.now()

	if motion {
		g.lastMotion = now
		if !g.active {
			g.active = true
			return GateOpened
		}
		return GateActive
	}

	if !g.active {
		return GateIdle
	}
	if now.Sub(g.lastMotion) > g.timeout {
		g.active = false
		return GateClosed
	}
	return GateActive
}

// Active reports whether the gate is open.
func (g *MotionGate) Active() bool {
	return g.active
}

// Reset closes the gate.
func (g *MotionGate) Reset() {
	g.active = false
	g.lastMotion = time.Time{}
}
