package viewer

import (
	"strings"
	"sync"
)

// Camera is the mutable camera surface of a viewer. Values use the textual
// encoding described in the package documentation.
type Camera interface {
	CameraOrbit() string
	SetCameraOrbit(orbit string)
	CameraTarget() string
	SetCameraTarget(target string)
	SetScale(scale string)
}

// Attributes is a snapshot of the viewer's camera attributes.
type Attributes struct {
	CameraOrbit  string `json:"cameraOrbit"`
	CameraTarget string `json:"cameraTarget"`
	Scale        string `json:"scale"`
	Loaded       bool   `json:"loaded"`
}

// Model mirrors the attributes of the browser-side viewer. The gesture
// session writes to it and subscribers (the websocket feed) receive every
// change. It is safe for concurrent use.
type Model struct {
	mu     sync.RWMutex
	attrs  Attributes
	subs   map[chan Attributes]struct{}
	onLoad []func(Attributes)
}

// NewModel creates an unloaded model with empty attributes.
func NewModel() *Model {
	return &Model{
		subs: make(map[chan Attributes]struct{}),
	}
}

// CameraOrbit returns the current cameraOrbit attribute.
func (m *Model) CameraOrbit() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs.CameraOrbit
}

// SetCameraOrbit replaces the cameraOrbit attribute.
func (m *Model) SetCameraOrbit(orbit string) {
	m.update(func(a *Attributes) { a.CameraOrbit = orbit })
}

// CameraTarget returns the current cameraTarget attribute.
func (m *Model) CameraTarget() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs.CameraTarget
}

// SetCameraTarget replaces the cameraTarget attribute.
func (m *Model) SetCameraTarget(target string) {
	m.update(func(a *Attributes) { a.CameraTarget = target })
}

// SetScale replaces the scale attribute.
func (m *Model) SetScale(scale string) {
	m.update(func(a *Attributes) { a.Scale = scale })
}

// Snapshot returns a copy of all attributes.
func (m *Model) Snapshot() Attributes {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attrs
}

// OnLoad registers fn to run when the viewer reports it has loaded.
func (m *Model) OnLoad(fn func(Attributes)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLoad = append(m.onLoad, fn)
}

// Load records the attributes the viewer started with and runs the load
// handlers. Blank attributes take the viewer defaults. Only the first call
// has any effect; later calls return false.
func (m *Model) Load(orbit, target string) bool {
	if strings.TrimSpace(orbit) == "" {
		orbit = FormatOrbit(DefaultOrbit)
	}
	if strings.TrimSpace(target) == "" {
		target = FormatTarget(DefaultTarget)
	}

	m.mu.Lock()
	if m.attrs.Loaded {
		m.mu.Unlock()
		return false
	}
	m.attrs.CameraOrbit = orbit
	m.attrs.CameraTarget = target
	m.attrs.Loaded = true
	snap := m.attrs
	handlers := append([]func(Attributes){}, m.onLoad...)
	m.notifyLocked()
	m.mu.Unlock()

	// Handlers run outside the lock so they may read the model.
	for _, fn := range handlers {
		fn(snap)
	}
	return true
}

// Subscribe returns a channel that receives a snapshot after every change,
// starting with the current state. Slow readers only see the latest
// snapshot. Call cancel to unsubscribe; it closes the channel.
func (m *Model) Subscribe() (<-chan Attributes, func()) {
	ch := make(chan Attributes, 1)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	ch <- m.attrs
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			close(ch)
			m.mu.Unlock()
		})
	}
	return ch, cancel
}

func (m *Model) update(fn func(*Attributes)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.attrs)
	m.notifyLocked()
}

// notifyLocked pushes the current snapshot to every subscriber, replacing a
// snapshot the subscriber has not read yet. m.mu must be held.
func (m *Model) notifyLocked() {
	snap := m.attrs
	for ch := range m.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
