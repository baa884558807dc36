// Package app wires the camera, hand tracker and gesture session into the
// frame pump that drives the viewer.
package app

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/viewer"
)

// Pipeline timing.
const (
	// IdleFPS is the capture rate while the scene is still.
	IdleFPS = 5
	// ActiveFPS is the capture rate while motion is present.
	ActiveFPS = 15
	// IdleTimeout is how long the scene must be still before the session is
	// reset and capture drops to IdleFPS.
	IdleTimeout = 2 * time.Second
)

// SettingsKey is the store key holding the persisted session tuning.
const SettingsKey = "session"

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	Model *viewer.Model

	// Camera overrides the device camera selected by CameraID.
	Camera       capture.Camera
	CameraID     int
	MotionThresh float64
	// Ungated tracks every frame instead of waiting for motion.
	Ungated bool

	// Detector overrides the MediaPipe tracker.
	Detector       detector.Detector
	DetectorConfig detector.Config

	// Preview receives every captured frame when set.
	Preview *capture.Preview

	// OnModeChange is called on the pipeline goroutine after each mode change.
	OnModeChange func(from, to gesture.Mode)
}

// App runs the frame pump. The gesture session is owned by the pipeline
// goroutine; viewer load events and settings changes are queued to it.
type App struct {
	config   Config
	camera   capture.Camera
	motion   *capture.MotionDetector
	gate     *capture.MotionGate
	detector detector.Detector
	model    *viewer.Model
	session  *session.Session

	loadCh        chan viewer.Attributes
	settingsReady chan struct{}

	// updateMu serializes UpdateSettings so the stored, reported and applied
	// tuning always agree.
	updateMu sync.Mutex

	mu       sync.RWMutex
	enabled  bool
	settings session.Settings
	pending  *session.Settings
	mode     gesture.Mode
	record   *store.Session
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates an App. Persisted settings are loaded from the store when one
// is configured; a missing or invalid record falls back to the defaults.
func New(config Config) *App {
	if config.MotionThresh <= 0 {
		config.MotionThresh = 1.0
	}
	if config.Model == nil {
		config.Model = viewer.NewModel()
	}

	a := &App{
		config:     config,
		camera:     config.Camera,
		motion:     capture.NewMotionDetector(config.MotionThresh),
		gate:       capture.NewMotionGate(IdleTimeout),
		detector:   config.Detector,
		model:      config.Model,
		loadCh:        make(chan viewer.Attributes, 1),
		settingsReady: make(chan struct{}, 1),
		enabled:       true,
		mode:          gesture.ModeNoHands,
	}

	if a.camera == nil {
		cc := capture.DefaultConfig()
		cc.DeviceID = config.CameraID
		cc.FPS = IdleFPS
		a.camera = capture.NewCamera(cc)
	}

	if a.detector == nil {
		dc := config.DetectorConfig
		if dc.MaxHands == 0 {
			dc = detector.DefaultConfig()
		}
		if mp, err := detector.NewMediaPipeDetector(dc); err == nil {
			a.detector = mp
			log.Println("Using MediaPipe hand tracking")
		} else {
			log.Printf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.settings = a.loadSettings()
	a.session = session.New(a.model, a.settings)
	a.session.SetObserver(a.observeMode)

	a.model.OnLoad(func(attrs viewer.Attributes) {
		select {
		case a.loadCh <- attrs:
		default:
		}
	})

	return a
}

func (a *App) loadSettings() session.Settings {
	settings := session.DefaultSettings()
	if a.config.Store == nil {
		return settings
	}

	err := a.config.Store.Settings().GetJSON(SettingsKey, &settings)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return session.DefaultSettings()
	case err != nil:
		log.Printf("Failed to load settings, using defaults: %v", err)
		return session.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		log.Printf("Stored settings invalid, using defaults: %v", err)
		return session.DefaultSettings()
	}
	return settings
}

// Settings returns the current tuning.
func (a *App) Settings() session.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// UpdateSettings validates, persists and queues new tuning for the session.
// It takes effect on the next frame. It never blocks on the pipeline.
func (a *App) UpdateSettings(settings session.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	a.updateMu.Lock()
	defer a.updateMu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().PutJSON(SettingsKey, settings); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
	}

	a.mu.Lock()
	a.settings = settings
	a.pending = &settings
	a.mu.Unlock()

	select {
	case a.settingsReady <- struct{}{}:
	default:
	}
	return nil
}

// takePendingSettings returns the newest queued tuning, if any, and clears it.
func (a *App) takePendingSettings() (session.Settings, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return session.Settings{}, false
	}
	settings := *a.pending
	a.pending = nil
	return settings, true
}

// SetEnabled pauses or resumes tracking. Pausing resets the session.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled reports whether tracking is running.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector replaces the hand tracker.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// Detector returns the hand tracker.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Camera returns the frame source.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Model returns the viewer the session writes to.
func (a *App) Model() *viewer.Model {
	return a.model
}

// Mode returns the mode of the most recent frame.
func (a *App) Mode() gesture.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

// RecordedSession returns the store session of the current run, or nil.
func (a *App) RecordedSession() *store.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.record
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Start opens the camera and begins the pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	if a.config.Ungated {
		a.camera.SetFPS(ActiveFPS)
	} else {
		a.camera.SetFPS(IdleFPS)
	}

	if a.config.Store != nil {
		rec, err := a.config.Store.Sessions().Start()
		if err != nil {
			log.Printf("Failed to record session: %v", err)
		} else {
			a.record = rec
		}
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the pipeline, waits for it to exit and closes the camera.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	a.motion.Reset()
	a.gate.Reset()

	a.mu.Lock()
	rec := a.record
	a.record = nil
	a.mu.Unlock()
	if rec != nil && a.config.Store != nil {
		if err := a.config.Store.Sessions().End(rec.ID); err != nil {
			log.Printf("Failed to close session %s: %v", rec.ID, err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Close stops the pipeline and releases the tracker.
func (a *App) Close() error {
	a.Stop()
	a.motion.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			return fmt.Errorf("close detector: %w", err)
		}
	}
	return nil
}

// HandleHands feeds one tracker result to the session on the calling
// goroutine, after applying any queued load or settings events. It must not
// be called while the pipeline is running.
func (a *App) HandleHands(hands []detector.HandLandmarks) gesture.Mode {
	a.drainEvents()
	return a.session.HandleFrame(hands)
}

// observeMode runs on the pipeline goroutine.
func (a *App) observeMode(from, to gesture.Mode) {
	a.mu.Lock()
	a.mode = to
	rec := a.record
	a.mu.Unlock()

	log.Printf("Gesture mode %s -> %s", from, to)

	if rec != nil && a.config.Store != nil {
		if _, err := a.config.Store.Sessions().RecordTransition(rec.ID, string(from), string(to)); err != nil {
			log.Printf("Failed to record transition: %v", err)
		}
	}
	if a.config.OnModeChange != nil {
		a.config.OnModeChange(from, to)
	}
}
