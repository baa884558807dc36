package app

import (
	"log"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/viewer"
)

// runPipeline is the frame pump. It owns the session: every call into it
// happens on this goroutine.
//
// Each tick reads a frame, publishes it to the preview, and passes it
// through the motion gate. While the gate is open the frame goes to the hand
// tracker and the result to the session. When the gate closes the session is
// reset, exactly as if the hands had left the frame.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	fps := IdleFPS
	if a.config.Ungated {
		fps = ActiveFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	wasEnabled := a.IsEnabled()

	for {
		select {
		case <-stopCh:
			a.session.Reset()
			return

		case attrs := <-a.loadCh:
			a.applyLoad(attrs)

		case <-a.settingsReady:
			a.applySettings()

		case <-ticker.C:
			enabled := a.IsEnabled()
			if enabled != wasEnabled {
				wasEnabled = enabled
				if !enabled {
					a.session.Reset()
					a.gate.Reset()
					log.Println("Tracking paused")
				} else {
					log.Println("Tracking resumed")
				}
			}
			if !enabled {
				continue
			}
			a.tick(ticker)
		}
	}
}

func (a *App) tick(ticker *time.Ticker) {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		log.Printf("Error reading frame: %v", err)
		return
	}
	defer frame.Close()

	if a.config.Preview != nil {
		if err := a.config.Preview.Publish(frame); err != nil {
			log.Printf("Error publishing preview: %v", err)
		}
	}

	if !a.config.Ungated {
		moved, _ := a.motion.Detect(frame)
		switch a.gate.Observe(moved) {
		case capture.GateIdle:
			return
		case capture.GateOpened:
			a.setRate(ticker, ActiveFPS)
			log.Println("Switched to active mode")
		case capture.GateClosed:
			a.setRate(ticker, IdleFPS)
			a.session.Reset()
			log.Println("Switched to idle mode")
			return
		}
	}

	hands, err := a.Detector().Detect(frame)
	if err != nil {
		log.Printf("Error detecting hands: %v", err)
		return
	}
	a.session.HandleFrame(hands)
}

func (a *App) setRate(ticker *time.Ticker, fps int) {
	a.camera.SetFPS(fps)
	ticker.Reset(time.Second / time.Duration(fps))
}

func (a *App) applyLoad(attrs viewer.Attributes) {
	if a.session.Load(attrs) {
		log.Printf("Viewer loaded: orbit %q, target %q", attrs.CameraOrbit, attrs.CameraTarget)
	}
}

func (a *App) applySettings() {
	if settings, ok := a.takePendingSettings(); ok {
		a.session.Apply(settings)
	}
}

// drainEvents applies queued events without blocking.
func (a *App) drainEvents() {
	for {
		select {
		case attrs := <-a.loadCh:
			a.applyLoad(attrs)
		case <-a.settingsReady:
			a.applySettings()
		default:
			return
		}
	}
}
