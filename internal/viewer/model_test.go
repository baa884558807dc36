package viewer

import (
	"testing"
	"time"
)

func TestModel_Attributes(t *testing.T) {
	m := NewModel()

	if m.CameraOrbit() != "" || m.CameraTarget() != "" {
		t.Fatal("new model should have empty attributes")
	}

	m.SetCameraOrbit("10.000deg 20.000deg 1.000m")
	m.SetCameraTarget("0.000m 0.000m 0.000m")
	m.SetScale("2 2 2")

	snap := m.Snapshot()
	if snap.CameraOrbit != "10.000deg 20.000deg 1.000m" {
		t.Errorf("CameraOrbit = %q", snap.CameraOrbit)
	}
	if snap.CameraTarget != "0.000m 0.000m 0.000m" {
		t.Errorf("CameraTarget = %q", snap.CameraTarget)
	}
	if snap.Scale != "2 2 2" {
		t.Errorf("Scale = %q", snap.Scale)
	}
	if snap.Loaded {
		t.Error("model should not be loaded")
	}
}

func TestModel_Load(t *testing.T) {
	m := NewModel()

	var calls []Attributes
	m.OnLoad(func(a Attributes) {
		calls = append(calls, a)
	})

	if !m.Load("0deg 75deg 1.2m", "0m 0.5m 0m") {
		t.Fatal("first Load() should succeed")
	}
	if m.Load("0deg 75deg 9m", "1m 1m 1m") {
		t.Error("second Load() should be ignored")
	}

	if len(calls) != 1 {
		t.Fatalf("load handler called %d times, want 1", len(calls))
	}
	if calls[0].CameraOrbit != "0deg 75deg 1.2m" || !calls[0].Loaded {
		t.Errorf("handler saw %+v", calls[0])
	}
	if got := m.CameraOrbit(); got != "0deg 75deg 1.2m" {
		t.Errorf("CameraOrbit() = %q after ignored reload", got)
	}
}

func TestModel_Subscribe(t *testing.T) {
	m := NewModel()
	m.SetScale("1 1 1")

	ch, cancel := m.Subscribe()

	recv := func() Attributes {
		t.Helper()
		select {
		case a, ok := <-ch:
			if !ok {
				t.Fatal("channel closed")
			}
			return a
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for snapshot")
		}
		return Attributes{}
	}

	if got := recv(); got.Scale != "1 1 1" {
		t.Errorf("initial snapshot scale = %q", got.Scale)
	}

	// Unread snapshots are replaced by the newest one.
	m.SetCameraOrbit("1deg 1deg 1m")
	m.SetCameraOrbit("2deg 2deg 2m")
	if got := recv(); got.CameraOrbit != "2deg 2deg 2m" {
		t.Errorf("latest snapshot orbit = %q", got.CameraOrbit)
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}

	// Writes after cancel must not panic.
	m.SetScale("3 3 3")
}

func TestModel_ImplementsCamera(t *testing.T) {
	var _ Camera = (*Model)(nil)
}

func TestModel_LoadDefaults(t *testing.T) {
	m := NewModel()
	m.Load("", "  ")

	snap := m.Snapshot()
	if snap.CameraOrbit != FormatOrbit(DefaultOrbit) {
		t.Errorf("CameraOrbit = %q, want default", snap.CameraOrbit)
	}
	if snap.CameraTarget != FormatTarget(DefaultTarget) {
		t.Errorf("CameraTarget = %q, want default", snap.CameraTarget)
	}
}
