package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/viewer"
)

type memorySettings struct {
	settings session.Settings
}

func (m *memorySettings) Settings() session.Settings { return m.settings }

func (m *memorySettings) UpdateSettings(s session.Settings) error {
	m.settings = s
	return nil
}

func TestAPI_ViewerWorkflow(t *testing.T) {
	model := viewer.NewModel()
	ts := httptest.NewServer(New(Config{Model: model}))
	defer ts.Close()

	client := ts.Client()

	body := `{"cameraOrbit": "0deg 75deg 1.2m", "cameraTarget": "0m 0.1m 0m"}`
	resp, err := client.Post(ts.URL+"/api/viewer/load", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/viewer/load error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("first load status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	resp, err = client.Post(ts.URL+"/api/viewer/load", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/viewer/load error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second load status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	resp, err = client.Get(ts.URL + "/api/viewer")
	if err != nil {
		t.Fatalf("GET /api/viewer error = %v", err)
	}
	var attrs viewer.Attributes
	json.NewDecoder(resp.Body).Decode(&attrs)
	resp.Body.Close()

	if attrs.CameraOrbit != "0deg 75deg 1.2m" || !attrs.Loaded {
		t.Errorf("GET /api/viewer = %+v", attrs)
	}
}

func TestAPI_ViewerSocket(t *testing.T) {
	model := viewer.NewModel()
	ts := httptest.NewServer(New(Config{Model: model}))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/viewer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	read := func() viewer.Attributes {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var a viewer.Attributes
		if err := conn.ReadJSON(&a); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		return a
	}

	if first := read(); first.Loaded {
		t.Errorf("initial snapshot already loaded: %+v", first)
	}

	msg := `{"type": "load", "cameraOrbit": "0deg 75deg 0.7m", "cameraTarget": "0m 0m 0m"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	// Drain until the load shows up; the model may coalesce snapshots.
	deadline := time.Now().Add(2 * time.Second)
	for {
		a := read()
		if a.Loaded {
			if a.CameraOrbit != "0deg 75deg 0.7m" {
				t.Errorf("loaded orbit = %q", a.CameraOrbit)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("load never reached the socket")
		}
	}

	model.SetCameraOrbit("40.000deg 75.000deg 0.700m")
	for {
		a := read()
		if a.CameraOrbit == "40.000deg 75.000deg 0.700m" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("orbit update never reached the socket")
		}
	}
}

func TestAPI_SettingsWorkflow(t *testing.T) {
	svc := &memorySettings{settings: session.DefaultSettings()}
	ts := httptest.NewServer(New(Config{Settings: svc}))
	defer ts.Close()

	client := ts.Client()

	put := func(body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/settings", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/settings error = %v", err)
		}
		return resp
	}

	resp := put(`{"pan_sensitivity": 0.75}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if svc.settings.PanSensitivity != 0.75 {
		t.Errorf("pan_sensitivity = %f, want 0.75", svc.settings.PanSensitivity)
	}
	if svc.settings.RotateSensitivity != 400 {
		t.Errorf("partial update changed rotate_sensitivity to %f", svc.settings.RotateSensitivity)
	}

	resp = put(`{"min_radius": -1}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid PUT status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, err := client.Get(ts.URL + "/api/settings")
	if err != nil {
		t.Fatalf("GET /api/settings error = %v", err)
	}
	var got session.Settings
	json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if got != svc.settings {
		t.Errorf("GET /api/settings = %+v, want %+v", got, svc.settings)
	}
}

func TestAPI_SessionsWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	rec, _ := s.Sessions().Start()
	s.Sessions().RecordTransition(rec.ID, "no_hands", "two_hands")

	ts := httptest.NewServer(New(Config{Store: s}))
	defer ts.Close()
	client := ts.Client()

	resp, err := client.Get(ts.URL + "/api/sessions")
	if err != nil {
		t.Fatalf("GET /api/sessions error = %v", err)
	}
	var listed struct {
		Sessions []store.Session `json:"sessions"`
	}
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()

	if len(listed.Sessions) != 1 || listed.Sessions[0].ID != rec.ID {
		t.Fatalf("listed sessions = %+v", listed.Sessions)
	}

	resp, err = client.Get(ts.URL + "/api/sessions/" + rec.ID + "/transitions")
	if err != nil {
		t.Fatalf("GET transitions error = %v", err)
	}
	var tr struct {
		Transitions []store.Transition `json:"transitions"`
	}
	json.NewDecoder(resp.Body).Decode(&tr)
	resp.Body.Close()

	if len(tr.Transitions) != 1 || tr.Transitions[0].To != "two_hands" {
		t.Errorf("transitions = %+v", tr.Transitions)
	}
}

func TestStreamHandler(t *testing.T) {
	preview := capture.NewPreview(0)
	preview.Set([]byte("frame-1"))

	ts := httptest.NewServer(New(Config{Preview: preview}))
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/stream")
	if err != nil {
		t.Fatalf("GET /api/stream error = %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	readPart := func() string {
		t.Helper()
		boundary, err := r.ReadString('\n')
		if err != nil || strings.TrimSpace(boundary) != "--frame" {
			t.Fatalf("boundary = %q, %v", boundary, err)
		}
		header, err := textproto.NewReader(r).ReadMIMEHeader()
		if err != nil {
			t.Fatalf("ReadMIMEHeader() error = %v", err)
		}
		n, _ := strconv.Atoi(header.Get("Content-Length"))
		body := make([]byte, n)
		if _, err := io.ReadFull(r, body); err != nil {
			t.Fatalf("read body: %v", err)
		}
		r.ReadString('\n')
		return string(body)
	}

	if got := readPart(); got != "frame-1" {
		t.Errorf("first part = %q", got)
	}

	preview.Set([]byte("frame-2"))
	if got := readPart(); got != "frame-2" {
		t.Errorf("second part = %q", got)
	}
}
