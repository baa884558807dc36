package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/viewer"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// socketMessage is what the browser may send over the viewer socket.
type socketMessage struct {
	Type         string `json:"type"`
	CameraOrbit  string `json:"cameraOrbit"`
	CameraTarget string `json:"cameraTarget"`
}

// ViewerSocket pushes viewer attribute snapshots to the browser and accepts
// its load event.
type ViewerSocket struct {
	model *viewer.Model
}

// NewViewerSocket creates a ViewerSocket for model.
func NewViewerSocket(model *viewer.Model) *ViewerSocket {
	return &ViewerSocket{model: model}
}

// ServeHTTP upgrades the connection and streams snapshots until either side
// closes.
func (h *ViewerSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.model.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go h.readLoop(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case attrs, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(attrs); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop handles inbound messages and closes done when the peer goes away.
func (h *ViewerSocket) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("viewer socket read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg socketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("viewer socket: bad message: %v", err)
			continue
		}

		switch msg.Type {
		case "load":
			h.model.Load(msg.CameraOrbit, msg.CameraTarget)
		default:
			log.Printf("viewer socket: ignoring message type %q", msg.Type)
		}
	}
}
