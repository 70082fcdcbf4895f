package hal

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"firmsim/app"
	"firmsim/internal/log"
)

const (
	telemetryPing      = 30 * time.Second
	telemetryReadLimit = 64 * 1024
	telemetryWriteWait = 10 * time.Second
)

// telemetryMessage is one frame sent to websocket clients. LCD carries the
// packed panel image and is only set when the image changed.
type telemetryMessage struct {
	Type string `json:"type"`
	*app.Snapshot
	LCD     string `json:"lcd,omitempty"`
	Console string `json:"console,omitempty"`
}

// telemetryRequest is what clients may send: a line of G-code for the
// firmware console.
type telemetryRequest struct {
	GCode string `json:"gcode"`
}

// telemetry streams board snapshots and console output to websocket
// clients on /ws and serves the latest snapshot on /status.
type telemetry struct {
	serial   serialPort
	log      log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    []byte
	frame   uint64
}

func newTelemetry(serial serialPort, l log.Logger) *telemetry {
	return &telemetry{
		serial: serial,
		log:    l,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

func (t *telemetry) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWebSocket)
	mux.HandleFunc("/status", t.handleStatus)
	return mux
}

// serve listens on addr until ctx is done.
func (t *telemetry) serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: t.handler()}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
		t.closeAll()
	}()
	t.log.Infof("telemetry: listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "telemetry")
	}
	return nil
}

// publish sends snap to every client. The panel image is attached when it
// differs from the previous publish.
func (t *telemetry) publish(snap app.Snapshot) {
	full, err := json.Marshal(telemetryMessage{
		Type:     "status",
		Snapshot: &snap,
		LCD:      base64.StdEncoding.EncodeToString(snap.Frame.Pixels[:]),
	})
	if err != nil {
		t.log.Errorf("telemetry: %v", err)
		return
	}
	t.mu.Lock()
	// New clients start from the full message.
	t.last = full
	changed := snap.FrameID != t.frame
	t.frame = snap.FrameID
	t.mu.Unlock()

	data := full
	if !changed {
		if data, err = json.Marshal(telemetryMessage{Type: "status", Snapshot: &snap}); err != nil {
			t.log.Errorf("telemetry: %v", err)
			return
		}
	}
	t.broadcast(data)
}

// Write broadcasts console output.
func (t *telemetry) Write(p []byte) (int, error) {
	data, err := json.Marshal(telemetryMessage{Type: "console", Console: string(p)})
	if err != nil {
		return 0, err
	}
	t.broadcast(data)
	return len(p), nil
}

func (t *telemetry) broadcast(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for c := range t.clients {
		c.send(data)
	}
}

func (t *telemetry) handleStatus(w http.ResponseWriter, _ *http.Request) {
	t.mu.Lock()
	last := t.last
	t.mu.Unlock()
	if last == nil {
		http.Error(w, "no status yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(last)
}

func (t *telemetry) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.log.Warnf("telemetry: upgrade: %v", err)
		return
	}
	c := &wsClient{t: t, conn: conn, out: make(chan []byte, 64), done: make(chan struct{})}

	t.mu.Lock()
	t.clients[c] = struct{}{}
	if t.last != nil {
		c.send(t.last)
	}
	n := len(t.clients)
	t.mu.Unlock()
	t.log.Debugf("telemetry: client %s connected (%d)", r.RemoteAddr, n)

	go c.writePump()
	c.readPump()
}

func (t *telemetry) remove(c *wsClient) {
	t.mu.Lock()
	delete(t.clients, c)
	t.mu.Unlock()
}

func (t *telemetry) closeAll() {
	t.mu.Lock()
	clients := make([]*wsClient, 0, len(t.clients))
	for c := range t.clients {
		clients = append(clients, c)
	}
	t.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}

// gcode queues one console line, waiting briefly for buffer space.
func (t *telemetry) gcode(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	p := []byte(line + "\n")
	for tries := 0; len(p) > 0 && tries < 100; tries++ {
		p = p[t.serial.WriteSerial(p):]
		if len(p) > 0 {
			time.Sleep(time.Millisecond)
		}
	}
	if len(p) > 0 {
		t.log.Warnf("telemetry: console full, dropped %q", line)
	}
}

type wsClient struct {
	t    *telemetry
	conn *websocket.Conn
	out  chan []byte

	once sync.Once
	done chan struct{}
}

func (c *wsClient) send(data []byte) {
	select {
	case c.out <- data:
	case <-c.done:
	default:
		// Slow client; it will catch up on the next status.
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsClient) readPump() {
	defer func() {
		c.t.remove(c)
		c.close()
	}()
	c.conn.SetReadLimit(telemetryReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * telemetryPing))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * telemetryPing))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.t.log.Warnf("telemetry: read: %v", err)
			}
			return
		}
		var req telemetryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.t.log.Warnf("telemetry: bad request: %v", err)
			continue
		}
		c.t.gcode(req.GCode)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(telemetryPing)
	defer func() {
		ticker.Stop()
		c.close()
	}()
	for {
		select {
		case data := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(telemetryWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(telemetryWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
