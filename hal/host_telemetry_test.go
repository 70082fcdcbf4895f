package hal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"firmsim/app"
	"firmsim/internal/log"
)

type lockedSerial struct {
	mu sync.Mutex
	in strings.Builder
}

func (s *lockedSerial) WriteSerial(p []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.Write(p)
	return len(p)
}

func (s *lockedSerial) ReadSerial([]byte) int { return 0 }

func (s *lockedSerial) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.String()
}

func dialTelemetry(t *testing.T, tel *telemetry) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(tel.handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestTelemetrySendsLatestStatus(t *testing.T) {
	tel := newTelemetry(&lockedSerial{}, log.NewNullLogger())
	snap := app.Snapshot{Temp: 123.5, FrameID: 7}
	snap.Frame.Pixels[0] = 0xFF
	tel.publish(snap)

	conn := dialTelemetry(t, tel)
	var got struct {
		Type  string  `json:"type"`
		Temp  float64 `json:"temp"`
		Frame uint64  `json:"frame"`
		LCD   []byte  `json:"lcd"`
	}
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() = %v", err)
	}
	if got.Type != "status" || got.Temp != 123.5 || got.Frame != 7 {
		t.Fatalf("status = %+v", got)
	}
	if len(got.LCD) != len(snap.Frame.Pixels) || got.LCD[0] != 0xFF {
		t.Fatalf("lcd = %d bytes", len(got.LCD))
	}
}

func TestTelemetryForwardsGCode(t *testing.T) {
	ser := &lockedSerial{}
	tel := newTelemetry(ser, log.NewNullLogger())
	conn := dialTelemetry(t, tel)

	if err := conn.WriteJSON(telemetryRequest{GCode: " M105 "}); err != nil {
		t.Fatalf("WriteJSON() = %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for ser.String() == "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := ser.String(); got != "M105\n" {
		t.Fatalf("console input = %q, want %q", got, "M105\n")
	}
}

func TestTelemetryStatusEndpoint(t *testing.T) {
	tel := newTelemetry(&lockedSerial{}, log.NewNullLogger())
	rec := httptest.NewRecorder()
	tel.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status before publish = %d", rec.Code)
	}

	tel.publish(app.Snapshot{X: 42})
	rec = httptest.NewRecorder()
	tel.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	var got app.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if got.X != 42 {
		t.Fatalf("X = %v, want 42", got.X)
	}
}
