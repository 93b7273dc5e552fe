package stream_test

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trafficwatch-cli/internal/stream"
)

// newStreamServer runs a websocket endpoint at /ws/detect/{camera_id}
// that hands each accepted connection to handler.
func newStreamServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ws/detect/") {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// sendThenHold writes each message, then keeps the connection open until
// the client side closes it.
func sendThenHold(messages ...string) func(conn *websocket.Conn) {
	return func(conn *websocket.Conn) {
		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func waitFor(t *testing.T, c *stream.Client, what string, cond func(stream.Snapshot) bool) stream.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		snap := c.Snapshot()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := c.Snapshot()
	t.Fatalf("timed out waiting for %s (state=%v err=%q)", what, snap.State, snap.Err)
	return snap
}

func TestStartRequiresCameraID(t *testing.T) {
	c := stream.New(stream.Config{BaseURL: "ws://localhost:1"})
	if err := c.Start(""); err != stream.ErrNoCamera {
		t.Fatalf("expected ErrNoCamera, got %v", err)
	}
	if got := c.Snapshot().State; got != stream.StateIdle {
		t.Fatalf("expected idle state, got %v", got)
	}
}

func TestDetectionsReplaceWholesale(t *testing.T) {
	base := newStreamServer(t, sendThenHold(
		`{"type":"frame","detections":[{"id":"a","x":1,"y":2,"width":3,"height":4,"type":"sedan","confidence":90},{"id":"b","x":5,"y":6,"width":7,"height":8,"type":"bus","confidence":80}]}`,
		`{"type":"frame","detections":[{"id":"c","x":9,"y":9,"width":9,"height":9,"type":"truck","confidence":70}]}`,
	))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "second detection set", func(s stream.Snapshot) bool {
		return len(s.Detections) == 1 && s.Detections[0].ID == "c"
	})

	// The set from the second message fully replaces the first; never a union.
	if len(snap.Detections) != 1 {
		t.Fatalf("expected 1 box after replacement, got %d", len(snap.Detections))
	}
	if snap.Detections[0].Type != "truck" {
		t.Fatalf("unexpected box: %+v", snap.Detections[0])
	}
}

func TestCrossingEventsNewestFirst(t *testing.T) {
	messages := make([]string, 5)
	for i := range messages {
		messages[i] = fmt.Sprintf(
			`{"type":"frame","new_counts":[{"camera_id":"cam_001","track_id":%d,"class":"sedan","confidence":95,"bbox":[0,0,10,10],"time":"2026-09-01T10:00:0%dZ"}]}`,
			i+1, i)
	}
	base := newStreamServer(t, sendThenHold(messages...))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "5 crossing events", func(s stream.Snapshot) bool {
		return len(s.Events) == 5
	})

	for i, wantTrack := range []int{5, 4, 3, 2, 1} {
		if snap.Events[i].TrackID != wantTrack {
			t.Fatalf("event %d: expected track %d, got %d", i, wantTrack, snap.Events[i].TrackID)
		}
	}
}

func TestCrossingEventHistoryCap(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"type":"frame","new_counts":[`)
	for i := 0; i < stream.HistoryCap+50; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"camera_id":"cam_001","track_id":%d,"class":"van","confidence":90,"bbox":[0,0,1,1],"time":"2026-09-01T10:00:00Z"}`, i)
	}
	sb.WriteString(`]}`)

	base := newStreamServer(t, sendThenHold(sb.String()))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "capped history", func(s stream.Snapshot) bool {
		return len(s.Events) == stream.HistoryCap
	})
	if len(snap.Events) != stream.HistoryCap {
		t.Fatalf("expected %d events, got %d", stream.HistoryCap, len(snap.Events))
	}
}

func TestStopIsIdempotent(t *testing.T) {
	base := newStreamServer(t, sendThenHold(`{"type":"frame","fps":25.0}`))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, c, "streaming", func(s stream.Snapshot) bool {
		return s.State == stream.StateStreaming
	})

	c.Stop()
	first := c.Snapshot()
	c.Stop()
	second := c.Snapshot()

	if first.State != stream.StateIdle || second.State != stream.StateIdle {
		t.Fatalf("expected idle after both stops, got %v then %v", first.State, second.State)
	}
	if first.FPS != 0 || second.FPS != 0 {
		t.Fatal("expected fps cleared after stop")
	}
	if first.Err != second.Err {
		t.Fatalf("second stop changed error state: %q vs %q", first.Err, second.Err)
	}
}

func TestErrorMessageEndsSession(t *testing.T) {
	base := newStreamServer(t, sendThenHold(
		`{"type":"frame","fps":10.0}`,
		`{"error":"camera offline"}`,
		`{"type":"frame","fps":99.0}`,
	))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "fatal error", func(s stream.Snapshot) bool {
		return s.State == stream.StateIdle && s.Err != ""
	})

	if snap.Err != "camera offline" {
		t.Fatalf("expected error %q, got %q", "camera offline", snap.Err)
	}

	// The trailing frame message must not be processed.
	time.Sleep(50 * time.Millisecond)
	if got := c.Snapshot().FPS; got != 0 {
		t.Fatalf("frame after fatal error was processed: fps=%d", got)
	}
}

func TestMalformedMessagesAreDropped(t *testing.T) {
	base := newStreamServer(t, sendThenHold(
		`this is not json`,
		`{"type":"frame","fps":25.4}`,
	))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "fps from valid message", func(s stream.Snapshot) bool {
		return s.FPS == 25
	})
	if snap.State != stream.StateStreaming {
		t.Fatalf("malformed message ended the session: %v", snap.State)
	}
	if snap.Err != "" {
		t.Fatalf("malformed message surfaced an error: %q", snap.Err)
	}
}

func TestPeerCloseReturnsToIdle(t *testing.T) {
	base := newStreamServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"frame","fps":30.0}`))
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "idle after peer close", func(s stream.Snapshot) bool {
		return s.State == stream.StateIdle
	})

	// A peer close is a normal terminal state, not an error.
	if snap.Err != "" {
		t.Fatalf("peer close surfaced an error: %q", snap.Err)
	}
	if snap.FPS != 0 {
		t.Fatalf("fps not cleared on close: %d", snap.FPS)
	}
}

func TestRestartReplacesSocketAndResetsCounts(t *testing.T) {
	var conns atomic.Int32
	base := newStreamServer(t, func(conn *websocket.Conn) {
		conns.Add(1)
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"frame","counts":{"sedan":7},"new_counts":[{"camera_id":"cam_001","track_id":1,"class":"sedan","confidence":90,"bbox":[0,0,1,1],"time":"2026-09-01T10:00:00Z"}]}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	waitFor(t, c, "first session counts", func(s stream.Snapshot) bool {
		return s.LiveCounts["sedan"] == 7
	})

	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, c, "second connection", func(s stream.Snapshot) bool {
		return conns.Load() == 2 && s.State == stream.StateStreaming
	})

	// Live counts were reset for the new session and repopulated from the
	// new socket; the durable event history survived the restart.
	snap := waitFor(t, c, "second session state", func(s stream.Snapshot) bool {
		return s.LiveCounts["sedan"] == 7 && len(s.Events) == 2
	})
	if len(snap.Events) != 2 {
		t.Fatalf("event history did not survive restart: %d", len(snap.Events))
	}
}

func TestFrameAndFPSDecoding(t *testing.T) {
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	msg := fmt.Sprintf(`{"type":"frame","frame":"%s","fps":24.6}`,
		base64.StdEncoding.EncodeToString(jpeg))
	base := newStreamServer(t, sendThenHold(msg))

	c := stream.New(stream.Config{BaseURL: base})
	if err := c.Start("cam_001"); err != nil {
		t.Fatal(err)
	}
	defer c.Stop()

	snap := waitFor(t, c, "decoded frame", func(s stream.Snapshot) bool {
		return s.Frame != nil
	})

	if string(snap.Frame) != string(jpeg) {
		t.Fatalf("frame bytes mismatch: %v", snap.Frame)
	}
	// FPS rounds to the nearest integer.
	if snap.FPS != 25 {
		t.Fatalf("expected fps 25, got %d", snap.FPS)
	}
}
