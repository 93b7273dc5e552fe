package stream

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trafficwatch-cli/pkg/models"
)

// State of a detection streaming session.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// HistoryCap bounds the crossing-event history buffer.
const HistoryCap = 200

// ErrNoCamera is returned by Start when no camera id is given.
var ErrNoCamera = errors.New("stream: camera id is required")

// Config carries everything a Client needs. Nothing is read from
// process-wide state; the caller supplies addresses and headers.
type Config struct {
	// BaseURL is the websocket base address, e.g. "ws://host:8000".
	BaseURL string
	// Header is attached to the dial request (tunnel bypass and the like).
	Header http.Header
	// OnUpdate, if set, is invoked with a fresh snapshot after every
	// state change. Called from the client's own goroutines.
	OnUpdate func(Snapshot)
	Logger   *zap.Logger
}

// Snapshot is a consistent copy of the client's observable state.
type Snapshot struct {
	State      State
	CameraID   string
	Frame      []byte // decoded annotated JPEG, nil until first frame
	FPS        int
	Detections []models.DetectionBox
	LiveCounts map[string]int
	Events     []models.CountEvent // newest first, capped at HistoryCap
	Err        string
}

// Client owns at most one websocket connection to a camera's detection
// stream and folds the inbound message stream into displayable state.
//
// Frames, detection boxes, FPS and live counts are session-scoped and
// reset whenever the session returns to idle. The crossing-event history
// survives across sessions until ClearEvents is called.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *zap.Logger

	mu       sync.Mutex
	state    State
	gen      int // incremented on every start/stop; stale goroutines bail out
	conn     *websocket.Conn
	cameraID string

	frame  []byte
	fps    int
	boxes  []models.DetectionBox
	counts map[string]int
	events []models.CountEvent
	errMsg string
}

func New(cfg Config) *Client {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		log:    log,
	}
}

// Start opens a stream for the camera. Any prior connection is closed
// first; there are never two sockets alive for one client. Live counts
// and the previous error are cleared for the new session. Connection
// success or failure is observed asynchronously via state.
func (c *Client) Start(cameraID string) error {
	if cameraID == "" {
		return ErrNoCamera
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.gen++
	gen := c.gen
	c.state = StateConnecting
	c.cameraID = cameraID
	c.counts = nil
	c.errMsg = ""
	url := fmt.Sprintf("%s/ws/detect/%s", c.cfg.BaseURL, cameraID)
	c.mu.Unlock()
	c.notify()

	go c.dial(url, gen)
	return nil
}

// Stop is idempotent: safe to call when already idle. It closes the
// transport immediately with no drain and clears session-scoped state.
// The event history is kept.
func (c *Client) Stop() {
	c.mu.Lock()
	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.resetSessionLocked()
	c.mu.Unlock()
	c.notify()
}

// Snapshot returns a copy of the current observable state.
func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State:    c.state,
		CameraID: c.cameraID,
		FPS:      c.fps,
		Err:      c.errMsg,
	}
	if c.frame != nil {
		snap.Frame = append([]byte(nil), c.frame...)
	}
	if c.boxes != nil {
		snap.Detections = append([]models.DetectionBox(nil), c.boxes...)
	}
	if c.counts != nil {
		snap.LiveCounts = make(map[string]int, len(c.counts))
		for k, v := range c.counts {
			snap.LiveCounts[k] = v
		}
	}
	if c.events != nil {
		snap.Events = append([]models.CountEvent(nil), c.events...)
	}
	return snap
}

// ClearEvents empties the crossing-event history buffer.
func (c *Client) ClearEvents() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
	c.notify()
}

func (c *Client) dial(url string, gen int) {
	conn, resp, err := c.dialer.Dial(url, c.cfg.Header)
	if err != nil && resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.resetSessionLocked()
		c.errMsg = "stream connect failed: " + err.Error()
		c.mu.Unlock()
		c.log.Warn("stream dial failed", zap.String("url", url), zap.Error(err))
		c.notify()
		return
	}
	c.conn = conn
	c.state = StateStreaming
	c.mu.Unlock()
	c.notify()

	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen)
			return
		}
		if !c.handleMessage(raw, gen) {
			conn.Close()
			return
		}
	}
}

// handleMessage applies one inbound message. It returns false when the
// session is over (fatal error message, or a newer session took over)
// and the read loop should stop.
func (c *Client) handleMessage(raw []byte, gen int) bool {
	var msg models.StreamMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		// Malformed messages never end the session.
		c.log.Warn("dropping malformed stream message", zap.Error(err))
		return true
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}

	if msg.Error != "" {
		// Fatal for the session. Kill it even if the peer keeps the
		// socket open; no automatic reconnect.
		c.gen++
		c.conn = nil
		c.resetSessionLocked()
		c.errMsg = msg.Error
		c.mu.Unlock()
		c.notify()
		return false
	}

	if msg.Type != "frame" {
		c.mu.Unlock()
		c.log.Debug("ignoring stream message", zap.String("type", msg.Type))
		return true
	}

	if msg.Frame != "" {
		if data, err := base64.StdEncoding.DecodeString(msg.Frame); err != nil {
			c.log.Warn("dropping undecodable frame payload", zap.Error(err))
		} else {
			c.frame = data
		}
	}
	if msg.FPS != 0 {
		c.fps = int(math.Round(msg.FPS))
	}
	if msg.Detections != nil {
		// Full replacement, never a merge: this is "what is visible now".
		c.boxes = msg.Detections
	}
	if msg.Counts != nil {
		c.counts = msg.Counts
	}
	if len(msg.NewCounts) > 0 {
		c.appendEventsLocked(msg.NewCounts)
	}
	c.mu.Unlock()
	c.notify()
	return true
}

// appendEventsLocked prepends the message's crossing events and trims the
// buffer to HistoryCap. Applied atomically per message under c.mu.
func (c *Client) appendEventsLocked(crossings []models.CrossingEvent) {
	events := make([]models.CountEvent, 0, len(crossings))
	for _, nc := range crossings {
		t := nc.Time
		if t == "" {
			t = time.Now().UTC().Format(time.RFC3339)
		}
		events = append(events, models.CountEvent{
			CountID:  fmt.Sprintf("det-%s-%d", nc.CameraID, nc.TrackID),
			CameraID: nc.CameraID,
			TrackID:  nc.TrackID,
			Class:    nc.Class,
			Time:     t,
		})
	}
	c.events = append(events, c.events...)
	if len(c.events) > HistoryCap {
		c.events = c.events[:HistoryCap]
	}
}

// handleClose runs when the peer closes the socket or the network drops.
// This is the one terminal state that is not an error.
func (c *Client) handleClose(gen int) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.resetSessionLocked()
	c.mu.Unlock()
	c.notify()
}

// resetSessionLocked moves to idle and drops everything session-scoped.
// The event history is deliberately untouched.
func (c *Client) resetSessionLocked() {
	c.state = StateIdle
	c.frame = nil
	c.fps = 0
	c.boxes = nil
	c.counts = nil
}

func (c *Client) notify() {
	if c.cfg.OnUpdate != nil {
		c.cfg.OnUpdate(c.Snapshot())
	}
}
