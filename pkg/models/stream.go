package models

// StreamMessage is the tagged union delivered over the per-camera
// detection websocket. A non-empty Error is fatal for the session.
// Every payload field of a "frame" message is optional and independent.
type StreamMessage struct {
	Type       string          `json:"type"`
	Error      string          `json:"error,omitempty"`
	Frame      string          `json:"frame,omitempty"` // base64 JPEG
	FPS        float64         `json:"fps,omitempty"`
	Detections []DetectionBox  `json:"detections,omitempty"`
	Counts     map[string]int  `json:"counts,omitempty"`
	NewCounts  []CrossingEvent `json:"new_counts,omitempty"`
}

// DetectionBox is one bounding box visible in the current frame.
// Each frame message carries the full set; boxes are never merged
// across frames.
type DetectionBox struct {
	ID         string  `json:"id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label,omitempty"`
	TrackID    int     `json:"track_id,omitempty"`
}

// CrossingEvent is a newly confirmed line crossing carried in a frame
// message's new_counts list.
type CrossingEvent struct {
	CameraID   string     `json:"camera_id"`
	TrackID    int        `json:"track_id"`
	Class      string     `json:"class"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"`
	Time       string     `json:"time"`
}
