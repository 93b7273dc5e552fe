package models

// CountEvent is a durable line-crossing record produced by the backend
// tracker, returned by GET /counts/recent.
type CountEvent struct {
	CountID  string `json:"count_id"`
	CameraID string `json:"camera_id"`
	LineID   string `json:"line_id,omitempty"`
	TrackID  int    `json:"track_id"`
	Class    string `json:"class"`
	Time     string `json:"time"`
}

// CountListResponse wraps GET /counts/recent.
type CountListResponse struct {
	Items []CountEvent `json:"items"`
}

// ClassTotal is one row of GET /counts/by-class.
type ClassTotal struct {
	Class string `json:"class"`
	Total int    `json:"total"`
}

// ClassTotalsResponse wraps GET /counts/by-class.
type ClassTotalsResponse struct {
	Items []ClassTotal `json:"items"`
}

// CameraTotal is one row of GET /counts/by-camera.
type CameraTotal struct {
	CameraID string `json:"camera_id"`
	Total    int    `json:"total"`
}

// CameraTotalsResponse wraps GET /counts/by-camera.
type CameraTotalsResponse struct {
	Items []CameraTotal `json:"items"`
}

// TimeBucket is one row of GET /counts/by-time: per-class totals for a
// single time bucket.
type TimeBucket struct {
	Time    string         `json:"time"`
	ByClass map[string]int `json:"by_class"`
}

// TimeBucketsResponse wraps GET /counts/by-time.
type TimeBucketsResponse struct {
	Items []TimeBucket `json:"items"`
}
