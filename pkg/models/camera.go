package models

// CameraListResponse represents the items envelope returned by GET /cameras
type CameraListResponse struct {
	Items []Camera `json:"items"`
}

// Camera represents a single roadside camera in the backend roster
type Camera struct {
	ID         string `json:"camera_id"` // JSON key is "camera_id", not "id"
	Name       string `json:"name"`
	RTSP       string `json:"rtsp"`
	HLSURL     string `json:"hls_url,omitempty"`
	StreamURL  string `json:"stream_url,omitempty"`
	Location   string `json:"location,omitempty"`
	Zone       string `json:"zone,omitempty"`
	Status     string `json:"status,omitempty"`
	LastActive string `json:"last_active,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// Online reports whether the camera should be treated as reachable.
// The roster only marks cameras "offline" explicitly; anything else is online.
func (c Camera) Online() bool {
	return c.Status != "offline"
}

// CameraUpdate is the partial-update body for PATCH /cameras/{id}
type CameraUpdate struct {
	Name   string `json:"name,omitempty"`
	RTSP   string `json:"rtsp,omitempty"`
	HLSURL string `json:"hls_url,omitempty"`
}
