package models

// Point is a coordinate in the canvas's logical pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CountingLine is the persisted two-point counting line for a camera.
// Coordinates are captured at CanvasW x CanvasH; a renderer using a
// different resolution must rescale with those dimensions.
type CountingLine struct {
	LineID   string `json:"line_id"`
	CameraID string `json:"camera_id"`
	P1       Point  `json:"p1"`
	P2       Point  `json:"p2"`
	IsActive bool   `json:"is_active"`
	CanvasW  int    `json:"canvas_w"`
	CanvasH  int    `json:"canvas_h"`
}
