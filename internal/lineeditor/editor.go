package lineeditor

import (
	"errors"
	"math"
	"strings"

	"trafficwatch-cli/pkg/models"
)

// Canvas resolution the backend expects line coordinates in unless the
// caller overrides it.
const (
	DefaultCanvasW = 1280
	DefaultCanvasH = 720
)

// EditorState tracks how many endpoints have been designated.
type EditorState int

const (
	StateEmpty EditorState = iota
	StateOnePoint
	StateComplete
)

// SaveStatus is the outcome of the most recent save attempt.
type SaveStatus int

const (
	StatusIdle SaveStatus = iota
	StatusSaving
	StatusOK
	StatusError
)

var (
	ErrPointsRequired = errors.New("lineeditor: both P1 and P2 must be set")
	ErrMissingIDs     = errors.New("lineeditor: camera_id and line_id are required")
)

// DisplayRect is the on-screen bounding rectangle of the canvas, which
// may differ from its logical resolution under responsive scaling.
type DisplayRect struct {
	Left, Top     float64
	Width, Height float64
}

// LineSaver persists a counting line and returns the confirmed record.
type LineSaver interface {
	SaveLine(models.CountingLine) (*models.CountingLine, error)
}

// Editor designates a two-point counting line over a fixed logical
// canvas resolution. Pointer input arrives in display coordinates and is
// mapped and clamped into logical space, so saved lines are valid
// regardless of display zoom.
type Editor struct {
	CanvasW int
	CanvasH int

	p1, p2  *models.Point
	status  SaveStatus
	message string
}

func New(canvasW, canvasH int) *Editor {
	if canvasW <= 0 {
		canvasW = DefaultCanvasW
	}
	if canvasH <= 0 {
		canvasH = DefaultCanvasH
	}
	return &Editor{CanvasW: canvasW, CanvasH: canvasH}
}

// MapToCanvas converts a pointer position in display coordinates into
// the logical canvas space: scale (pointer - origin) by logical/displayed
// per axis, then clamp to [0, logical-1].
func (e *Editor) MapToCanvas(x, y float64, rect DisplayRect) models.Point {
	scaleX := float64(e.CanvasW) / rect.Width
	scaleY := float64(e.CanvasH) / rect.Height

	px := int(math.Round((x - rect.Left) * scaleX))
	py := int(math.Round((y - rect.Top) * scaleY))

	return models.Point{
		X: clamp(px, 0, e.CanvasW-1),
		Y: clamp(py, 0, e.CanvasH-1),
	}
}

// Click advances the point cycle with a pointer event: first click sets
// P1, second sets P2, and a click on a complete line starts over with a
// fresh P1 (the old pair is discarded).
func (e *Editor) Click(x, y float64, rect DisplayRect) models.Point {
	pt := e.MapToCanvas(x, y, rect)
	e.SetPoint(pt)
	return pt
}

// SetPoint is Click for callers that already hold logical coordinates
// (flag-driven input on the CLI path).
func (e *Editor) SetPoint(pt models.Point) {
	pt.X = clamp(pt.X, 0, e.CanvasW-1)
	pt.Y = clamp(pt.Y, 0, e.CanvasH-1)

	switch {
	case e.p1 == nil:
		e.p1 = &pt
	case e.p2 == nil:
		e.p2 = &pt
	default:
		e.p1 = &pt
		e.p2 = nil
	}
}

// Reset returns to the empty state from anywhere.
func (e *Editor) Reset() {
	e.p1 = nil
	e.p2 = nil
	e.status = StatusIdle
	e.message = ""
}

func (e *Editor) State() EditorState {
	switch {
	case e.p1 == nil:
		return StateEmpty
	case e.p2 == nil:
		return StateOnePoint
	default:
		return StateComplete
	}
}

// Points returns copies of the designated endpoints; nil when unset.
func (e *Editor) Points() (p1, p2 *models.Point) {
	if e.p1 != nil {
		v := *e.p1
		p1 = &v
	}
	if e.p2 != nil {
		v := *e.p2
		p2 = &v
	}
	return p1, p2
}

// Line assembles the payload for the backend's line endpoint. It fails
// locally, before any network call, when the two points or either id
// are missing.
func (e *Editor) Line(lineID, cameraID string, active bool) (models.CountingLine, error) {
	if e.p1 == nil || e.p2 == nil {
		return models.CountingLine{}, ErrPointsRequired
	}
	if strings.TrimSpace(cameraID) == "" || strings.TrimSpace(lineID) == "" {
		return models.CountingLine{}, ErrMissingIDs
	}
	return models.CountingLine{
		LineID:   lineID,
		CameraID: cameraID,
		P1:       *e.p1,
		P2:       *e.p2,
		IsActive: active,
		CanvasW:  e.CanvasW,
		CanvasH:  e.CanvasH,
	}, nil
}

// Save validates and submits the line. Validation failures are reported
// immediately with no side effects; transport and backend failures leave
// the editor in StatusError with the failure message. There is no
// automatic retry.
func (e *Editor) Save(api LineSaver, lineID, cameraID string, active bool) (*models.CountingLine, error) {
	line, err := e.Line(lineID, cameraID, active)
	if err != nil {
		e.status = StatusError
		e.message = err.Error()
		return nil, err
	}

	e.status = StatusSaving
	e.message = ""

	saved, err := api.SaveLine(line)
	if err != nil {
		e.status = StatusError
		e.message = err.Error()
		return nil, err
	}

	e.status = StatusOK
	e.message = "saved line: " + saved.LineID
	return saved, nil
}

// Status reports the outcome of the last save attempt.
func (e *Editor) Status() (SaveStatus, string) {
	return e.status, e.message
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
