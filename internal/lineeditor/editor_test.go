package lineeditor_test

import (
	"errors"
	"image/color"
	"testing"

	"trafficwatch-cli/internal/lineeditor"
	"trafficwatch-cli/pkg/models"
)

// fakeSaver counts save requests and returns a scripted result.
type fakeSaver struct {
	calls  int
	got    models.CountingLine
	result *models.CountingLine
	err    error
}

func (f *fakeSaver) SaveLine(line models.CountingLine) (*models.CountingLine, error) {
	f.calls++
	f.got = line
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	saved := line
	return &saved, nil
}

func TestMapToCanvasScalesAndClamps(t *testing.T) {
	e := lineeditor.New(1280, 720)
	rect := lineeditor.DisplayRect{Left: 0, Top: 0, Width: 640, Height: 360}

	cases := []struct {
		name string
		x, y float64
		want models.Point
	}{
		{"center scales 2x", 320, 180, models.Point{X: 640, Y: 360}},
		{"origin", 0, 0, models.Point{X: 0, Y: 0}},
		{"beyond bottom-right clamps", 700, 400, models.Point{X: 1279, Y: 719}},
		{"negative clamps to origin", -5, -5, models.Point{X: 0, Y: 0}},
	}

	for _, tc := range cases {
		if got := e.MapToCanvas(tc.x, tc.y, rect); got != tc.want {
			t.Errorf("%s: (%v,%v) -> %+v, want %+v", tc.name, tc.x, tc.y, got, tc.want)
		}
	}
}

func TestMapToCanvasWithOffsetRect(t *testing.T) {
	e := lineeditor.New(1280, 720)
	rect := lineeditor.DisplayRect{Left: 100, Top: 50, Width: 640, Height: 360}

	if got := e.MapToCanvas(420, 230, rect); got != (models.Point{X: 640, Y: 360}) {
		t.Fatalf("offset rect mapping: got %+v", got)
	}
}

func TestClickCycle(t *testing.T) {
	e := lineeditor.New(1280, 720)
	rect := lineeditor.DisplayRect{Width: 1280, Height: 720}

	if e.State() != lineeditor.StateEmpty {
		t.Fatalf("expected empty state, got %v", e.State())
	}

	e.Click(100, 100, rect)
	if e.State() != lineeditor.StateOnePoint {
		t.Fatalf("expected one-point state, got %v", e.State())
	}

	e.Click(200, 200, rect)
	if e.State() != lineeditor.StateComplete {
		t.Fatalf("expected complete state, got %v", e.State())
	}

	// A click on a complete line starts over with a fresh P1, not empty.
	e.Click(300, 300, rect)
	if e.State() != lineeditor.StateOnePoint {
		t.Fatalf("expected one-point state after restart click, got %v", e.State())
	}
	p1, p2 := e.Points()
	if p1 == nil || p1.X != 300 || p1.Y != 300 {
		t.Fatalf("expected new P1 (300,300), got %+v", p1)
	}
	if p2 != nil {
		t.Fatalf("expected P2 cleared, got %+v", p2)
	}
}

func TestResetReturnsToEmpty(t *testing.T) {
	e := lineeditor.New(1280, 720)
	rect := lineeditor.DisplayRect{Width: 1280, Height: 720}

	e.Click(10, 10, rect)
	e.Click(20, 20, rect)
	e.Reset()

	if e.State() != lineeditor.StateEmpty {
		t.Fatalf("expected empty after reset, got %v", e.State())
	}
	if status, _ := e.Status(); status != lineeditor.StatusIdle {
		t.Fatalf("expected idle status after reset, got %v", status)
	}
}

func TestSaveWithOnePointFailsLocally(t *testing.T) {
	e := lineeditor.New(1280, 720)
	e.SetPoint(models.Point{X: 100, Y: 100})

	saver := &fakeSaver{}
	_, err := e.Save(saver, "line_001", "cam_001", true)

	if !errors.Is(err, lineeditor.ErrPointsRequired) {
		t.Fatalf("expected ErrPointsRequired, got %v", err)
	}
	if saver.calls != 0 {
		t.Fatalf("validation failure issued %d network requests", saver.calls)
	}
	if status, _ := e.Status(); status != lineeditor.StatusError {
		t.Fatalf("expected error status, got %v", status)
	}
}

func TestSaveWithoutIDsFailsLocally(t *testing.T) {
	e := lineeditor.New(1280, 720)
	e.SetPoint(models.Point{X: 100, Y: 100})
	e.SetPoint(models.Point{X: 200, Y: 200})

	saver := &fakeSaver{}
	if _, err := e.Save(saver, "line_001", "  ", true); !errors.Is(err, lineeditor.ErrMissingIDs) {
		t.Fatalf("expected ErrMissingIDs for blank camera id, got %v", err)
	}
	if _, err := e.Save(saver, "", "cam_001", true); !errors.Is(err, lineeditor.ErrMissingIDs) {
		t.Fatalf("expected ErrMissingIDs for blank line id, got %v", err)
	}
	if saver.calls != 0 {
		t.Fatalf("validation failures issued %d network requests", saver.calls)
	}
}

func TestSaveSubmitsClampedPayload(t *testing.T) {
	e := lineeditor.New(1280, 720)
	rect := lineeditor.DisplayRect{Width: 640, Height: 360}

	e.Click(320, 180, rect)
	e.Click(700, 400, rect) // clamps to (1279,719)

	saver := &fakeSaver{result: &models.CountingLine{LineID: "line_042"}}
	saved, err := e.Save(saver, "line_001", "cam_001", true)
	if err != nil {
		t.Fatal(err)
	}

	if saver.calls != 1 {
		t.Fatalf("expected exactly one save request, got %d", saver.calls)
	}
	if saver.got.P1 != (models.Point{X: 640, Y: 360}) {
		t.Fatalf("payload P1 = %+v", saver.got.P1)
	}
	if saver.got.P2 != (models.Point{X: 1279, Y: 719}) {
		t.Fatalf("payload P2 = %+v", saver.got.P2)
	}
	if saver.got.CanvasW != 1280 || saver.got.CanvasH != 720 {
		t.Fatalf("payload canvas = %dx%d", saver.got.CanvasW, saver.got.CanvasH)
	}
	if !saver.got.IsActive {
		t.Fatal("payload not marked active")
	}

	if saved.LineID != "line_042" {
		t.Fatalf("backend-confirmed id not surfaced: %q", saved.LineID)
	}
	status, msg := e.Status()
	if status != lineeditor.StatusOK {
		t.Fatalf("expected ok status, got %v", status)
	}
	if msg != "saved line: line_042" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestSaveBackendFailure(t *testing.T) {
	e := lineeditor.New(1280, 720)
	e.SetPoint(models.Point{X: 10, Y: 10})
	e.SetPoint(models.Point{X: 20, Y: 20})

	saver := &fakeSaver{err: errors.New("failed to save line: p1 outside canvas")}
	if _, err := e.Save(saver, "line_001", "cam_001", true); err == nil {
		t.Fatal("expected backend error")
	}

	status, msg := e.Status()
	if status != lineeditor.StatusError {
		t.Fatalf("expected error status, got %v", status)
	}
	if msg == "" {
		t.Fatal("expected failure message")
	}
	// No retry happened on its own.
	if saver.calls != 1 {
		t.Fatalf("expected one request, got %d", saver.calls)
	}
}

func TestRenderPreview(t *testing.T) {
	e := lineeditor.New(1280, 720)
	e.SetPoint(models.Point{X: 200, Y: 600})
	e.SetPoint(models.Point{X: 1000, Y: 600})

	img := e.RenderPreview(nil)

	if got := img.Bounds().Dx(); got != 1280 {
		t.Fatalf("preview width %d", got)
	}
	if got := img.Bounds().Dy(); got != 720 {
		t.Fatalf("preview height %d", got)
	}

	// Fallback fill where nothing was drawn.
	if r, g, b, _ := img.At(1279, 719).RGBA(); r>>8 != 0x11 || g>>8 != 0x18 || b>>8 != 0x27 {
		t.Fatalf("corner not fallback fill: %v", img.At(1279, 719))
	}

	// Endpoint circle fill, sampled off the line band that overpaints
	// the exact center.
	if c := img.At(200, 595).(color.RGBA); c.R != 0xfd || c.G != 0xe0 || c.B != 0x47 {
		t.Fatalf("P1 not endpoint fill: %v", c)
	}

	// Connecting line between the endpoints.
	if c := img.At(600, 600).(color.RGBA); c.R != 0xef || c.G != 0x44 || c.B != 0x44 {
		t.Fatalf("midpoint not line stroke: %v", c)
	}
}
