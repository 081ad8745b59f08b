package editor

import (
	"math"
	"testing"

	"github.com/ivlev/screenstudio/internal/track"
)

func newTestEditor(duration float64, zooms ...track.ZoomWindow) *Editor {
	clip := track.ClipTrack{
		SchemaVersion: track.SchemaVersion,
		Segments:      []track.Interval{{Start: 0, End: duration}},
	}
	camera := track.CameraTrack{
		SchemaVersion: track.SchemaVersion,
		Segments:      []track.CameraSegment{{Interval: track.Interval{Start: 0, End: duration}, Visible: true}},
	}
	return New(duration, DefaultGrid(), clip, zooms, camera)
}

func zoomWindow(e *Editor, index int) track.ZoomWindow {
	_, zooms, _ := e.Tracks()
	return zooms[index]
}

func TestBlocksMirrorAllTracks(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4}, track.ZoomWindow{Start: 6, End: 8})

	blocks := e.Blocks()
	if len(blocks) != 4 {
		t.Fatalf("expected 1 clip + 2 zoom + 1 camera blocks, got %d", len(blocks))
	}

	byKind := map[Kind][]Block{}
	for _, b := range blocks {
		byKind[b.Kind] = append(byKind[b.Kind], b)
	}
	if clip := byKind[KindClip]; len(clip) != 1 || clip[0].Start != 0 || clip[0].End != 10 {
		t.Errorf("clip block mismatch: %+v", clip)
	}
	if zooms := byKind[KindZoom]; len(zooms) != 2 || zooms[1].Start != 6 || zooms[1].Index != 1 {
		t.Errorf("zoom blocks mismatch: %+v", zooms)
	}
	if cam := byKind[KindCamera]; len(cam) != 1 || cam[0].End != 10 {
		t.Errorf("camera block mismatch: %+v", cam)
	}

	// Blocks reflect gestures immediately, before any commit.
	e.Move(KindZoom, 0, 1)
	for _, b := range e.Blocks() {
		if b.Kind == KindZoom && b.Index == 0 && b.Start != 3 {
			t.Errorf("blocks out of sync with gesture: %+v", b)
		}
	}
}

func TestMoveClampsToTimeline(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4})

	e.Move(KindZoom, 0, -5)
	if w := zoomWindow(e, 0); w.Start != 0 || w.End != 2 {
		t.Errorf("move left past zero: expected [0, 2], got [%v, %v]", w.Start, w.End)
	}

	e.Move(KindZoom, 0, 100)
	if w := zoomWindow(e, 0); w.Start != 8 || w.End != 10 {
		t.Errorf("move right past duration: expected [8, 10], got [%v, %v]", w.Start, w.End)
	}
}

func TestMoveStopsAtNeighbor(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 1, End: 2}, track.ZoomWindow{Start: 5, End: 6})

	e.Move(KindZoom, 0, 10)
	if w := zoomWindow(e, 0); w.End != 5 {
		t.Errorf("expected block to stop at neighbor start 5, got end %v", w.End)
	}
	if w := zoomWindow(e, 0); w.End-w.Start != 1 {
		t.Errorf("move must preserve length, got %v", w.End-w.Start)
	}
}

func TestResizeStopsAtNeighbor(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4}, track.ZoomWindow{Start: 5, End: 6})

	// Dragging the right edge of the first block into the second clamps
	// at the neighbor's start.
	e.ResizeRight(KindZoom, 0, 5.5)
	if w := zoomWindow(e, 0); w.End != 5 {
		t.Errorf("resize right into neighbor: expected end 5, got %v", w.End)
	}
	if w := zoomWindow(e, 0); w.Start != 2 {
		t.Errorf("resize right moved the start: %v", w.Start)
	}

	// And the left edge of the second block clamps at the first's end.
	e.ResizeLeft(KindZoom, 1, 3.5)
	if w := zoomWindow(e, 1); w.Start != 5 {
		t.Errorf("resize left into neighbor: expected start 5, got %v", w.Start)
	}

	_, zooms, _ := e.Tracks()
	for i := 1; i < len(zooms); i++ {
		if zooms[i].Start < zooms[i-1].End {
			t.Errorf("resize produced overlapping blocks: %+v", zooms)
		}
	}
}

func TestResizeEnforcesMinimumLength(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4})

	// Dragging the right edge through the left one flips nothing; the
	// minimum length is preserved by pushing the opposite endpoint.
	e.ResizeRight(KindZoom, 0, 1.0)
	w := zoomWindow(e, 0)
	if w.End-w.Start < MinBlockLength-1e-9 {
		t.Errorf("resize produced %v-long block, minimum is %v", w.End-w.Start, MinBlockLength)
	}
	if w.Start > w.End {
		t.Errorf("inverted block [%v, %v]", w.Start, w.End)
	}

	e.ResizeLeft(KindZoom, 0, 9.9)
	w = zoomWindow(e, 0)
	if w.End-w.Start < MinBlockLength-1e-9 {
		t.Errorf("resize left produced %v-long block", w.End-w.Start)
	}
	if w.End > 10 {
		t.Errorf("block escaped the timeline: end %v", w.End)
	}
}

func TestInvalidGestureIgnored(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4})
	before := zoomWindow(e, 0)

	e.Move(KindZoom, 0, math.NaN())
	e.ResizeLeft(KindZoom, 0, math.Inf(1))
	e.ResizeRight(KindZoom, 0, math.Inf(-1))
	e.Move(KindZoom, 99, 1)

	if got := zoomWindow(e, 0); got != before {
		t.Errorf("invalid gestures mutated the block: %+v -> %+v", before, got)
	}
}

func TestAddZoomWindowRejectsOverlap(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 3, End: 5})

	if idx := e.AddZoomWindow(4, 6); idx != -1 {
		t.Errorf("overlapping add accepted at index %d", idx)
	}
	if idx := e.AddZoomWindow(5, 7); idx == -1 {
		t.Error("touching windows share an endpoint and must be accepted")
	}
	if idx := e.AddZoomWindow(0, 0.1); idx != -1 {
		t.Error("window below minimum length accepted")
	}
	if idx := e.AddZoomWindow(0, 1); idx != 0 {
		t.Errorf("expected sorted insert at index 0, got %d", idx)
	}
}

func TestSnapOnGestureEnd(t *testing.T) {
	// Default grid: 0.5s steps at 60 px/s with 4px tolerance, so anything
	// within ~0.066s of a grid line snaps.
	e := newTestEditor(20, track.ZoomWindow{Start: 2, End: 4})

	e.Move(KindZoom, 0, 1.03)
	e.EndGesture()
	if w := zoomWindow(e, 0); w.Start != 3.0 || w.End != 5.0 {
		t.Errorf("expected snap to [3, 5], got [%v, %v]", w.Start, w.End)
	}

	// Beyond tolerance the raw position is kept.
	e.Move(KindZoom, 0, 0.2)
	e.EndGesture()
	if w := zoomWindow(e, 0); math.Abs(w.Start-3.2) > 1e-9 {
		t.Errorf("expected unsnapped start 3.2, got %v", w.Start)
	}
}

func TestUndoRedoRestoresAllTracks(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4})

	e.Move(KindZoom, 0, 1)
	e.SetCameraVisible(0, false)
	e.CommitGesture()

	e.ResizeRight(KindClip, 0, 8)
	e.CommitGesture()

	_, zooms, camera := e.Tracks()
	if zooms[0].Start != 3 || camera.Segments[0].Visible {
		t.Fatal("precondition: edits not applied")
	}

	if !e.Undo() {
		t.Fatal("undo reported no step")
	}
	clip, zooms, _ := e.Tracks()
	if clip.Segments[0].End != 10 {
		t.Errorf("undo did not restore clip end, got %v", clip.Segments[0].End)
	}
	if zooms[0].Start != 3 {
		t.Errorf("undo went too far: zoom start %v", zooms[0].Start)
	}

	if !e.Undo() {
		t.Fatal("second undo reported no step")
	}
	_, zooms, camera = e.Tracks()
	if zooms[0].Start != 2 || !camera.Segments[0].Visible {
		t.Error("second undo did not restore the initial state")
	}
	if e.Undo() {
		t.Error("undo past the initial state")
	}

	if !e.Redo() || !e.Redo() {
		t.Fatal("redo steps missing")
	}
	clip, zooms, camera = e.Tracks()
	if clip.Segments[0].End != 8 || zooms[0].Start != 3 || camera.Segments[0].Visible {
		t.Error("redo did not reach the final state")
	}
	if e.Redo() {
		t.Error("redo past the last state")
	}
}

func TestCommitCoalescesNoOps(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4})

	if e.Commit() {
		t.Error("commit of an unchanged state pushed a history entry")
	}
	e.Move(KindZoom, 0, 1)
	if !e.Commit() {
		t.Error("commit of a real edit reported no change")
	}
	// Move there and back between commits: still a no-op.
	e.Move(KindZoom, 0, 1)
	e.Move(KindZoom, 0, -1)
	if e.Commit() {
		t.Error("round-trip edit pushed a history entry")
	}
}

func TestEditDiscardsRedoTail(t *testing.T) {
	e := newTestEditor(10, track.ZoomWindow{Start: 2, End: 4})

	e.Move(KindZoom, 0, 1)
	e.CommitGesture()
	e.Undo()

	e.Move(KindZoom, 0, 2)
	e.CommitGesture()

	if e.Redo() {
		t.Error("redo succeeded after a diverging edit")
	}
	if w := zoomWindow(e, 0); w.Start != 4 {
		t.Errorf("expected diverged state start 4, got %v", w.Start)
	}
}
