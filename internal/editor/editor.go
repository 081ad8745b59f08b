package editor

import (
	"math"
	"sort"

	"github.com/ivlev/screenstudio/internal/track"
)

// Kind identifies which track a timeline block belongs to.
type Kind int

const (
	KindClip Kind = iota
	KindZoom
	KindCamera
)

// MinBlockLength is the shortest a block may become through any gesture.
const MinBlockLength = 0.2

// Grid describes the snap geometry of the timeline view. Snapping is a
// post-gesture correction: endpoints within TolerancePx of a grid line are
// pulled onto it when the gesture ends.
type Grid struct {
	StepS       float64 // grid spacing in seconds
	PxPerSecond float64 // timeline scale
	TolerancePx float64 // snap radius in pixels
}

// DefaultGrid matches the timeline view defaults.
func DefaultGrid() Grid {
	return Grid{StepS: 0.5, PxPerSecond: 60, TolerancePx: 4}
}

// Block is the on-screen representation of one interval of a track.
type Block struct {
	Kind  Kind
	Index int
	Start float64
	End   float64
}

// Editor converts between the sparse tracks and draggable timeline blocks,
// enforcing the geometric invariants (bounds, minimum length, zoom-window
// non-overlap) and keeping an undo/redo history of committed states.
type Editor struct {
	duration float64
	grid     Grid

	clip   track.ClipTrack
	zooms  []track.ZoomWindow
	camera track.CameraTrack

	lastGesture *Block

	history []snapshot
	cursor  int
}

type snapshot struct {
	clip   track.ClipTrack
	zooms  []track.ZoomWindow
	camera track.CameraTrack
}

// New builds an editor over the current tracks and seeds the history with
// the initial state.
func New(duration float64, grid Grid, clip track.ClipTrack, zooms []track.ZoomWindow, camera track.CameraTrack) *Editor {
	e := &Editor{
		duration: duration,
		grid:     grid,
		clip:     clip,
		zooms:    append([]track.ZoomWindow(nil), zooms...),
		camera:   camera,
	}
	sortWindows(e.zooms)
	e.history = []snapshot{e.snapshot()}
	e.cursor = 0
	return e
}

// Tracks returns the current (possibly uncommitted) track state.
func (e *Editor) Tracks() (track.ClipTrack, []track.ZoomWindow, track.CameraTrack) {
	s := e.snapshot()
	return s.clip, s.zooms, s.camera
}

// Blocks returns the timeline blocks for direct manipulation.
func (e *Editor) Blocks() []Block {
	blocks := make([]Block, 0, 1+len(e.zooms)+len(e.camera.Segments))
	for i, seg := range e.clip.Segments {
		blocks = append(blocks, Block{Kind: KindClip, Index: i, Start: seg.Start, End: seg.End})
	}
	for i, w := range e.zooms {
		blocks = append(blocks, Block{Kind: KindZoom, Index: i, Start: w.Start, End: w.End})
	}
	for i, seg := range e.camera.Segments {
		blocks = append(blocks, Block{Kind: KindCamera, Index: i, Start: seg.Start, End: seg.End})
	}
	return blocks
}

// Move shifts both endpoints of a block by delta seconds, clamped so the
// block stays inside [0, duration] and, for zoom blocks, clear of its
// neighbors. Invalid gesture input is ignored.
func (e *Editor) Move(kind Kind, index int, delta float64) {
	if !validGesture(delta) {
		return
	}
	start, end, ok := e.endpoints(kind, index)
	if !ok {
		return
	}
	length := end - start
	start += delta
	if start < 0 {
		start = 0
	}
	if start+length > e.duration {
		start = e.duration - length
	}
	if start < 0 {
		start = 0
	}
	end = start + length

	if kind == KindZoom {
		lo, hi := e.zoomBounds(index)
		if start < lo {
			start, end = lo, lo+length
		}
		if end > hi {
			start, end = hi-length, hi
		}
	}
	e.apply(kind, index, start, end)
}

// ResizeLeft moves only the start endpoint. The minimum block length is
// enforced by pushing the end endpoint when needed.
func (e *Editor) ResizeLeft(kind Kind, index int, newStart float64) {
	if !validGesture(newStart) {
		return
	}
	_, end, ok := e.endpoints(kind, index)
	if !ok {
		return
	}
	if newStart < 0 {
		newStart = 0
	}
	if kind == KindZoom {
		if lo, _ := e.zoomBounds(index); newStart < lo {
			newStart = lo
		}
	}
	if end-newStart < MinBlockLength {
		end = newStart + MinBlockLength
		if end > e.duration {
			end = e.duration
			newStart = end - MinBlockLength
		}
		if kind == KindZoom {
			if _, hi := e.zoomBounds(index); end > hi {
				end = hi
				newStart = end - MinBlockLength
			}
		}
	}
	e.apply(kind, index, newStart, end)
}

// ResizeRight moves only the end endpoint, pushing the start when the
// minimum length demands it.
func (e *Editor) ResizeRight(kind Kind, index int, newEnd float64) {
	if !validGesture(newEnd) {
		return
	}
	start, _, ok := e.endpoints(kind, index)
	if !ok {
		return
	}
	if newEnd > e.duration {
		newEnd = e.duration
	}
	if kind == KindZoom {
		if _, hi := e.zoomBounds(index); newEnd > hi {
			newEnd = hi
		}
	}
	if newEnd-start < MinBlockLength {
		start = newEnd - MinBlockLength
		if start < 0 {
			start = 0
			newEnd = MinBlockLength
		}
		if kind == KindZoom {
			if lo, _ := e.zoomBounds(index); start < lo {
				start = lo
				newEnd = start + MinBlockLength
			}
		}
	}
	e.apply(kind, index, start, newEnd)
}

// EndGesture snaps the gestured block's endpoints to the grid and commits
// the result to history. It is a no-op when no gesture happened.
func (e *Editor) EndGesture() {
	if e.lastGesture == nil {
		return
	}
	b := *e.lastGesture
	e.lastGesture = nil

	start, end, ok := e.endpoints(b.Kind, b.Index)
	if !ok {
		return
	}
	start = e.snap(start)
	end = e.snap(end)
	if end-start < MinBlockLength {
		// Snapping must not break the length invariant; keep the raw geometry.
		start, end, _ = e.endpoints(b.Kind, b.Index)
	}
	if b.Kind == KindZoom {
		lo, hi := e.zoomBounds(b.Index)
		if start < lo || end > hi {
			start, end, _ = e.endpoints(b.Kind, b.Index)
		}
	}
	e.apply(b.Kind, b.Index, start, end)
	e.lastGesture = nil
	e.Commit()
}

// CommitGesture commits the current geometry without grid snapping, used
// for programmatic edits that bypass the drag gesture.
func (e *Editor) CommitGesture() {
	e.lastGesture = nil
	e.Commit()
}

// AddZoomWindow inserts a new zoom block if the range is free, returning
// its index or -1 when it would overlap an existing block.
func (e *Editor) AddZoomWindow(start, end float64) int {
	if !validGesture(start) || !validGesture(end) || end-start < MinBlockLength {
		return -1
	}
	if start < 0 || end > e.duration {
		return -1
	}
	for _, w := range e.zooms {
		if start < w.End && end > w.Start {
			return -1
		}
	}
	e.zooms = append(e.zooms, track.ZoomWindow{Start: start, End: end})
	sortWindows(e.zooms)
	for i, w := range e.zooms {
		if w.Start == start && w.End == end {
			return i
		}
	}
	return -1
}

// RemoveZoomWindow deletes a zoom block.
func (e *Editor) RemoveZoomWindow(index int) {
	if index < 0 || index >= len(e.zooms) {
		return
	}
	e.zooms = append(e.zooms[:index], e.zooms[index+1:]...)
}

// SetCameraVisible toggles the visibility tag of a camera segment.
func (e *Editor) SetCameraVisible(index int, visible bool) {
	if index < 0 || index >= len(e.camera.Segments) {
		return
	}
	e.camera.Segments[index].Visible = visible
}

// Commit pushes the current state onto the history unless it equals the
// state at the cursor (no-op edits are coalesced). Any redo tail is
// discarded.
func (e *Editor) Commit() bool {
	cur := e.snapshot()
	if snapshotsEqual(cur, e.history[e.cursor]) {
		return false
	}
	e.history = append(e.history[:e.cursor+1], cur)
	e.cursor = len(e.history) - 1
	return true
}

// Undo steps the history cursor back and restores all three tracks
// atomically. It reports whether a step was taken.
func (e *Editor) Undo() bool {
	if e.cursor == 0 {
		return false
	}
	e.cursor--
	e.restore(e.history[e.cursor])
	return true
}

// Redo steps the history cursor forward.
func (e *Editor) Redo() bool {
	if e.cursor >= len(e.history)-1 {
		return false
	}
	e.cursor++
	e.restore(e.history[e.cursor])
	return true
}

func (e *Editor) snapshot() snapshot {
	return snapshot{
		clip: track.ClipTrack{
			SchemaVersion: e.clip.SchemaVersion,
			Segments:      append([]track.Interval(nil), e.clip.Segments...),
		},
		zooms: append([]track.ZoomWindow(nil), e.zooms...),
		camera: track.CameraTrack{
			SchemaVersion: e.camera.SchemaVersion,
			Segments:      append([]track.CameraSegment(nil), e.camera.Segments...),
		},
	}
}

func (e *Editor) restore(s snapshot) {
	e.clip = track.ClipTrack{SchemaVersion: s.clip.SchemaVersion, Segments: append([]track.Interval(nil), s.clip.Segments...)}
	e.zooms = append([]track.ZoomWindow(nil), s.zooms...)
	e.camera = track.CameraTrack{SchemaVersion: s.camera.SchemaVersion, Segments: append([]track.CameraSegment(nil), s.camera.Segments...)}
	e.lastGesture = nil
}

func snapshotsEqual(a, b snapshot) bool {
	if len(a.clip.Segments) != len(b.clip.Segments) ||
		len(a.zooms) != len(b.zooms) ||
		len(a.camera.Segments) != len(b.camera.Segments) {
		return false
	}
	for i := range a.clip.Segments {
		if a.clip.Segments[i] != b.clip.Segments[i] {
			return false
		}
	}
	for i := range a.zooms {
		if a.zooms[i] != b.zooms[i] {
			return false
		}
	}
	for i := range a.camera.Segments {
		if a.camera.Segments[i] != b.camera.Segments[i] {
			return false
		}
	}
	return true
}

func (e *Editor) endpoints(kind Kind, index int) (start, end float64, ok bool) {
	switch kind {
	case KindClip:
		if index < 0 || index >= len(e.clip.Segments) {
			return 0, 0, false
		}
		seg := e.clip.Segments[index]
		return seg.Start, seg.End, true
	case KindZoom:
		if index < 0 || index >= len(e.zooms) {
			return 0, 0, false
		}
		w := e.zooms[index]
		return w.Start, w.End, true
	case KindCamera:
		if index < 0 || index >= len(e.camera.Segments) {
			return 0, 0, false
		}
		seg := e.camera.Segments[index]
		return seg.Start, seg.End, true
	}
	return 0, 0, false
}

func (e *Editor) apply(kind Kind, index int, start, end float64) {
	switch kind {
	case KindClip:
		e.clip.Segments[index] = track.Interval{Start: start, End: end}
	case KindZoom:
		e.zooms[index] = track.ZoomWindow{Start: start, End: end}
	case KindCamera:
		e.camera.Segments[index].Interval = track.Interval{Start: start, End: end}
	}
	e.lastGesture = &Block{Kind: kind, Index: index, Start: start, End: end}
}

// zoomBounds returns the allowed range for a zoom block: the gap between
// its neighbors. Gestures that would overlap a neighbor are clamped to
// these boundaries.
func (e *Editor) zoomBounds(index int) (lo, hi float64) {
	lo, hi = 0, e.duration
	for i, w := range e.zooms {
		if i == index {
			continue
		}
		if w.End <= e.zooms[index].Start+1e-9 && w.End > lo {
			lo = w.End
		}
		if w.Start >= e.zooms[index].End-1e-9 && w.Start < hi {
			hi = w.Start
		}
	}
	return lo, hi
}

// snap pulls a time onto the nearest grid line when it lies within the
// pixel tolerance; otherwise it is returned unchanged.
func (e *Editor) snap(t float64) float64 {
	if e.grid.StepS <= 0 || e.grid.PxPerSecond <= 0 {
		return t
	}
	nearest := math.Round(t/e.grid.StepS) * e.grid.StepS
	if math.Abs(t-nearest)*e.grid.PxPerSecond <= e.grid.TolerancePx {
		return nearest
	}
	return t
}

func validGesture(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func sortWindows(ws []track.ZoomWindow) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].Start < ws[j].Start })
}
