package session

import (
	"image"
	"log"
	"sync"

	"github.com/ivlev/screenstudio/internal/compositor"
	"github.com/ivlev/screenstudio/internal/editor"
	"github.com/ivlev/screenstudio/internal/export"
	"github.com/ivlev/screenstudio/internal/synth"
	"github.com/ivlev/screenstudio/internal/track"
)

// Session is the explicit editing context for one recording: it owns the
// persisted tracks, the block editor, the derived dense zoom track and the
// preview renderer. Nothing here is process-global; two sessions over two
// recordings do not share state.
type Session struct {
	mu sync.Mutex

	store    *track.Store
	duration float64
	fps      int

	edit     track.EditState
	cursor   []track.PointerSample
	editor   *editor.Editor
	dense    track.ZoomTrack
	settings track.ZoomSettings

	outW, outH int
	renderer   *compositor.Renderer
	smoother   *compositor.Smoother

	onChange func()
}

// Options configure a session open.
type Options struct {
	Dir       string  // recording directory
	Duration  float64 // source duration in seconds
	FPS       int     // output frame rate
	HasCamera bool    // a camera stream exists alongside the recording
	OutWidth  int     // preview/export canvas width
	OutHeight int     // preview/export canvas height

	// Settings override the default synthesis parameters. Zero-valued
	// fields fall back to the defaults.
	Settings track.ZoomSettings

	// OnChange fires after every committed edit, undo or redo. Optional.
	OnChange func()
}

// Open loads (or defaults) all track documents of a recording and builds
// the editing context. The dense zoom track cache is resynthesized when the
// persisted one does not match the current windows.
func Open(opts Options) *Session {
	store := track.NewStore(opts.Dir)
	fps := opts.FPS
	if fps <= 0 {
		fps = 30
	}

	edit := store.LoadEditState()
	clip := store.LoadClipTrack(opts.Duration)
	camera := store.LoadCameraTrack(opts.Duration, opts.HasCamera)
	windows := store.LoadZoomWindows()
	cursor := store.LoadCursorTrack()

	s := &Session{
		store:    store,
		duration: opts.Duration,
		fps:      fps,
		edit:     edit,
		cursor:   cursor,
		editor:   editor.New(opts.Duration, editor.DefaultGrid(), clip, windows, camera),
		settings: mergeSettings(opts.Settings),
		outW:     opts.OutWidth,
		outH:     opts.OutHeight,
		smoother: compositor.NewSmoother(),
		onChange: opts.OnChange,
	}

	// The dense track is a derived cache and a crash between document
	// writes can leave it out of step with the windows, so it is always
	// rebuilt on open; the persisted copy is only consulted to flag the
	// stale file (it is overwritten on the next commit).
	dense := s.synthesize(windows)
	if cached := store.LoadZoomTrack(); len(cached.Frames) > 0 && !sameZoomTracks(cached, dense) {
		log.Printf("[!] %s: stale dense zoom cache, rebuilt from windows", track.ZoomTrackFile)
	}
	s.dense = dense
	return s
}

func sameZoomTracks(a, b track.ZoomTrack) bool {
	if a.FPS != b.FPS || len(a.Frames) != len(b.Frames) {
		return false
	}
	for i := range a.Frames {
		if a.Frames[i] != b.Frames[i] {
			return false
		}
	}
	return true
}

// Editor exposes the block editor for timeline gestures. Finish every
// gesture with Commit (or the editor's EndGesture followed by Commit) so
// the derived track and the persisted documents catch up.
func (s *Session) Editor() *editor.Editor {
	return s.editor
}

// EditState returns the current layout parameters.
func (s *Session) EditState() track.EditState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edit
}

// SetEditState replaces the layout parameters, rebuilds the preview
// renderer and persists asynchronously.
func (s *Session) SetEditState(es track.EditState) {
	s.mu.Lock()
	s.edit = es
	s.renderer = nil
	s.mu.Unlock()

	go func() {
		if err := s.store.SaveEditState(es); err != nil {
			log.Printf("[!] Edit state not saved: %v", err)
		}
	}()
	s.notify()
}

// Duration returns the source duration in seconds.
func (s *Session) Duration() float64 { return s.duration }

// ZoomTrack returns the current dense pan/zoom track.
func (s *Session) ZoomTrack() track.ZoomTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dense
}

// Commit finalizes the pending editor state: it pushes an undo step,
// resynthesizes the dense zoom track and persists all track documents in
// the background. Saves that fail are logged and retried on the next
// commit; editing never blocks on disk.
func (s *Session) Commit() {
	if !s.editor.Commit() {
		return
	}
	s.refresh()
}

// Undo reverts the last committed edit. The dense track and persisted
// documents follow the restored state.
func (s *Session) Undo() bool {
	if !s.editor.Undo() {
		return false
	}
	s.refresh()
	return true
}

// Redo re-applies an undone edit.
func (s *Session) Redo() bool {
	if !s.editor.Redo() {
		return false
	}
	s.refresh()
	return true
}

// Scrub renders the single composited frame at time t from the committed
// tracks. The smoothing accumulator is reset first, so a scrub is a cold
// deterministic render of exactly that instant.
func (s *Session) Scrub(t float64, src, cam image.Image) *image.RGBA {
	s.mu.Lock()
	r := s.rendererLocked()
	zf := s.dense.SampleAt(t)
	_, _, camera := s.editor.Tracks()
	s.mu.Unlock()

	s.smoother.Reset()
	sample := s.smoother.Next(compositor.Sample{
		AXN:  float64(zf.AXN),
		AYN:  float64(zf.AYN),
		Zoom: float64(zf.Zoom),
	})
	return r.Compose(src, cam, camera.VisibleAt(t), sample)
}

// Release returns a frame obtained from Scrub to the buffer pool.
func (s *Session) Release(img *image.RGBA) {
	s.mu.Lock()
	r := s.rendererLocked()
	s.mu.Unlock()
	r.Release(img)
}

// PrepareExport synchronously resynthesizes and persists everything, then
// returns the frozen track state an export run consumes. Unlike Commit,
// save failures here are returned: exporting stale documents is worse than
// a delayed start.
func (s *Session) PrepareExport() (track.Interval, track.ZoomTrack, track.CameraTrack, track.EditState, error) {
	clip, windows, camera := s.editor.Tracks()
	dense := s.synthesize(windows)

	s.mu.Lock()
	s.dense = dense
	edit := s.edit
	s.mu.Unlock()

	if err := s.persist(clip, windows, camera, dense); err != nil {
		return track.Interval{}, track.ZoomTrack{}, track.CameraTrack{}, track.EditState{}, err
	}
	return clip.Active(s.duration), dense, camera, edit, nil
}

// ExportRequest assembles the export request for the given paths and
// profile, freezing the current session state.
func (s *Session) ExportRequest(inputPath, cameraPath, outputPath string, profile export.Profile) (export.Request, error) {
	clip, dense, camera, edit, err := s.PrepareExport()
	if err != nil {
		return export.Request{}, err
	}
	return export.Request{
		InputPath:  inputPath,
		CameraPath: cameraPath,
		OutputPath: outputPath,
		Edit:       edit,
		Clip:       clip,
		Zoom:       dense,
		Camera:     camera,
		Profile:    profile,
	}, nil
}

// refresh rebuilds the derived zoom track from the committed windows and
// kicks off a background persist of all documents.
func (s *Session) refresh() {
	clip, windows, camera := s.editor.Tracks()
	dense := s.synthesize(windows)

	s.mu.Lock()
	s.dense = dense
	s.mu.Unlock()

	go func() {
		if err := s.persist(clip, windows, camera, dense); err != nil {
			log.Printf("[!] Track documents not saved: %v", err)
		}
	}()
	s.notify()
}

func (s *Session) persist(clip track.ClipTrack, windows []track.ZoomWindow, camera track.CameraTrack, dense track.ZoomTrack) error {
	if err := s.store.SaveClipTrack(clip); err != nil {
		return err
	}
	if err := s.store.SaveZoomWindows(windows); err != nil {
		return err
	}
	if err := s.store.SaveCameraTrack(camera); err != nil {
		return err
	}
	return s.store.SaveZoomTrack(dense)
}

func (s *Session) synthesize(windows []track.ZoomWindow) track.ZoomTrack {
	return synth.Synthesize(windows, s.cursor, s.duration, s.fps, s.settings)
}

func mergeSettings(override track.ZoomSettings) track.ZoomSettings {
	settings := track.DefaultZoomSettings()
	if override.MaxZoom > 1 {
		settings.MaxZoom = override.MaxZoom
	}
	if override.RampInS > 0 {
		settings.RampInS = override.RampInS
	}
	if override.RampOutS > 0 {
		settings.RampOutS = override.RampOutS
	}
	if override.SampleMS > 0 {
		settings.SampleMS = override.SampleMS
	}
	if override.FollowThresholdPx > 0 {
		settings.FollowThresholdPx = override.FollowThresholdPx
	}
	return settings
}

// rendererLocked lazily (re)builds the preview renderer; callers hold mu.
func (s *Session) rendererLocked() *compositor.Renderer {
	if s.renderer == nil {
		s.renderer = compositor.New(s.outW, s.outH, s.edit, s.settings.MaxZoom)
	}
	return s.renderer
}

func (s *Session) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
