package track

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Persisted document names inside a recording directory.
const (
	ZoomTrackFile   = "zoom_track.json"
	ZoomWindowsFile = "zoom_windows.json"
	ClipTrackFile   = "clip_track.json"
	CameraTrackFile = "camera_track.json"
	CursorTrackFile = "cursor_track"
	EditStateFile   = "edit_state.json"
)

// Store reads and writes the per-recording track documents. Loads fall back
// to defaults, writes are idempotent overwrites. Editing is local-first: a
// failed save is logged by the caller and never blocks the session.
type Store struct {
	Dir string
}

// NewStore returns a store rooted at a recording directory.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

type zoomWindowsDoc struct {
	SchemaVersion int          `json:"schema_version"`
	Windows       []ZoomWindow `json:"windows"`
}

// loadDoc unmarshals one JSON document into dst. It distinguishes the two
// fallback cases the caller treats identically but should log differently:
// file absent (normal for a fresh recording) and file corrupt.
func (s *Store) loadDoc(name string, dst interface{}) (found bool) {
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[!] %s: read failed, using defaults: %v", name, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		log.Printf("[!] %s: corrupt document, using defaults: %v", name, err)
		return false
	}
	return true
}

func (s *Store) saveDoc(name string, doc interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// LoadEditState returns the persisted edit state or the defaults.
func (s *Store) LoadEditState() EditState {
	es := DefaultEditState()
	if s.loadDoc(EditStateFile, &es) && es.SchemaVersion == 0 {
		// Pre-versioning document; keep the values, stamp the version.
		es.SchemaVersion = SchemaVersion
	}
	return es
}

// LoadClipTrack returns the persisted trim window or a full-duration one.
func (s *Store) LoadClipTrack(duration float64) ClipTrack {
	ct := ClipTrack{SchemaVersion: SchemaVersion}
	if !s.loadDoc(ClipTrackFile, &ct) || len(ct.Segments) == 0 {
		ct.Segments = []Interval{{Start: 0, End: duration}}
	}
	return ct
}

// LoadCameraTrack returns the persisted camera visibility intervals. When
// absent and a camera source exists, the camera is visible for the full
// duration; without a camera the track is empty.
func (s *Store) LoadCameraTrack(duration float64, hasCamera bool) CameraTrack {
	ct := CameraTrack{SchemaVersion: SchemaVersion}
	if s.loadDoc(CameraTrackFile, &ct) {
		return ct
	}
	if hasCamera {
		ct.Segments = []CameraSegment{{Interval: Interval{Start: 0, End: duration}, Visible: true}}
	}
	return ct
}

// LoadZoomWindows returns the editable sparse zoom windows.
func (s *Store) LoadZoomWindows() []ZoomWindow {
	var doc zoomWindowsDoc
	if s.loadDoc(ZoomWindowsFile, &doc) {
		return doc.Windows
	}
	return nil
}

// LoadZoomTrack returns the dense zoom track cache, or an identity track.
func (s *Store) LoadZoomTrack() ZoomTrack {
	zt := ZoomTrack{SchemaVersion: SchemaVersion, Settings: DefaultZoomSettings()}
	s.loadDoc(ZoomTrackFile, &zt)
	return zt
}

// SaveEditState persists the edit state.
func (s *Store) SaveEditState(es EditState) error {
	es.SchemaVersion = SchemaVersion
	return s.saveDoc(EditStateFile, es)
}

// SaveClipTrack persists the trim window.
func (s *Store) SaveClipTrack(ct ClipTrack) error {
	ct.SchemaVersion = SchemaVersion
	return s.saveDoc(ClipTrackFile, ct)
}

// SaveCameraTrack persists the camera visibility intervals.
func (s *Store) SaveCameraTrack(ct CameraTrack) error {
	ct.SchemaVersion = SchemaVersion
	return s.saveDoc(CameraTrackFile, ct)
}

// SaveZoomWindows persists the editable sparse zoom windows.
func (s *Store) SaveZoomWindows(windows []ZoomWindow) error {
	return s.saveDoc(ZoomWindowsFile, zoomWindowsDoc{SchemaVersion: SchemaVersion, Windows: windows})
}

// SaveZoomTrack persists the dense zoom track cache.
func (s *Store) SaveZoomTrack(zt ZoomTrack) error {
	zt.SchemaVersion = SchemaVersion
	return s.saveDoc(ZoomTrackFile, zt)
}
