package export

import (
	"bytes"
	"context"
	"image"
	"strings"
	"testing"

	"github.com/ivlev/screenstudio/internal/compositor"
	"github.com/ivlev/screenstudio/internal/source"
	"github.com/ivlev/screenstudio/internal/track"
)

func testRequest(profile Profile) Request {
	return Request{
		InputPath:  "/rec/recording.mp4",
		OutputPath: "/rec/out.mp4",
		Edit:       track.DefaultEditState(),
		Clip:       track.Interval{Start: 1.5, End: 7.5},
		Profile:    profile,
	}
}

func findArg(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

func TestBuildFFmpegArgs(t *testing.T) {
	e := NewExporter(NewCoordinator(nil))
	req := testRequest(Profile{Format: "mp4", Width: 1920, Height: 1080, FPS: 30, BitrateKbps: 6000})
	args := e.buildFFmpegArgs(1920, 1080, 30, req.Clip, req)

	if v, _ := findArg(args, "-f"); v != "rawvideo" {
		t.Errorf("expected rawvideo input, got %q", v)
	}
	if v, _ := findArg(args, "-video_size"); v != "1920x1080" {
		t.Errorf("wrong video size %q", v)
	}
	if v, _ := findArg(args, "-b:v"); v != "6000k" {
		t.Errorf("wrong bitrate %q", v)
	}
	if v, _ := findArg(args, "-progress"); v != "pipe:1" {
		t.Error("progress reporting not wired to stdout")
	}
	// Audio is trimmed from the original recording so it matches the clip.
	if v, _ := findArg(args, "-ss"); v == "" {
		t.Error("audio trim offset missing")
	}
	if v, _ := findArg(args, "-map"); v != "0:v:0" {
		t.Errorf("video stream mapping wrong: %q", v)
	}
	if args[len(args)-1] != "/rec/out.mp4" {
		t.Errorf("output path must come last, got %q", args[len(args)-1])
	}
}

func TestBuildFFmpegArgsHEVC(t *testing.T) {
	e := NewExporter(NewCoordinator(nil))
	req := testRequest(Profile{Format: "mp4_hevc", Width: 1280, Height: 720, FPS: 30})
	args := e.buildFFmpegArgs(1280, 720, 30, req.Clip, req)

	codec, ok := findArg(args, "-c:v")
	if !ok {
		t.Fatal("no video codec argument")
	}
	if !strings.Contains(codec, "hevc") && codec != "libx265" {
		t.Errorf("hevc profile selected h264 encoder %q", codec)
	}

	// Zero bitrate falls back to the default profile's.
	if v, _ := findArg(args, "-b:v"); v == "0k" || v == "" {
		t.Errorf("missing bitrate fallback, got %q", v)
	}
}

// indexedSource reuses one frame buffer like the real decoder, painting it
// with a per-frame color so output ordering is observable.
type indexedSource struct {
	frames int
	next   int
	img    *image.RGBA
}

func (s *indexedSource) Dimensions() (int, int) { return 64, 36 }
func (s *indexedSource) FPS() float64           { return 4 }
func (s *indexedSource) Duration() float64      { return float64(s.frames) / 4 }
func (s *indexedSource) Close() error           { return nil }

func (s *indexedSource) ReadFrame() (image.Image, bool) {
	if s.next >= s.frames {
		return nil, false
	}
	if s.img == nil {
		s.img = image.NewRGBA(image.Rect(0, 0, 64, 36))
	}
	shade := uint8(10 + s.next*20)
	for i := 0; i < len(s.img.Pix); i += 4 {
		s.img.Pix[i] = shade
		s.img.Pix[i+1] = shade
		s.img.Pix[i+2] = shade
		s.img.Pix[i+3] = 255
	}
	s.next++
	return s.img, true
}

func TestComposeStreamWritesFramesInOrder(t *testing.T) {
	const frames = 8
	renderer := compositor.New(64, 36, track.DefaultEditState(), 2.0)
	req := Request{} // identity zoom, no camera segments
	clip := track.Interval{Start: 0, End: 2}

	var buf bytes.Buffer
	cursor := source.NewCursor(&indexedSource{frames: frames})
	err := composeStream(context.Background(), renderer, cursor, nil, req, clip, 4, frames, 3, &buf)
	if err != nil {
		t.Fatalf("composeStream: %v", err)
	}

	frameBytes := 64 * 36 * 4
	if buf.Len() != frames*frameBytes {
		t.Fatalf("expected %d bytes, got %d", frames*frameBytes, buf.Len())
	}

	// Each written frame must equal the sequential single-goroutine render
	// of the same frame index.
	ref := compositor.New(64, 36, track.DefaultEditState(), 2.0)
	refCursor := source.NewCursor(&indexedSource{frames: frames})
	sm := compositor.NewSmoother()
	for k := 0; k < frames; k++ {
		sample := sm.Next(compositor.Sample{AXN: 0.5, AYN: 0.5, Zoom: 1})
		want := ref.Compose(refCursor.FrameAt(float64(k)/4), nil, false, sample)
		got := buf.Bytes()[k*frameBytes : (k+1)*frameBytes]
		if !bytes.Equal(got, want.Pix) {
			t.Errorf("frame %d does not match its sequential render", k)
		}
		ref.Release(want)
	}
}

func TestComposeStreamStopsOnCancel(t *testing.T) {
	renderer := compositor.New(64, 36, track.DefaultEditState(), 2.0)
	cursor := source.NewCursor(&indexedSource{frames: 4})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := composeStream(ctx, renderer, cursor, nil, Request{}, track.Interval{Start: 0, End: 1}, 4, 4, 2, &buf)
	if err == nil {
		t.Fatal("cancelled stream reported success")
	}
}
