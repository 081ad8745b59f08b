package source

import (
	"fmt"
	"image"

	vidio "github.com/AlexEidt/Vidio"
)

// FrameSource hands out decoded frames in presentation order. Decoding is
// a collaborator concern; the compositing core only consumes frames.
type FrameSource interface {
	Dimensions() (width, height int)
	FPS() float64
	Duration() float64
	ReadFrame() (image.Image, bool)
	Close() error
}

// VideoSource decodes a video file sequentially.
type VideoSource struct {
	video *vidio.Video
	frame *image.RGBA
}

// OpenVideo opens a video file for sequential decoding.
func OpenVideo(path string) (*VideoSource, error) {
	video, err := vidio.NewVideo(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	s := &VideoSource{
		video: video,
		frame: image.NewRGBA(image.Rect(0, 0, video.Width(), video.Height())),
	}
	// Decode directly into the image backing array.
	video.SetFrameBuffer(s.frame.Pix)
	return s, nil
}

func (s *VideoSource) Dimensions() (int, int) {
	return s.video.Width(), s.video.Height()
}

func (s *VideoSource) FPS() float64 {
	return s.video.FPS()
}

func (s *VideoSource) Duration() float64 {
	return s.video.Duration()
}

// ReadFrame decodes the next frame. The returned image is reused by the
// following call; consumers composite it before reading again.
func (s *VideoSource) ReadFrame() (image.Image, bool) {
	if !s.video.Read() {
		return nil, false
	}
	return s.frame, true
}

func (s *VideoSource) Close() error {
	s.video.Close()
	return nil
}

// StillSource serves one fixed frame forever; used in tests and as a
// stand-in when a stream has no decoder.
type StillSource struct {
	Img    image.Image
	Rate   float64
	Length float64
}

func (s *StillSource) Dimensions() (int, int) {
	b := s.Img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *StillSource) FPS() float64 {
	if s.Rate <= 0 {
		return 30
	}
	return s.Rate
}

func (s *StillSource) Duration() float64 { return s.Length }

func (s *StillSource) ReadFrame() (image.Image, bool) { return s.Img, true }

func (s *StillSource) Close() error { return nil }

// Cursor adapts a sequential FrameSource to time-indexed access: FrameAt
// advances the stream to the frame covering t and holds the last decoded
// frame at end of stream (or nil before the first decode succeeds).
type Cursor struct {
	src  FrameSource
	fps  float64
	next int
	last image.Image
	eof  bool
}

// NewCursor wraps a source for time-indexed reads.
func NewCursor(src FrameSource) *Cursor {
	return &Cursor{src: src, fps: src.FPS()}
}

// FrameAt returns the decoded frame at time t (seconds on the source
// timeline). Requests must be non-decreasing in t.
func (c *Cursor) FrameAt(t float64) image.Image {
	if c.fps <= 0 {
		c.fps = 30
	}
	target := int(t*c.fps + 0.5)
	for !c.eof && c.next <= target {
		frame, ok := c.src.ReadFrame()
		if !ok {
			c.eof = true
			break
		}
		c.last = frame
		c.next++
	}
	return c.last
}
