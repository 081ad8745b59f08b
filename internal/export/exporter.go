package export

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"log"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/screenstudio/internal/compositor"
	"github.com/ivlev/screenstudio/internal/source"
	"github.com/ivlev/screenstudio/internal/system"
	"github.com/ivlev/screenstudio/internal/track"
)

// stderrTailLines is how much encoder stderr is kept for the failure error.
const stderrTailLines = 12

// Profile describes the encoded output.
type Profile struct {
	Format      string `yaml:"format"` // "mp4" (h264) or "mp4_hevc"
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FPS         int    `yaml:"fps"`
	BitrateKbps int    `yaml:"bitrate_kbps"`
}

// DefaultProfile returns a 1080p30 h264 export profile.
func DefaultProfile() Profile {
	return Profile{Format: "mp4", Width: 1920, Height: 1080, FPS: 30, BitrateKbps: 8000}
}

// Request bundles everything one export run needs. The tracks are the
// committed state of the session at the time the export was queued; the
// run never reads live editor state.
type Request struct {
	InputPath  string
	CameraPath string
	OutputPath string

	Edit   track.EditState
	Clip   track.Interval
	Zoom   track.ZoomTrack
	Camera track.CameraTrack

	Profile Profile
}

// Exporter renders composited frames and pipes them to ffmpeg as raw RGBA.
// The compositing path is the same Renderer the preview uses, so exported
// pixels match what the scrubber showed.
type Exporter struct {
	coord *Coordinator
}

// NewExporter builds an exporter reporting through coord.
func NewExporter(coord *Coordinator) *Exporter {
	return &Exporter{coord: coord}
}

// Run executes one export job to completion, reporting state transitions
// and progress through the coordinator. Cancelling ctx kills the encoder
// and resolves the job as cancelled.
func (e *Exporter) Run(ctx context.Context, jobID string, req Request) error {
	if err := e.coord.Begin(jobID); err != nil {
		return err
	}

	err := e.run(ctx, jobID, req)
	switch {
	case err == nil:
		e.coord.Complete(jobID, req.OutputPath)
	case errors.Is(err, context.Canceled):
		e.coord.Cancel(jobID)
	default:
		e.coord.Fail(jobID, err)
	}
	return err
}

func (e *Exporter) run(ctx context.Context, jobID string, req Request) error {
	src, err := source.OpenVideo(req.InputPath)
	if err != nil {
		return fmt.Errorf("open recording: %w", err)
	}
	defer src.Close()

	var camCursor *source.Cursor
	if req.CameraPath != "" {
		cam, err := source.OpenVideo(req.CameraPath)
		if err != nil {
			// Camera footage is optional; the renderer falls back to a
			// placeholder tile where the track marks it visible.
			log.Printf("[!] Camera stream unavailable, exporting without it: %v", err)
		} else {
			defer cam.Close()
			camCursor = source.NewCursor(cam)
		}
	}

	clip := req.Clip
	if clip.Length() <= 0 {
		clip = track.Interval{Start: 0, End: src.Duration()}
	}
	fps := req.Profile.FPS
	if fps <= 0 {
		fps = 30
	}
	totalFrames := int(math.Ceil(clip.Length() * float64(fps)))
	if totalFrames < 1 {
		return fmt.Errorf("empty clip window [%.3f, %.3f]", clip.Start, clip.End)
	}

	renderer := compositor.New(req.Profile.Width, req.Profile.Height, req.Edit, req.Zoom.Settings.MaxZoom)
	outW, outH := renderer.Size()
	cursor := source.NewCursor(src)

	workers := system.RenderWorkers(outW * outH * 4)
	fmt.Printf("[*] Compositing with %d workers\n", workers)

	args := e.buildFFmpegArgs(outW, outH, fps, clip, req)
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// Encoder progress: ffmpeg reports out_time_ms on stdout via
	// -progress pipe:1.
	g.Go(func() error {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Text()
			if ms, ok := strings.CutPrefix(line, "out_time_ms="); ok {
				us, err := strconv.ParseInt(strings.TrimSpace(ms), 10, 64)
				if err != nil {
					continue
				}
				// Despite the name the value is in microseconds.
				done := float64(us) / 1e6 / clip.Length()
				e.coord.Running(jobID, clampProgress(done))
			}
		}
		return nil
	})

	// Stderr tail for the failure message.
	var tail []string
	g.Go(func() error {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			tail = append(tail, scanner.Text())
			if len(tail) > stderrTailLines {
				tail = tail[1:]
			}
		}
		return nil
	})

	// Frame producer: composite in parallel and pipe raw RGBA in order.
	g.Go(func() error {
		defer stdin.Close()
		return composeStream(gctx, renderer, cursor, camCursor, req, clip, fps, totalFrames, workers, stdin)
	})

	pipeErr := g.Wait()
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return context.Canceled
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg failed: %v\n%s", waitErr, strings.Join(tail, "\n"))
	}
	if pipeErr != nil {
		return pipeErr
	}
	return nil
}

// renderJob carries one frame through the compositing pool. The result
// channel is buffered so workers never block on the ordered writer.
type renderJob struct {
	src     *image.RGBA
	cam     *image.RGBA
	visible bool
	sample  compositor.Sample
	out     chan *image.RGBA
}

// composeStream renders totalFrames composited frames with a pool of
// workers and writes them to w in frame order. Decoding stays sequential
// (the decoder reuses its buffer), so frames are copied out before being
// handed to the pool; smoothing is applied on the sequential side.
func composeStream(ctx context.Context, renderer *compositor.Renderer, src, cam *source.Cursor, req Request, clip track.Interval, fps, totalFrames, workers int, w io.Writer) error {
	if workers < 1 {
		workers = 1
	}
	smoother := compositor.NewSmoother()

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan *renderJob, workers)
	ordered := make(chan *renderJob, workers)

	g.Go(func() error {
		defer close(jobs)
		defer close(ordered)
		for k := 0; k < totalFrames; k++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			t := clip.Start + float64(k)/float64(fps)
			zf := req.Zoom.SampleAt(t)
			job := &renderJob{
				src:     copyFrame(src.FrameAt(t)),
				visible: req.Camera.VisibleAt(t),
				sample: smoother.Next(compositor.Sample{
					AXN:  float64(zf.AXN),
					AYN:  float64(zf.AYN),
					Zoom: float64(zf.Zoom),
				}),
				out: make(chan *image.RGBA, 1),
			}
			if cam != nil {
				job.cam = copyFrame(cam.FrameAt(t))
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case ordered <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for job := range jobs {
				frame := renderer.Compose(imageOrNil(job.src), imageOrNil(job.cam), job.visible, job.sample)
				if job.src != nil {
					system.PutImage(job.src)
				}
				if job.cam != nil {
					system.PutImage(job.cam)
				}
				job.out <- frame
			}
			return nil
		})
	}

	g.Go(func() error {
		k := 0
		for job := range ordered {
			frame := <-job.out
			_, err := w.Write(frame.Pix)
			renderer.Release(frame)
			if err != nil {
				return fmt.Errorf("write frame %d: %w", k, err)
			}
			k++
		}
		return nil
	})

	return g.Wait()
}

// copyFrame duplicates a decoded frame into a pooled buffer so the decoder
// may overwrite its own.
func copyFrame(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		dup := system.GetImage(rgba.Rect)
		copy(dup.Pix, rgba.Pix)
		return dup
	}
	b := img.Bounds()
	dup := system.GetImage(b)
	draw.Draw(dup, b, img, b.Min, draw.Src)
	return dup
}

// imageOrNil avoids handing a typed nil to the renderer's interface
// parameters.
func imageOrNil(img *image.RGBA) image.Image {
	if img == nil {
		return nil
	}
	return img
}

func (e *Exporter) buildFFmpegArgs(w, h, fps int, clip track.Interval, req Request) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
		// Audio comes from the original recording, trimmed to the clip
		// window so it stays in sync with the re-rendered video.
		"-ss", fmt.Sprintf("%f", clip.Start),
		"-t", fmt.Sprintf("%f", clip.Length()),
		"-i", req.InputPath,
		"-map", "0:v:0",
		"-map", "1:a:0?",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		"-progress", "pipe:1",
		"-nostats",
	}

	encoder, _ := system.GetBestH264Encoder()
	if req.Profile.Format == "mp4_hevc" {
		encoder = strings.Replace(encoder, "h264", "hevc", 1)
		if encoder == "libx264" {
			encoder = "libx265"
		}
	}
	args = append(args, "-c:v", encoder)

	bitrate := req.Profile.BitrateKbps
	if bitrate <= 0 {
		bitrate = DefaultProfile().BitrateKbps
	}
	args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	if strings.HasPrefix(encoder, "libx26") {
		args = append(args, "-preset", "medium")
	}

	args = append(args, "-shortest", req.OutputPath)
	return args
}

func clampProgress(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
