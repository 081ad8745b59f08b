package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ivlev/screenstudio/internal/compositor"
	"github.com/ivlev/screenstudio/internal/config"
	"github.com/ivlev/screenstudio/internal/export"
	"github.com/ivlev/screenstudio/internal/session"
	"github.com/ivlev/screenstudio/internal/source"
	"github.com/ivlev/screenstudio/internal/system"
	"github.com/ivlev/screenstudio/internal/track"
)

var buildVersion = "dev"

func main() {
	system.InitResourceLimits()

	configPtr := flag.String("config", "", "Path to a YAML config (optional)")
	recordingPtr := flag.String("recording", "", "Recording directory (default: newest under the base dir)")
	basePtr := flag.String("base", "", "Recordings base directory")
	outputPtr := flag.String("output", "", "Output video path (default: export_<timestamp>.mp4 in the recording dir)")
	aspectPtr := flag.String("aspect", "", "Output aspect: 16:9, 1:1, 9:16 (default: persisted edit state)")
	widthPtr := flag.Int("width", 0, "Output width")
	heightPtr := flag.Int("height", 0, "Output height")
	fpsPtr := flag.Int("fps", 0, "Output frame rate")
	formatPtr := flag.String("format", "", "Output format: mp4, mp4_hevc")
	bitratePtr := flag.Int("bitrate", 0, "Video bitrate in kbit/s")
	maxZoomPtr := flag.Float64("max-zoom", 0, "Zoom ceiling (e.g. 2.0)")
	previewPtr := flag.Float64("preview", -1, "Render a single preview frame at this time (seconds) instead of exporting")
	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("[-] %v", err)
	}
	overlay(&cfg, *basePtr, *outputPtr, *aspectPtr, *widthPtr, *heightPtr, *fpsPtr, *formatPtr, *bitratePtr, *maxZoomPtr)
	cfg.BuildVersion = buildVersion
	applyAspect(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	dir := *recordingPtr
	if dir == "" {
		dir, err = system.FindLatestRecording(cfg.BaseDir)
		if err != nil {
			log.Fatalf("[-] %v. Record something first or pass -recording.", err)
		}
		fmt.Printf("[*] Using recording: %s\n", dir)
	}

	inputPath := filepath.Join(dir, "recording.mp4")
	cameraPath := filepath.Join(dir, "camera.mp4")
	if _, err := os.Stat(cameraPath); err != nil {
		cameraPath = ""
	}

	duration, err := system.GetMediaDuration(inputPath)
	if err != nil {
		log.Fatalf("[-] Could not probe %s: %v", inputPath, err)
	}
	fmt.Printf("[*] Recording duration: %.2fs\n", duration)

	sess := session.Open(session.Options{
		Dir:       dir,
		Duration:  duration,
		FPS:       cfg.FPS,
		HasCamera: cameraPath != "",
		OutWidth:  cfg.Width,
		OutHeight: cfg.Height,
		Settings: track.ZoomSettings{
			MaxZoom:  cfg.MaxZoom,
			RampInS:  cfg.RampInS,
			RampOutS: cfg.RampOutS,
		},
	})
	if *aspectPtr != "" {
		es := sess.EditState()
		es.Aspect = *aspectPtr
		sess.SetEditState(es)
	}

	if *previewPtr >= 0 {
		if err := renderPreview(sess, inputPath, cameraPath, dir, *previewPtr); err != nil {
			log.Fatalf("[-] Preview failed: %v", err)
		}
		return
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		outputPath = filepath.Join(dir, fmt.Sprintf("export_%s.mp4", timestamp))
	}

	if encoder, _ := system.GetBestH264Encoder(); encoder != "libx264" {
		fmt.Printf("[*] Hardware encoder available: %s\n", encoder)
	}

	req, err := sess.ExportRequest(inputPath, cameraPath, outputPath, export.Profile{
		Format:      cfg.Format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FPS:         cfg.FPS,
		BitrateKbps: cfg.BitrateKbps,
	})
	if err != nil {
		log.Fatalf("[-] Could not prepare export: %v", err)
	}

	coord := export.NewCoordinator(func(s export.Status) {
		if s.State == export.StateRunning {
			fmt.Printf("\r[*] Exporting... %3.0f%%", s.Progress*100)
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	jobID := fmt.Sprintf("export-%d", start.UnixNano())
	err = export.NewExporter(coord).Run(ctx, jobID, req)
	fmt.Println()
	if err != nil {
		if status, ok := coord.Active(); ok && status.State == export.StateCancelled {
			log.Fatalf("[-] Export cancelled")
		}
		log.Fatalf("[-] Export failed: %v", err)
	}
	fmt.Printf("[+++] Export finished in %.1fs: %s\n", time.Since(start).Seconds(), outputPath)
}

// overlay applies explicitly provided flag values over the file config.
func overlay(cfg *config.Config, base, output, aspect string, width, height, fps int, format string, bitrate int, maxZoom float64) {
	if base != "" {
		cfg.BaseDir = base
	}
	if output != "" {
		cfg.OutputPath = output
	}
	if aspect != "" {
		cfg.Aspect = aspect
	}
	if width > 0 {
		cfg.Width = width
	}
	if height > 0 {
		cfg.Height = height
	}
	if fps > 0 {
		cfg.FPS = fps
	}
	if format != "" {
		cfg.Format = format
	}
	if bitrate > 0 {
		cfg.BitrateKbps = bitrate
	}
	if maxZoom > 1 {
		cfg.MaxZoom = maxZoom
	}
}

// applyAspect derives canvas geometry from the aspect preset when the user
// did not pin an explicit size.
func applyAspect(cfg *config.Config) {
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.Aspect == "16:9" {
		return
	}
	cfg.Width = 1080
	cfg.Height = int(float64(cfg.Width)/compositor.AspectRatio(cfg.Aspect) + 0.5)
}

// renderPreview scrubs to time t and writes one composited frame as PNG
// next to the recording.
func renderPreview(sess *session.Session, inputPath, cameraPath, dir string, t float64) error {
	src, err := source.OpenVideo(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	var camCursor *source.Cursor
	if cameraPath != "" {
		cam, err := source.OpenVideo(cameraPath)
		if err != nil {
			log.Printf("[!] Camera stream unavailable: %v", err)
		} else {
			defer cam.Close()
			camCursor = source.NewCursor(cam)
		}
	}

	cursor := source.NewCursor(src)
	frame := cursor.FrameAt(t)
	if frame == nil {
		return fmt.Errorf("no frame at %.2fs", t)
	}

	img := sess.Scrub(t, frame, frameOrNil(camCursor, t))
	defer sess.Release(img)

	outPath := filepath.Join(dir, fmt.Sprintf("preview_%05.2fs.png", t))
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return err
	}
	fmt.Printf("[+++] Preview written: %s\n", outPath)
	return nil
}

func frameOrNil(c *source.Cursor, t float64) image.Image {
	if c == nil {
		return nil
	}
	return c.FrameAt(t)
}
