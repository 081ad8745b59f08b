package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit; a long editing session
// keeps several decoders, track documents and encoder pipes open at once.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not raise file limit: %v", err)
	}
}

// FindLatestRecording returns the most recently modified recording
// directory under base (a directory is a recording when it holds a
// recording.mp4).
func FindLatestRecording(base string) (string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return "", err
	}

	var latestDir string
	var latestTime time.Time

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(base, e.Name())
		if _, err := os.Stat(filepath.Join(dir, "recording.mp4")); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestDir = dir
		}
	}

	if latestDir == "" {
		return "", fmt.Errorf("no recordings found in %s", base)
	}
	return latestDir, nil
}

// GetMediaDuration returns the duration of a media file in seconds via
// ffprobe.
func GetMediaDuration(path string) (float64, error) {
	cmd := exec.Command("ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, err
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &duration)
	if err != nil {
		return 0, err
	}

	return duration, nil
}

// GetBestH264Encoder probes ffmpeg for hardware encoders, preferring
// VideoToolbox (macOS) then NVENC, falling back to software libx264.
func GetBestH264Encoder() (string, string) {
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}

	for _, enc := range encoders {
		cmd := exec.Command("ffmpeg", "-encoders")
		out, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(out), enc.name) {
			return enc.name, enc.args
		}
	}

	return "libx264", ""
}

// RenderWorkers picks a worker count for parallel frame work: one per
// logical CPU, capped so the per-worker frame buffers fit comfortably in
// available memory.
func RenderWorkers(frameBytes int) int {
	workers := 4
	if n, err := cpu.Counts(true); err == nil && n > 0 {
		workers = n
	}
	if frameBytes <= 0 {
		return workers
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		// Keep the working set under a quarter of available memory.
		budget := int(vm.Available / 4)
		if maxByMem := budget / frameBytes; maxByMem > 0 && maxByMem < workers {
			workers = maxByMem
		}
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
