package track

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// LoadCursorTrack reads the newline-delimited pointer-sample log. Malformed
// lines and out-of-order samples are skipped so a truncated or partially
// written log never blocks editing.
func (s *Store) LoadCursorTrack() []PointerSample {
	f, err := os.Open(filepath.Join(s.Dir, CursorTrackFile))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[!] %s: read failed, pointer log ignored: %v", CursorTrackFile, err)
		}
		return nil
	}
	defer f.Close()

	var samples []PointerSample
	dropped := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var sample PointerSample
		if err := json.Unmarshal(line, &sample); err != nil {
			dropped++
			continue
		}
		if n := len(samples); n > 0 && sample.OffsetMS < samples[n-1].OffsetMS {
			dropped++
			continue
		}
		samples = append(samples, sample)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("[!] %s: scan stopped early: %v", CursorTrackFile, err)
	}
	if dropped > 0 {
		log.Printf("[!] %s: skipped %d malformed/out-of-order samples", CursorTrackFile, dropped)
	}
	return samples
}

// SaveCursorTrack writes the pointer-sample log, one JSON record per line.
func (s *Store) SaveCursorTrack(samples []PointerSample) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", s.Dir, err)
	}
	f, err := os.Create(filepath.Join(s.Dir, CursorTrackFile))
	if err != nil {
		return fmt.Errorf("create %s: %w", CursorTrackFile, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, sample := range samples {
		data, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	return w.Flush()
}
