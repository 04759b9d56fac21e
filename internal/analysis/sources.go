package analysis

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/novacare/fallguard-go/internal/framebuffer"
	"github.com/novacare/fallguard-go/internal/pose"
)

// FrameSource supplies captured video frames in arrival order. Next
// returns io.EOF when the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) (framebuffer.Frame, error)
	Close() error
}

// DirectorySource replays JPEG frames from a directory at a fixed frame
// rate, stamping each frame with the wall clock at emission. Useful for
// bench runs and integration testing against recorded footage.
type DirectorySource struct {
	files    []string
	index    int
	interval time.Duration
}

// NewDirectorySource lists the *.jpg files under dir in name order.
func NewDirectorySource(dir string, frameRate int) (*DirectorySource, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("failed to list frames in %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no frames found in %s", dir)
	}
	sort.Strings(files)

	return &DirectorySource{
		files:    files,
		interval: time.Second / time.Duration(frameRate),
	}, nil
}

// Next emits the next frame, pacing emission to the configured frame rate.
func (s *DirectorySource) Next(ctx context.Context) (framebuffer.Frame, error) {
	if s.index >= len(s.files) {
		return framebuffer.Frame{}, io.EOF
	}

	if s.index > 0 {
		timer := time.NewTimer(s.interval)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return framebuffer.Frame{}, ctx.Err()
		}
	}

	data, err := os.ReadFile(s.files[s.index])
	if err != nil {
		return framebuffer.Frame{}, fmt.Errorf("failed to read frame %s: %w", s.files[s.index], err)
	}
	s.index++

	return framebuffer.Frame{Data: data, Timestamp: time.Now()}, nil
}

// Close implements FrameSource.
func (s *DirectorySource) Close() error { return nil }

// poseRecord is one line of a pose replay file: a null for "no pose" or
// the landmark list produced by the upstream extractor.
type poseRecord struct {
	Landmarks []pose.Landmark `json:"landmarks"`
}

// ReplayPoseSource implements the pose source boundary from a JSONL file
// recorded alongside replay footage, one line per frame.
type ReplayPoseSource struct {
	file    *os.File
	scanner *bufio.Scanner
}

// NewReplayPoseSource opens the pose replay file.
func NewReplayPoseSource(path string) (*ReplayPoseSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pose replay file: %w", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &ReplayPoseSource{file: f, scanner: scanner}, nil
}

// DetectPose returns the next recorded pose. A missing or null line means
// no pose was detected for that frame.
func (s *ReplayPoseSource) DetectPose(_ context.Context, _ []byte) (*pose.Pose, error) {
	if !s.scanner.Scan() {
		if err := s.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	line := s.scanner.Bytes()
	if len(line) == 0 || string(line) == "null" {
		return nil, nil
	}

	var rec poseRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, fmt.Errorf("malformed pose record: %w", err)
	}
	if len(rec.Landmarks) != pose.NumLandmarks {
		return nil, fmt.Errorf("pose record has %d landmarks, want %d", len(rec.Landmarks), pose.NumLandmarks)
	}

	var p pose.Pose
	copy(p[:], rec.Landmarks)
	return &p, nil
}

// Close releases the replay file.
func (s *ReplayPoseSource) Close() error {
	return s.file.Close()
}
