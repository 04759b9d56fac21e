// Package framebuffer maintains a rolling, time-indexed history of recent
// video frames per camera source, so a clip spanning the moments before and
// after a fall can be cut after the fact.
package framebuffer

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/novacare/fallguard-go/internal/logging"
)

// ErrRecordingInFlight is returned when BeginRecording is called while a
// recording is already in progress. The in-flight recording always wins.
var ErrRecordingInFlight = errors.New("recording already in flight")

// ErrNotRecording is returned by Finalize when no recording was begun.
var ErrNotRecording = errors.New("no recording in flight")

// Frame is one captured video frame. Data is opaque encoded image bytes;
// the buffer never inspects it.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// Buffer is a fixed-duration rolling history of frames for one source.
// Ingest is safe to call concurrently with the recording lifecycle calls,
// and never blocks beyond the internal mutex hold.
type Buffer struct {
	source string
	pre    time.Duration
	post   time.Duration
	debug  bool
	log    *slog.Logger

	mu        sync.Mutex
	frames    []Frame
	recording bool
	anchor    time.Time
}

// New creates a buffer retaining pre worth of history before an alert and
// capturing post worth of frames after it.
func New(source string, pre, post time.Duration, debug bool) *Buffer {
	logger := logging.ForService("framebuffer")
	if logger == nil {
		logger = slog.Default()
	}
	return &Buffer{
		source: source,
		pre:    pre,
		post:   post,
		debug:  debug,
		log:    logger.With("source", source),
	}
}

// Ingest appends a frame and evicts history older than the pre-event
// window. Eviction is suspended while a recording is in flight so the
// window anchored at the alert is preserved whole.
func (b *Buffer) Ingest(f Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frames = append(b.frames, f)

	if b.recording {
		return
	}
	b.evictOlderThan(f.Timestamp.Add(-b.pre))
}

// BeginRecording marks the buffer as recording, anchored at the given
// alert timestamp. A reentrant call is rejected: the in-flight recording
// wins, enforcing at most one clip in flight per source.
func (b *Buffer) BeginRecording(anchor time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.recording {
		// Should be unreachable while cooldown holds, defensive only
		b.log.Warn("rejected reentrant recording request", "anchor", anchor)
		return ErrRecordingInFlight
	}

	b.recording = true
	b.anchor = anchor
	if b.debug {
		b.log.Debug("recording started", "anchor", anchor, "buffered_frames", len(b.frames))
	}
	return nil
}

// Finalize cuts the recorded window and resumes normal eviction. It returns
// a copy of all frames in [anchor-pre, anchor+post] in timestamp order,
// with actual capture timestamps preserved (variable frame rate is not
// resampled). The caller is expected to invoke it once the post-event
// window of real time has elapsed.
func (b *Buffer) Finalize() ([]Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.recording {
		return nil, ErrNotRecording
	}

	start := b.anchor.Add(-b.pre)
	end := b.anchor.Add(b.post)

	// Copy-on-finalize: the returned slice shares nothing with the ring,
	// so ingestion can continue mutating it immediately.
	clip := make([]Frame, 0, len(b.frames))
	for _, f := range b.frames {
		if f.Timestamp.Before(start) || f.Timestamp.After(end) {
			continue
		}
		clip = append(clip, f)
	}

	b.recording = false
	b.anchor = time.Time{}
	b.evictTail()

	if b.debug {
		b.log.Debug("recording finalized", "frames", len(clip), "start", start, "end", end)
	}
	return clip, nil
}

// AbortRecording discards an in-flight recording without producing a clip,
// used on explicit reset. Safe to call when not recording.
func (b *Buffer) AbortRecording() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.recording {
		return
	}
	b.recording = false
	b.anchor = time.Time{}
	b.evictTail()
	b.log.Info("recording aborted")
}

// Recording reports whether a clip is currently in flight.
func (b *Buffer) Recording() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recording
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

// evictOlderThan drops frames captured before the cutoff. Caller holds the
// lock. Frames arrive in capture order, so the retained suffix is contiguous.
func (b *Buffer) evictOlderThan(cutoff time.Time) {
	idx := 0
	for idx < len(b.frames) && b.frames[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		b.frames = append(b.frames[:0], b.frames[idx:]...)
	}
}

// evictTail re-applies the pre-event window after a recording ends.
func (b *Buffer) evictTail() {
	if len(b.frames) == 0 {
		return
	}
	newest := b.frames[len(b.frames)-1].Timestamp
	b.evictOlderThan(newest.Add(-b.pre))
}
