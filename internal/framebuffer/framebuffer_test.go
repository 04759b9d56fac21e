package framebuffer

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPre  = 3 * time.Second
	testPost = 2 * time.Second
)

func newTestBuffer() *Buffer {
	return New("cam0", testPre, testPost, false)
}

// ingestSpan feeds frames from start to end at the given interval,
// returning the timestamps fed.
func ingestSpan(b *Buffer, start, end time.Time, interval time.Duration) []time.Time {
	var fed []time.Time
	for ts := start; !ts.After(end); ts = ts.Add(interval) {
		b.Ingest(Frame{Data: []byte(ts.String()), Timestamp: ts})
		fed = append(fed, ts)
	}
	return fed
}

func TestBufferEvictsOutsidePreWindow(t *testing.T) {
	b := newTestBuffer()
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	ingestSpan(b, start, start.Add(10*time.Second), 100*time.Millisecond)

	// Only the trailing pre-event window survives
	assert.LessOrEqual(t, b.Len(), int(testPre/(100*time.Millisecond))+1)
	assert.Greater(t, b.Len(), 0)
}

func TestBufferFinalizeCutsAnchoredWindow(t *testing.T) {
	b := newTestBuffer()
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	interval := 100 * time.Millisecond

	ingestSpan(b, start, start.Add(5*time.Second), interval)

	anchor := start.Add(5 * time.Second)
	require.NoError(t, b.BeginRecording(anchor))

	ingestSpan(b, anchor.Add(interval), anchor.Add(testPost), interval)

	frames, err := b.Finalize()
	require.NoError(t, err)
	require.NotEmpty(t, frames)

	windowStart := anchor.Add(-testPre)
	windowEnd := anchor.Add(testPost)
	for i, f := range frames {
		assert.False(t, f.Timestamp.Before(windowStart), "frame %d before window", i)
		assert.False(t, f.Timestamp.After(windowEnd), "frame %d after window", i)
		if i > 0 {
			assert.True(t, f.Timestamp.After(frames[i-1].Timestamp),
				"frames must be strictly ordered, no duplicates")
		}
	}

	// 3s before + 2s after at 10 fps, inclusive of the anchor frame
	assert.Equal(t, 51, len(frames))
	assert.False(t, b.Recording())
}

func TestBufferReentrantRecordingRejected(t *testing.T) {
	b := newTestBuffer()
	anchor := time.Now()

	require.NoError(t, b.BeginRecording(anchor))
	err := b.BeginRecording(anchor.Add(time.Second))
	assert.ErrorIs(t, err, ErrRecordingInFlight)

	// The original recording is unaffected
	assert.True(t, b.Recording())
}

func TestBufferFinalizeWithoutRecording(t *testing.T) {
	b := newTestBuffer()
	_, err := b.Finalize()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestBufferEvictionSuspendedWhileRecording(t *testing.T) {
	b := newTestBuffer()
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	interval := 100 * time.Millisecond

	ingestSpan(b, start, start.Add(3*time.Second), interval)
	lenBefore := b.Len()

	anchor := start.Add(3 * time.Second)
	require.NoError(t, b.BeginRecording(anchor))

	// Keep ingesting well past the pre window; nothing may be evicted
	// while the clip is in flight
	ingestSpan(b, anchor.Add(interval), anchor.Add(8*time.Second), interval)
	assert.Greater(t, b.Len(), lenBefore)

	frames, err := b.Finalize()
	require.NoError(t, err)

	// The full anchored window was preserved despite the long overrun
	assert.False(t, frames[0].Timestamp.After(anchor.Add(-testPre).Add(interval)))

	// Eviction resumes after finalization
	assert.LessOrEqual(t, b.Len(), int(testPre/interval)+1)
}

func TestBufferAbortRecording(t *testing.T) {
	b := newTestBuffer()
	start := time.Now()
	ingestSpan(b, start, start.Add(time.Second), 100*time.Millisecond)

	require.NoError(t, b.BeginRecording(start.Add(time.Second)))
	b.AbortRecording()

	assert.False(t, b.Recording())
	_, err := b.Finalize()
	assert.ErrorIs(t, err, ErrNotRecording)

	// Abort when idle is a no-op
	b.AbortRecording()
	assert.False(t, b.Recording())
}

func TestBufferFinalizeCopiesFrames(t *testing.T) {
	b := newTestBuffer()
	anchor := time.Now()
	b.Ingest(Frame{Data: []byte("frame"), Timestamp: anchor})

	require.NoError(t, b.BeginRecording(anchor))
	frames, err := b.Finalize()
	require.NoError(t, err)
	require.Len(t, frames, 1)

	// Continued ingestion must not disturb the finalized clip
	for i := 0; i < 100; i++ {
		b.Ingest(Frame{Data: []byte("later"), Timestamp: anchor.Add(time.Duration(i+1) * time.Second)})
	}
	assert.Equal(t, []byte("frame"), frames[0].Data)
}

func TestBufferConcurrentIngestDuringRecording(t *testing.T) {
	b := newTestBuffer()
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	interval := 10 * time.Millisecond

	ingestSpan(b, base, base.Add(time.Second), interval)
	anchor := base.Add(time.Second)
	require.NoError(t, b.BeginRecording(anchor))

	var wg sync.WaitGroup
	rng := rand.New(rand.NewSource(7))

	// Competing recording attempts while ingestion continues: exactly the
	// in-flight one wins
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := b.BeginRecording(anchor.Add(time.Duration(n) * time.Millisecond))
			assert.ErrorIs(t, err, ErrRecordingInFlight)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ts := anchor.Add(interval)
		for i := 0; i < 50; i++ {
			b.Ingest(Frame{Data: []byte(fmt.Sprintf("f%d", i)), Timestamp: ts})
			ts = ts.Add(time.Duration(rng.Intn(int(interval))) + interval)
		}
	}()

	wg.Wait()

	frames, err := b.Finalize()
	require.NoError(t, err)
	for i := 1; i < len(frames); i++ {
		assert.True(t, frames[i].Timestamp.After(frames[i-1].Timestamp))
	}
}
