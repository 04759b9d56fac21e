// Package processor coordinates the fall detection pipeline for one camera
// source: it drives the detector frame by frame, turns alert signals into
// clip recordings, and guarantees exactly one published fall event per
// physical fall.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/novacare/fallguard-go/internal/clip"
	"github.com/novacare/fallguard-go/internal/conf"
	"github.com/novacare/fallguard-go/internal/datastore"
	"github.com/novacare/fallguard-go/internal/detector"
	"github.com/novacare/fallguard-go/internal/errors"
	"github.com/novacare/fallguard-go/internal/framebuffer"
	"github.com/novacare/fallguard-go/internal/logging"
	"github.com/novacare/fallguard-go/internal/mqtt"
	"github.com/novacare/fallguard-go/internal/notify"
	"github.com/novacare/fallguard-go/internal/pose"
	"github.com/novacare/fallguard-go/internal/telemetry"
)

// PoseSource is the external landmark extraction capability. Given one
// frame it returns the detected pose, or nil when no usable person is
// visible. It is called synchronously at the frame's native rate.
type PoseSource interface {
	DetectPose(ctx context.Context, frame []byte) (*pose.Pose, error)
}

// FallEvent is the externally visible record of one detected fall. It is
// created exactly once per alert and never mutated afterwards.
type FallEvent struct {
	EventID       string  `json:"event_id"`
	Timestamp     int64   `json:"timestamp"`
	TimestampISO  string  `json:"timestamp_iso"`
	Confidence    float64 `json:"confidence"`
	ClipReference string  `json:"clip_reference"`
	DeviceID      string  `json:"device_id"`
}

// Processor glues the detector, the frame buffer and the external
// boundaries together for a single camera source. ProcessFrame must be
// called from one goroutine in frame arrival order; clip finalization runs
// in a background task that never blocks ingestion.
type Processor struct {
	Settings   *conf.Settings
	Source     string
	Detector   *detector.Detector
	Buffer     *framebuffer.Buffer
	PoseSource PoseSource
	ClipWriter clip.Writer
	MqttClient mqtt.Client
	Ds         datastore.Interface
	Notifier   *notify.Notifier
	Metrics    *telemetry.Metrics

	clock detector.Clock
	log   *slog.Logger

	// publishedEvents suppresses duplicate publishes by event id; delivery
	// downstream is at-least-once so duplicates must be tolerated, not
	// produced gratuitously.
	publishedEvents *gocache.Cache

	mu         sync.Mutex
	finalize   *finalizeTask
	rootCtx    context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// finalizeTask identifies one finalization in flight. Tasks can overlap
// when packaging outlasts the cooldown, so cancellation must target the
// newest task without an older task's completion clobbering its handle.
type finalizeTask struct {
	cancel context.CancelFunc
}

// New wires a processor for one source. MqttClient, Ds, Notifier and
// Metrics may be nil when the corresponding boundary is disabled.
func New(settings *conf.Settings, source string, poseSource PoseSource, writer clip.Writer,
	mqttClient mqtt.Client, ds datastore.Interface, notifier *notify.Notifier,
	metrics *telemetry.Metrics, clock detector.Clock) *Processor {

	logger := logging.ForService("processor")
	if logger == nil {
		logger = slog.Default()
	}

	rootCtx, rootCancel := context.WithCancel(context.Background())

	p := &Processor{
		Settings:        settings,
		Source:          source,
		PoseSource:      poseSource,
		ClipWriter:      writer,
		MqttClient:      mqttClient,
		Ds:              ds,
		Notifier:        notifier,
		Metrics:         metrics,
		clock:           clock,
		log:             logger.With("source", source),
		publishedEvents: gocache.New(time.Hour, 10*time.Minute),
		rootCtx:         rootCtx,
		rootCancel:      rootCancel,
	}

	p.Buffer = framebuffer.New(source,
		secondsToDuration(settings.Clip.PreSeconds),
		secondsToDuration(settings.Clip.PostSeconds),
		settings.Clip.Debug)
	p.Detector = detector.New(&settings.Detector, clock, p.onAlert)

	return p
}

// ProcessFrame ingests one frame: it warms the clip buffer, queries the
// pose source and advances the detector. Errors from the pose source are
// treated as "no pose" for this frame.
func (p *Processor) ProcessFrame(data []byte, ts time.Time) {
	p.Buffer.Ingest(framebuffer.Frame{Data: data, Timestamp: ts})

	if p.Metrics != nil {
		p.Metrics.FramesProcessed.WithLabelValues(p.Source).Inc()
	}

	detected, err := p.PoseSource.DetectPose(p.rootCtx, data)
	if err != nil {
		p.log.Log(context.TODO(), logging.LevelTrace, "pose source error, treating as no pose", "error", err)
		detected = nil
	}
	if detected != nil && p.Metrics != nil {
		p.Metrics.PosesDetected.WithLabelValues(p.Source).Inc()
	}

	p.Detector.ProcessPose(detected, ts)

	if p.Metrics != nil {
		p.Metrics.Confidence.WithLabelValues(p.Source).Set(p.Detector.LastConfidence())
	}
}

// onAlert handles one Monitoring->Alert transition: it starts the clip
// recording and launches the finalization task. Runs on the ingestion
// goroutine and must not block.
func (p *Processor) onAlert(sig detector.AlertSignal) {
	if p.Metrics != nil {
		p.Metrics.FallsDetected.WithLabelValues(p.Source).Inc()
	}

	eventID := uuid.New().String()
	p.log.Warn("fall alert fired", "event_id", eventID, "confidence", sig.Confidence)

	if err := p.Buffer.BeginRecording(sig.Timestamp); err != nil {
		// Defensive: cooldown makes this unreachable, the in-flight
		// recording wins and no second event is produced
		p.log.Warn("alert ignored, recording already in flight", "event_id", eventID)
		return
	}

	ctx, cancel := context.WithCancel(p.rootCtx)
	task := &finalizeTask{cancel: cancel}
	p.mu.Lock()
	p.finalize = task
	p.mu.Unlock()

	p.wg.Add(1)
	go p.finalizeAndEmit(ctx, task, eventID, sig)
}

// finalizeAndEmit waits out the post-event window, cuts and stores the
// clip, then emits the fall event. Storage failure degrades the clip
// reference but never suppresses the event; cancellation (reset or
// shutdown) discards the partial clip and emits nothing.
func (p *Processor) finalizeAndEmit(ctx context.Context, task *finalizeTask, eventID string, sig detector.AlertSignal) {
	defer p.wg.Done()
	defer func() {
		task.cancel()
		p.mu.Lock()
		// Only release our own handle: a newer task may have been
		// registered while this one was still packaging.
		if p.finalize == task {
			p.finalize = nil
		}
		p.mu.Unlock()
	}()

	started := p.clock.Now()

	// Wait until the post-event window of real time has elapsed
	if wait := sig.Timestamp.Add(secondsToDuration(p.Settings.Clip.PostSeconds)).Sub(p.clock.Now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			p.Buffer.AbortRecording()
			p.log.Info("finalization cancelled", "event_id", eventID)
			return
		}
	}

	frames, err := p.Buffer.Finalize()
	if err != nil {
		if errors.Is(err, framebuffer.ErrNotRecording) {
			// The recording was aborted under us, there is no event to emit
			p.log.Info("finalization aborted before cut", "event_id", eventID)
			return
		}
		p.log.Error("clip finalization failed", "event_id", eventID, "error", err)
		frames = nil
	}

	if ctx.Err() != nil {
		// Reset arrived between the wait and the cut: stale event, drop it
		p.log.Info("finalization cancelled after cut", "event_id", eventID)
		return
	}

	clipRef := p.storeClip(ctx, eventID, sig, frames)

	event := &FallEvent{
		EventID:       eventID,
		Timestamp:     sig.Timestamp.Unix(),
		TimestampISO:  sig.Timestamp.UTC().Format(time.RFC3339),
		Confidence:    sig.Confidence,
		ClipReference: clipRef,
		DeviceID:      p.Settings.Main.DeviceID,
	}
	p.emitEvent(ctx, event)

	if p.Metrics != nil {
		p.Metrics.FinalizeDuration.Observe(p.clock.Now().Sub(started).Seconds())
	}
}

// storeClip hands the cut frames to the storage sink, bounded by the
// packaging allowance. On any failure it returns a local placeholder
// reference so the event can still be emitted.
func (p *Processor) storeClip(ctx context.Context, eventID string, sig detector.AlertSignal, frames []framebuffer.Frame) string {
	localRef := fmt.Sprintf("local://%s", eventID)

	if !p.Settings.Clip.Enabled || p.ClipWriter == nil || len(frames) == 0 {
		return localRef
	}

	pre := secondsToDuration(p.Settings.Clip.PreSeconds)
	post := secondsToDuration(p.Settings.Clip.PostSeconds)

	c := &clip.Clip{
		EventID:    eventID,
		Source:     p.Source,
		Confidence: sig.Confidence,
		Anchor:     sig.Timestamp,
		Start:      sig.Timestamp.Add(-pre),
		End:        sig.Timestamp.Add(post),
		Frames:     frames,
	}

	writeCtx, cancel := context.WithTimeout(ctx, secondsToDuration(p.Settings.Clip.PackagingGrace))
	defer cancel()

	ref, err := p.ClipWriter.Write(writeCtx, c)
	if err != nil {
		if p.Metrics != nil {
			p.Metrics.ClipFailures.WithLabelValues(p.Source).Inc()
		}
		enhanced := errors.New(err).
			Component("processor").
			Category(errors.CategoryStorage).
			Context("event_id", eventID).
			Build()
		p.log.Error("clip storage failed, emitting event with local reference", "error", enhanced)
		return localRef
	}

	if p.Metrics != nil {
		p.Metrics.ClipsSaved.WithLabelValues(p.Source).Inc()
	}
	return ref
}

// emitEvent publishes, persists and notifies for one fall event. The
// publish is idempotent by event id.
func (p *Processor) emitEvent(ctx context.Context, event *FallEvent) {
	if _, seen := p.publishedEvents.Get(event.EventID); seen {
		p.log.Warn("duplicate event emission suppressed", "event_id", event.EventID)
		return
	}
	p.publishedEvents.Set(event.EventID, struct{}{}, gocache.DefaultExpiration)

	if p.MqttClient != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			p.log.Error("failed to marshal fall event", "event_id", event.EventID, "error", err)
		} else if err := p.MqttClient.Publish(ctx, p.Settings.Realtime.MQTT.Topic, string(payload)); err != nil {
			if p.Metrics != nil {
				p.Metrics.PublishErrors.Inc()
			}
			p.log.Error("failed to publish fall event", "event_id", event.EventID, "error", err)
		}
	}

	if p.Ds != nil {
		record := &datastore.FallEvent{
			EventID:       event.EventID,
			Source:        p.Source,
			Timestamp:     time.Unix(event.Timestamp, 0),
			Confidence:    event.Confidence,
			ClipReference: event.ClipReference,
			DeviceID:      event.DeviceID,
		}
		if err := p.Ds.Save(record); err != nil {
			enhanced := errors.New(err).
				Component("processor").
				Category(errors.CategoryDatabase).
				Build()
			p.log.Error("failed to persist fall event", "event_id", event.EventID, "error", enhanced)
		}
	}

	if p.Notifier != nil {
		p.Notifier.SendFallAlert(event.DeviceID, time.Unix(event.Timestamp, 0), event.Confidence, event.ClipReference)
	}

	p.log.Info("fall event emitted", "event_id", event.EventID, "clip", event.ClipReference)
}

// Reset returns the detector to Idle, discards the baseline and cancels
// any in-flight finalization so no stale event is emitted.
func (p *Processor) Reset() {
	p.mu.Lock()
	if p.finalize != nil {
		p.finalize.cancel()
	}
	p.mu.Unlock()

	p.Buffer.AbortRecording()
	p.Detector.Reset()
	p.log.Info("pipeline reset")
}

// Shutdown stops background work and releases the external boundaries the
// processor owns.
func (p *Processor) Shutdown() {
	p.rootCancel()
	p.wg.Wait()

	if p.MqttClient != nil {
		p.MqttClient.Disconnect()
	}
	if p.Ds != nil {
		if err := p.Ds.Close(); err != nil {
			p.log.Error("failed to close datastore", "error", err)
		}
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
