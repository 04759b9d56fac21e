package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderDefaults(t *testing.T) {
	ee := Newf("something broke").Build()

	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, string(CategoryGeneric), ee.GetCategory())
	assert.Equal(t, "something broke", ee.Error())
	assert.False(t, ee.Timestamp.IsZero())
}

func TestErrorBuilderContext(t *testing.T) {
	ee := Newf("clip write failed").
		Component("clip").
		Category(CategoryStorage).
		Context("event_id", "abc-123").
		Build()

	assert.Equal(t, "clip", ee.GetComponent())
	assert.Equal(t, "storage", ee.GetCategory())

	ctx := ee.GetContext()
	require.NotNil(t, ctx)
	assert.Equal(t, "abc-123", ctx["event_id"])

	// The returned context is a copy
	ctx["event_id"] = "mutated"
	assert.Equal(t, "abc-123", ee.GetContext()["event_id"])
}

func TestErrorUnwrap(t *testing.T) {
	sentinel := NewStd("sentinel")
	ee := New(fmt.Errorf("wrapped: %w", sentinel)).Build()

	assert.True(t, Is(ee, sentinel))

	var target *EnhancedError
	assert.True(t, As(ee, &target))
}

func TestTelemetryReporterHook(t *testing.T) {
	var reported []*EnhancedError
	SetTelemetryReporter(func(ee *EnhancedError) {
		reported = append(reported, ee)
	})
	defer SetTelemetryReporter(nil)

	ee := Newf("publish failed").Category(CategoryMQTTPublish).Build()

	require.Len(t, reported, 1)
	assert.Same(t, ee, reported[0])
	assert.True(t, ee.IsReported())
}

func TestTelemetryReporterDisabled(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := Newf("quiet failure").Build()
	assert.False(t, ee.IsReported())
}
