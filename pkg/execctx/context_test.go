package execctx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_GeneratesDistinctTraceAndSpanIDs(t *testing.T) {
	c1 := New(nil)
	c2 := New(nil)
	assert.NotEqual(t, c1.TraceID(), c2.TraceID())
	assert.NotEqual(t, c1.SpanID(), c2.SpanID())
	assert.False(t, c1.ParentSpanID().IsValid())
}

func TestCreateChild_SharesTraceIDAndSetsParentSpan(t *testing.T) {
	root := New(map[string]string{"scenario": "checkout"})
	child := root.CreateChild(nil)

	assert.Equal(t, root.TraceID(), child.TraceID())
	assert.Equal(t, root.SpanID(), child.ParentSpanID())
	assert.NotEqual(t, root.SpanID(), child.SpanID())
	assert.Equal(t, "checkout", child.Scenario())
}

func TestCreateChild_OverridesMetadataWithoutMutatingParent(t *testing.T) {
	root := New(map[string]string{"scenario": "checkout"})
	child := root.CreateChild(map[string]string{"scenario": "browse"})

	assert.Equal(t, "browse", child.Scenario())
	assert.Equal(t, "checkout", root.Scenario())
}

func TestMetadata_IsDefensiveCopy(t *testing.T) {
	c := New(map[string]string{"scenario": "checkout"})
	md := c.Metadata()
	md["scenario"] = "mutated"
	assert.Equal(t, "checkout", c.Scenario())
}

func TestContextInfo_Accessors(t *testing.T) {
	c := New(map[string]string{"scenario": "checkout", "journey_spec": "buy:flow", "node": "n1"})
	assert.Equal(t, "checkout", c.Scenario())
	assert.Equal(t, "buy:flow", c.JourneyName())
	assert.Equal(t, "n1", c.NodeIdentity())
}

func TestClose_RunsHooksInLIFOOrder(t *testing.T) {
	c := New(nil)
	var order []int
	c.AddCleanupHook(func(context.Context) error { order = append(order, 1); return nil })
	c.AddCleanupHook(func(context.Context) error { order = append(order, 2); return nil })
	c.AddCleanupHook(func(context.Context) error { order = append(order, 3); return nil })

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestClose_RunsAllHooksEvenIfOneErrors(t *testing.T) {
	c := New(nil)
	var ran []int
	c.AddCleanupHook(func(context.Context) error { ran = append(ran, 1); return nil })
	c.AddCleanupHook(func(context.Context) error { ran = append(ran, 2); return errors.New("boom") })
	c.AddCleanupHook(func(context.Context) error { ran = append(ran, 3); return nil })

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.ElementsMatch(t, []int{1, 2, 3}, ran)
}

func TestClose_SecondCallReturnsAlreadyClosed(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Close(context.Background()))
	err := c.Close(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestElapsed_StopsGrowingAfterClose(t *testing.T) {
	c := New(nil)
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, c.Close(context.Background()))
	first := c.Elapsed()
	time.Sleep(2 * time.Millisecond)
	second := c.Elapsed()
	assert.Equal(t, first, second)
}

func TestRecordMetric_AccumulatesEntries(t *testing.T) {
	c := New(nil)
	c.RecordMetric("http_request_duration_seconds", 0.1, map[string]string{"status": "200"})
	c.RecordMetric("http_request_duration_seconds", 0.2, nil)

	entries := c.MetricEntries("http_request_duration_seconds")
	require.Len(t, entries, 2)
	assert.Equal(t, 0.1, entries[0].Value)
	assert.Equal(t, "200", entries[0].Labels["status"])
}
