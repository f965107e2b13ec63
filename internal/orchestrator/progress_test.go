package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReporter_EmitAndSubscribe(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	ch := pr.Subscribe()
	want := ProgressEvent{Path: "src/a.js", Status: ProgressWorking, Attempt: 1}
	pr.Emit(want)

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for progress event")
	}
}

func TestProgressReporter_EmitWhenFull_DoesNotBlock(t *testing.T) {
	pr := NewProgressReporter()
	defer pr.Close()

	done := make(chan struct{})
	go func() {
		for range 100 {
			pr.Emit(ProgressEvent{Path: "src/a.js", Status: ProgressWorking})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked when the channel was full")
	}
}

func TestProgressReporter_Close_ChannelClosed(t *testing.T) {
	pr := NewProgressReporter()
	ch := pr.Subscribe()

	pr.Emit(ProgressEvent{Path: "src/a.js", Status: ProgressComplete})
	pr.Close()

	var received []ProgressEvent
	for ev := range ch {
		received = append(received, ev)
	}
	require.Len(t, received, 1)
	assert.Equal(t, ProgressComplete, received[0].Status)
}

func TestFormatProgress_AllStatuses(t *testing.T) {
	tests := []struct {
		name   string
		event  ProgressEvent
		expect string
	}{
		{"pending", ProgressEvent{Path: "a.js", Status: ProgressPending}, "  ○ a.js (pending)"},
		{"working", ProgressEvent{Path: "a.js", Status: ProgressWorking}, "  ● a.js..."},
		{"complete", ProgressEvent{Path: "a.js", Status: ProgressComplete, Attempt: 2}, "  ✓ a.js complete (2 attempt(s))"},
		{"skipped", ProgressEvent{Path: "a.js", Status: ProgressComplete, Message: "skipped: too big"}, "  ✓ a.js skipped: too big"},
		{"failed", ProgressEvent{Path: "a.js", Status: ProgressFailed, Message: "timeout"}, "  ✗ a.js failed: timeout"},
		{"unknown", ProgressEvent{Path: "a.js", Status: "odd"}, "  ? a.js (unknown status)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, FormatProgress(tt.event))
		})
	}
}
