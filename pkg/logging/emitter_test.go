package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_EmitFanOut(t *testing.T) {
	sinkA := NewChannelSink(4)
	sinkB := NewChannelSink(4)
	emitter := NewEmitter(EmitterConfig{SessionID: "sess-1", Transport: "netplay"}, sinkA, sinkB)

	err := emitter.Emit(EventPhaseChange, "waiting -> syncing", &PhaseChangeData{From: "Waiting", To: "Syncing"})
	require.NoError(t, err)

	for _, sink := range []*ChannelSink{sinkA, sinkB} {
		select {
		case evt := <-sink.Events():
			assert.Equal(t, "sess-1", evt.SessionID)
			assert.Equal(t, "netplay", evt.Transport)
			assert.Equal(t, EventPhaseChange, evt.EventType)
		default:
			t.Fatal("expected event on sink")
		}
	}
}

func TestEmitter_NilDataOmitsPayload(t *testing.T) {
	sink := NewChannelSink(1)
	emitter := NewEmitter(EmitterConfig{SessionID: "s", Transport: "gbalink"}, sink)

	require.NoError(t, emitter.Emit(EventTimeout, "idle timeout", nil))

	evt := <-sink.Events()
	assert.Nil(t, evt.Data)
}

func TestEmitter_CloseClosesAllSinks(t *testing.T) {
	sink := NewChannelSink(1)
	emitter := NewEmitter(EmitterConfig{}, sink)
	require.NoError(t, emitter.Close())

	_, ok := <-sink.Events()
	assert.False(t, ok)
}
