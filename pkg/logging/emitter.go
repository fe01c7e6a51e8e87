package logging

import (
	"encoding/json"
	"time"

	"github.com/nextui-games/linkrt/internal/errx"
)

// EmitterConfig holds the static metadata stamped onto every event a
// transport emits.
type EmitterConfig struct {
	SessionID string // caller-supplied; typically a uuid from pkg/session
	Transport string // "netplay", "gbalink", or "gblink"
}

// Emitter provides convenience methods for emitting typed events. It holds
// static metadata and dispatches to one or more sinks.
//
// A nil *Emitter is safe to hold; callers guard emission with:
//
//	if emitter != nil {
//	    _ = emitter.Emit(...)
//	}
type Emitter struct {
	config EmitterConfig
	sinks  []Sink
}

// NewEmitter creates an emitter with the given configuration and sinks.
func NewEmitter(cfg EmitterConfig, sinks ...Sink) *Emitter {
	return &Emitter{
		config: cfg,
		sinks:  sinks,
	}
}

// Emit constructs an event with the emitter's static metadata and writes it
// to all registered sinks.
//
// Returns the first error encountered. Callers should discard errors with
// _ = (best-effort semantics) since a logging failure must never abort a
// transport's phase transition.
func (e *Emitter) Emit(eventType, summary string, data interface{}) error {
	var rawData json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return errx.Wrap(ErrMarshalData, err)
		}
		rawData = b
	}

	event := &Event{
		Timestamp: time.Now().UTC(),
		SessionID: e.config.SessionID,
		Transport: e.config.Transport,
		EventType: eventType,
		Summary:   summary,
		Data:      rawData,
	}

	for _, sink := range e.sinks {
		if err := sink.Write(event); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all sinks. Returns the first error encountered.
func (e *Emitter) Close() error {
	var firstErr error
	for _, sink := range e.sinks {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
