// Package engine drives streaming generation and the archive-and-trim
// pipeline over a single session's message log and continuity store.
package engine

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nexusforge/nexus/internal/chat"
	"github.com/nexusforge/nexus/internal/continuity"
	"github.com/nexusforge/nexus/internal/observability"
	"github.com/nexusforge/nexus/internal/provider"
	"github.com/nexusforge/nexus/internal/snapshot"
)

const (
	// salvageThreshold is the minimum accumulated character count required
	// to keep partial output on cancellation or failure.
	salvageThreshold = 50

	// interruptionMarker is appended to salvaged partial output.
	interruptionMarker = "\n\n[Response interrupted]"

	// updateInterval bounds how often partial output is pushed to the
	// caller while streaming.
	updateInterval = 50 * time.Millisecond
)

// session states
const (
	stateIdle int32 = iota
	stateStreaming
	stateArchiving
)

// Session is the explicit context for one running campaign: the message
// log, the continuity store, the snapshot store, and the active provider
// settings. All mutations of the log and store happen through Session
// methods from a single caller; only the network exchange inside Send runs
// concurrently with anything else.
type Session struct {
	Log       *chat.Log
	Store     *continuity.Store
	Snapshots *snapshot.Store

	Provider    provider.Provider
	Model       string
	Temperature float64

	// FileName is the snapshot file backing this session, empty until the
	// first save.
	FileName string

	state           atomic.Int32
	cancelRequested atomic.Bool
	limiter         *rate.Limiter
}

// NewSession creates a session around an empty message log
func NewSession(store *continuity.Store, snapshots *snapshot.Store, prov provider.Provider, model string, temperature float64) *Session {
	return &Session{
		Log:         chat.NewLog(),
		Store:       store,
		Snapshots:   snapshots,
		Provider:    prov,
		Model:       model,
		Temperature: temperature,
		limiter:     rate.NewLimiter(rate.Every(updateInterval), 1),
	}
}

// Streaming reports whether a generation is in flight
func (s *Session) Streaming() bool {
	return s.state.Load() == stateStreaming
}

// Cancel requests cooperative cancellation of the in-flight generation.
// The flag is polled between delta deliveries; a chunk already in transit
// is not interrupted. Safe to call from any goroutine.
func (s *Session) Cancel() {
	s.cancelRequested.Store(true)
}

// Send appends a user turn, streams a response, and reconciles the outcome
// into the log. onUpdate, if non-nil, receives throttled partial text while
// streaming and the final text once. If a generation is already in flight
// the call is interpreted as a cancellation request for it and returns
// ErrGenerationInFlight without starting a new one.
//
// Outcomes:
//   - completion with content: finalized assistant turn, text returned
//   - completion with no content: user turn rolled back, ErrEmptyResult
//   - cancellation above the salvage threshold: partial text finalized with
//     an interruption marker, text returned with ErrCancelled
//   - cancellation below it: user turn rolled back, ErrCancelled
//   - failure: same salvage rule, the provider error is returned
func (s *Session) Send(ctx context.Context, userText string, onUpdate func(partial string)) (string, error) {
	switch s.state.Load() {
	case stateStreaming:
		s.Cancel()
		return "", ErrGenerationInFlight
	case stateArchiving:
		return "", ErrArchiveInFlight
	}
	// Reset before entering Streaming: a Cancel that lands after the swap
	// belongs to this generation and must not be wiped. A stale cancel from
	// the idle period is discarded here; if the swap below loses a race,
	// the loser re-raises the flag via Cancel.
	s.cancelRequested.Store(false)
	if !s.state.CompareAndSwap(stateIdle, stateStreaming) {
		s.Cancel()
		return "", ErrGenerationInFlight
	}
	defer s.state.Store(stateIdle)

	ctx, span := observability.StartSpan(ctx, "generate", map[string]any{
		"provider": s.Provider.Name(),
		"model":    s.Model,
	})
	defer span.End()

	if err := s.Log.Append(chat.NewUserTurn(userText)); err != nil {
		span.SetError(err)
		return "", err
	}
	turns := s.Log.Turns()

	inProgress := chat.NewAssistantTurn("")
	inProgress.InProgress = true
	if err := s.Log.Append(inProgress); err != nil {
		_, _ = s.Log.PopLast()
		span.SetError(err)
		return "", err
	}

	start := time.Now()
	text, err := s.stream(ctx, turns, onUpdate)

	outcome := "completed"
	switch {
	case errors.Is(err, ErrCancelled):
		outcome = "cancelled"
	case err != nil:
		outcome = "failed"
		span.SetError(err)
	}
	span.SetAttribute("outcome", outcome)
	span.SetAttribute("chars", len(text))
	observability.GenerationsTotal.WithLabelValues(s.Provider.Name(), outcome).Inc()
	observability.GenerationDuration.WithLabelValues(s.Provider.Name()).Observe(time.Since(start).Seconds())
	observability.GenerationChars.WithLabelValues(s.Provider.Name()).Observe(float64(len(text)))

	return text, err
}

// stream runs the provider exchange and reconciles the in-progress turn.
// The in-progress assistant turn is already appended; every return path
// either finalizes or discards it.
func (s *Session) stream(ctx context.Context, turns []chat.Turn, onUpdate func(string)) (string, error) {
	req := provider.GenerateRequest{
		SystemPrompt: s.Store.ComposeSystemPrompt(),
		Turns:        turns,
		Model:        s.Model,
		Temperature:  s.Temperature,
		MaxTokens:    provider.MaxOutputTokens,
	}

	stream, err := s.Provider.GenerateStream(ctx, req)
	if err != nil {
		s.rollback()
		return "", err
	}
	defer func() {
		_ = stream.Close()
	}()

	var accumulated string
	for {
		if s.cancelRequested.Load() || ctx.Err() != nil {
			return s.reconcileCancel(accumulated, onUpdate)
		}

		chunk, err := stream.Recv()
		if chunk != nil && chunk.Delta != "" {
			accumulated += chunk.Delta
			_ = s.Log.UpdateInProgress(accumulated)
			if onUpdate != nil && s.limiter.Allow() {
				onUpdate(accumulated)
			}
		}

		if err == io.EOF || (err == nil && chunk != nil && chunk.FinishReason != "") {
			return s.reconcileComplete(accumulated, onUpdate)
		}
		if err != nil {
			return s.reconcileFailure(accumulated, err, onUpdate)
		}
	}
}

func (s *Session) reconcileComplete(accumulated string, onUpdate func(string)) (string, error) {
	if accumulated == "" {
		s.rollback()
		return "", ErrEmptyResult
	}
	if err := s.Log.FinalizeInProgress(accumulated); err != nil {
		return "", err
	}
	if onUpdate != nil {
		onUpdate(accumulated)
	}
	return accumulated, nil
}

func (s *Session) reconcileCancel(accumulated string, onUpdate func(string)) (string, error) {
	if len(accumulated) <= salvageThreshold {
		s.rollback()
		return "", ErrCancelled
	}
	salvaged := accumulated + interruptionMarker
	if err := s.Log.FinalizeInProgress(salvaged); err != nil {
		return "", err
	}
	if onUpdate != nil {
		onUpdate(salvaged)
	}
	return salvaged, ErrCancelled
}

func (s *Session) reconcileFailure(accumulated string, cause error, onUpdate func(string)) (string, error) {
	if len(accumulated) <= salvageThreshold {
		s.rollback()
		return "", cause
	}
	salvaged := accumulated + interruptionMarker
	if err := s.Log.FinalizeInProgress(salvaged); err != nil {
		return "", err
	}
	if onUpdate != nil {
		onUpdate(salvaged)
	}
	return salvaged, cause
}

// rollback discards the in-progress assistant turn and the user turn that
// triggered it, as if the exchange never happened.
func (s *Session) rollback() {
	_ = s.Log.DiscardInProgress()
	_, _ = s.Log.PopLast()
}

// SaveSnapshot persists the current session state. An empty name keeps the
// session's current file, or generates a timestamped one for a new session.
func (s *Session) SaveSnapshot(name string) (string, error) {
	if name == "" {
		name = s.FileName
	}
	snap := s.buildSnapshot()
	saved, err := s.Snapshots.Save(snap, name)
	if err != nil {
		return "", err
	}
	s.FileName = saved
	observability.SnapshotsSavedTotal.WithLabelValues("session").Inc()
	return saved, nil
}

// LoadSnapshot replaces the message log, character sheet, reference
// documents, and temperature from a stored snapshot. The framework is
// never replaced. Provider and model adoption is the caller's job: it
// needs the provider rebuilt from credentials and the model revalidated
// against the new catalog (see nexus.App.LoadSession).
func (s *Session) LoadSnapshot(name string) (*snapshot.Snapshot, error) {
	if s.state.Load() != stateIdle {
		return nil, ErrGenerationInFlight
	}

	snap, err := s.Snapshots.Load(name)
	if err != nil {
		return nil, err
	}

	s.Log.Replace(snap.Messages)
	if err := s.Store.EditCharacterSheet(snap.CharacterSheet); err != nil {
		return nil, err
	}
	s.Store.SetReferenceDocuments(snap.ReferenceDocuments)

	s.Temperature = snap.Temperature
	s.FileName = name
	return snap, nil
}

func (s *Session) buildSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Provider:           s.Provider.Name(),
		Model:              s.Model,
		Temperature:        s.Temperature,
		Messages:           s.Log.Turns(),
		CharacterSheet:     s.Store.CharacterSheet(),
		ReferenceDocuments: s.Store.ReferenceDocuments(),
	}
}
