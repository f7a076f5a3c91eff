package engine

import (
	"context"
	"fmt"

	"github.com/nexusforge/nexus/internal/chat"
	"github.com/nexusforge/nexus/internal/observability"
	"github.com/nexusforge/nexus/internal/provider"
)

// minTrimTurns is the minimum log length for archive-and-trim to act
const minTrimTurns = 6

// minKeepCount is the floor keepCount is clamped to
const minKeepCount = 2

// ArchiveResult reports what an archive-and-trim run did
type ArchiveResult struct {
	// ArchiveFile is the name of the archive snapshot written before
	// trimming.
	ArchiveFile string

	// TrimmedTurns is how many turns were removed from the log.
	TrimmedTurns int

	// KeptTurns is the log length after trimming.
	KeptTurns int

	// Summarized is true when the continuity update was generated and
	// appended to the character sheet.
	Summarized bool
}

// ArchiveAndTrim archives the full log, summarizes the older segment into
// the character sheet, and shrinks the log to the most recent keepCount
// turns.
//
// The archive snapshot is written before anything else, so a summarization
// failure never loses data. On such a failure the trim still proceeds, the
// character sheet is left untouched, and the returned error wraps
// ErrSummaryFailed alongside a non-nil result describing the trim.
//
// keepCount is clamped to a minimum of 2 and must be less than the total
// turn count after clamping. Logs shorter than 6 turns are left alone.
func (s *Session) ArchiveAndTrim(ctx context.Context, keepCount int) (*ArchiveResult, error) {
	switch s.state.Load() {
	case stateStreaming:
		return nil, ErrGenerationInFlight
	case stateArchiving:
		return nil, ErrArchiveInFlight
	}
	if !s.state.CompareAndSwap(stateIdle, stateArchiving) {
		return nil, ErrGenerationInFlight
	}
	defer s.state.Store(stateIdle)

	ctx, span := observability.StartSpan(ctx, "archive_and_trim", map[string]any{
		"provider":   s.Provider.Name(),
		"keep_count": keepCount,
	})
	defer span.End()

	total := s.Log.Len()
	if total < minTrimTurns {
		observability.ArchivesTotal.WithLabelValues("noop").Inc()
		return nil, ErrSessionTooShort
	}

	if keepCount < minKeepCount {
		keepCount = minKeepCount
	}
	if keepCount >= total {
		observability.ArchivesTotal.WithLabelValues("rejected").Inc()
		return nil, ErrKeepCountTooLarge
	}

	turns := s.Log.Turns()
	older := turns[:total-keepCount]
	kept := turns[total-keepCount:]

	// Archive first, unconditionally. Everything after this point can fail
	// without losing the trimmed turns.
	archiveName, err := s.Snapshots.SaveArchive(s.buildSnapshot(), s.FileName)
	if err != nil {
		span.SetError(err)
		observability.ArchivesTotal.WithLabelValues("archive_failed").Inc()
		return nil, fmt.Errorf("write archive: %w", err)
	}
	observability.SnapshotsSavedTotal.WithLabelValues("archive").Inc()

	result := &ArchiveResult{
		ArchiveFile:  archiveName,
		TrimmedTurns: len(older),
		KeptTurns:    len(kept),
	}
	span.SetAttribute("archive_file", archiveName)
	span.SetAttribute("trimmed_turns", len(older))

	summary, sumErr := s.summarize(ctx, older)

	if sumErr == nil {
		if err := s.Store.AppendCharacterSheet(summary); err != nil {
			sumErr = err
		}
	}

	// The trim proceeds whether or not summarization worked; the archive
	// holds the full record either way.
	s.Log.Replace(kept)
	observability.TrimmedTurnsTotal.Add(float64(len(older)))

	if sumErr != nil {
		span.SetError(sumErr)
		observability.ArchivesTotal.WithLabelValues("summary_failed").Inc()
		return result, fmt.Errorf("%w: %v", ErrSummaryFailed, sumErr)
	}

	result.Summarized = true
	observability.ArchivesTotal.WithLabelValues("completed").Inc()
	return result, nil
}

// summarize issues the single non-streaming continuity-update call on the
// provider's cheaper model tier. It runs to completion or hard failure;
// there is no cancellation path.
func (s *Session) summarize(ctx context.Context, older []chat.Turn) (string, error) {
	resp, err := s.Provider.Generate(ctx, provider.GenerateRequest{
		Turns:       buildSummaryTurns(s.Store.CharacterSheet(), older),
		Model:       s.Provider.SummaryModel(),
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return "", err
	}
	if resp.Content == "" {
		return "", ErrEmptyResult
	}
	return resp.Content, nil
}
