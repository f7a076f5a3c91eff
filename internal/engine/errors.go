package engine

import "errors"

var (
	// ErrGenerationInFlight is returned when an operation requires an idle
	// session but a generation is streaming. Send treats this as an implicit
	// cancellation request for the in-flight generation.
	ErrGenerationInFlight = errors.New("engine: generation already in flight")

	// ErrArchiveInFlight is returned when a send arrives while an
	// archive-and-trim run is still working.
	ErrArchiveInFlight = errors.New("engine: archive in progress")

	// ErrCancelled is returned when a generation was cancelled before any
	// salvageable output accumulated. The triggering user turn has been
	// rolled back.
	ErrCancelled = errors.New("engine: generation cancelled")

	// ErrEmptyResult is returned when a stream completed without producing
	// any content. The triggering user turn has been rolled back.
	ErrEmptyResult = errors.New("engine: provider returned no content")

	// ErrSessionTooShort is returned when the log has too few turns for
	// archive-and-trim to do anything.
	ErrSessionTooShort = errors.New("engine: session too short to trim")

	// ErrKeepCountTooLarge is returned when keepCount would not shrink
	// the log.
	ErrKeepCountTooLarge = errors.New("engine: keep count must be less than total turns")

	// ErrSummaryFailed wraps a summarization failure after the trim has
	// already been applied. The archive file is the only record of the
	// trimmed turns.
	ErrSummaryFailed = errors.New("engine: summarization failed")
)
