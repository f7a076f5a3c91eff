package chat

import (
	"errors"
	"fmt"
)

// Common errors for message log operations.
var (
	// ErrTurnInProgress is returned when an operation would leave the log
	// with an in-progress turn that is not its last element.
	ErrTurnInProgress = errors.New("a turn is already in progress")
	// ErrNoTurnInProgress is returned when finalizing or discarding without
	// an open in-progress turn.
	ErrNoTurnInProgress = errors.New("no turn in progress")
	// ErrEmptyLog is returned when popping from an empty log.
	ErrEmptyLog = errors.New("message log is empty")
)

// Log is the ordered sequence of turns for the active session.
// The log maintains one invariant: at most one turn is in progress at any
// time, and when present it is always the last element.
//
// Log is not safe for concurrent use; the engine serializes all mutations
// onto a single control flow (see engine.Session).
type Log struct {
	turns []Turn
}

// NewLog creates an empty message log.
func NewLog() *Log {
	return &Log{turns: make([]Turn, 0, 32)}
}

// Append adds a turn to the end of the log.
// It fails with ErrTurnInProgress if a previous in-progress turn has not
// been finalized or discarded yet, regardless of the new turn's kind.
func (l *Log) Append(t Turn) error {
	if l.inProgress() {
		return fmt.Errorf("append %s turn: %w", t.Role, ErrTurnInProgress)
	}
	l.turns = append(l.turns, t)
	return nil
}

// Replace atomically swaps the entire sequence. Used by session load and by
// the archive-and-trim pipeline. Any in-progress turn is dropped with the
// old sequence.
func (l *Log) Replace(turns []Turn) {
	l.turns = make([]Turn, len(turns))
	copy(l.turns, turns)
}

// PopLast removes and returns the last turn. It is used to roll back a user
// turn when generation produced no usable output.
func (l *Log) PopLast() (Turn, error) {
	if len(l.turns) == 0 {
		return Turn{}, ErrEmptyLog
	}
	last := l.turns[len(l.turns)-1]
	l.turns = l.turns[:len(l.turns)-1]
	return last, nil
}

// UpdateInProgress replaces the content of the open in-progress turn.
func (l *Log) UpdateInProgress(content string) error {
	if !l.inProgress() {
		return ErrNoTurnInProgress
	}
	l.turns[len(l.turns)-1].Content = content
	return nil
}

// FinalizeInProgress seals the open in-progress turn with the given content,
// making it an ordinary immutable turn.
func (l *Log) FinalizeInProgress(content string) error {
	if !l.inProgress() {
		return ErrNoTurnInProgress
	}
	last := &l.turns[len(l.turns)-1]
	last.Content = content
	last.InProgress = false
	return nil
}

// DiscardInProgress removes the open in-progress turn as if it was never
// appended.
func (l *Log) DiscardInProgress() error {
	if !l.inProgress() {
		return ErrNoTurnInProgress
	}
	l.turns = l.turns[:len(l.turns)-1]
	return nil
}

// Len returns the number of turns, including an in-progress one.
func (l *Log) Len() int {
	return len(l.turns)
}

// Turns returns a copy of the current sequence.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Last returns the last turn without removing it.
func (l *Log) Last() (Turn, bool) {
	if len(l.turns) == 0 {
		return Turn{}, false
	}
	return l.turns[len(l.turns)-1], true
}

func (l *Log) inProgress() bool {
	return len(l.turns) > 0 && l.turns[len(l.turns)-1].InProgress
}
