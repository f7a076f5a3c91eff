package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestLogAppendPreservesOrder(t *testing.T) {
	l := NewLog()

	const n = 10
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		if err := l.Append(Turn{Role: role, Content: fmt.Sprintf("turn %d", i)}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if l.Len() != n {
		t.Fatalf("Len() = %d, want %d", l.Len(), n)
	}

	turns := l.Turns()
	for i, turn := range turns {
		want := fmt.Sprintf("turn %d", i)
		if turn.Content != want {
			t.Errorf("turns[%d].Content = %q, want %q", i, turn.Content, want)
		}
	}
}

func TestLogAppendAllowsRepeatedContent(t *testing.T) {
	l := NewLog()
	for i := 0; i < 3; i++ {
		if err := l.Append(NewUserTurn("go north")); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestLogAppendRejectsSecondInProgress(t *testing.T) {
	l := NewLog()
	if err := l.Append(Turn{Role: RoleAssistant, InProgress: true}); err != nil {
		t.Fatalf("first in-progress append error = %v", err)
	}

	err := l.Append(Turn{Role: RoleAssistant, InProgress: true})
	if !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("second in-progress append error = %v, want ErrTurnInProgress", err)
	}

	// A finalized turn may not land behind an in-progress one either.
	err = l.Append(NewUserTurn("hello"))
	if !errors.Is(err, ErrTurnInProgress) {
		t.Errorf("append after in-progress error = %v, want ErrTurnInProgress", err)
	}
}

func TestLogInProgressLifecycle(t *testing.T) {
	l := NewLog()
	_ = l.Append(NewUserTurn("open the door"))
	_ = l.Append(Turn{Role: RoleAssistant, InProgress: true})

	if err := l.UpdateInProgress("The door creaks"); err != nil {
		t.Fatalf("UpdateInProgress() error = %v", err)
	}
	if last, _ := l.Last(); last.Content != "The door creaks" {
		t.Errorf("in-progress content = %q", last.Content)
	}

	if err := l.FinalizeInProgress("The door creaks open."); err != nil {
		t.Fatalf("FinalizeInProgress() error = %v", err)
	}

	last, ok := l.Last()
	if !ok || last.InProgress {
		t.Fatal("expected finalized last turn")
	}
	if last.Content != "The door creaks open." {
		t.Errorf("finalized content = %q", last.Content)
	}

	// Lifecycle operations require an open turn.
	if err := l.FinalizeInProgress("x"); !errors.Is(err, ErrNoTurnInProgress) {
		t.Errorf("FinalizeInProgress() on sealed log error = %v", err)
	}
	if err := l.DiscardInProgress(); !errors.Is(err, ErrNoTurnInProgress) {
		t.Errorf("DiscardInProgress() on sealed log error = %v", err)
	}
}

func TestLogDiscardInProgress(t *testing.T) {
	l := NewLog()
	_ = l.Append(NewUserTurn("go north"))
	_ = l.Append(Turn{Role: RoleAssistant, InProgress: true})

	if err := l.DiscardInProgress(); err != nil {
		t.Fatalf("DiscardInProgress() error = %v", err)
	}
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}

	// Full rollback of the exchange.
	if _, err := l.PopLast(); err != nil {
		t.Fatalf("PopLast() error = %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestLogPopLastEmpty(t *testing.T) {
	l := NewLog()
	if _, err := l.PopLast(); !errors.Is(err, ErrEmptyLog) {
		t.Errorf("PopLast() error = %v, want ErrEmptyLog", err)
	}
}

func TestLogReplace(t *testing.T) {
	l := NewLog()
	_ = l.Append(NewUserTurn("a"))
	_ = l.Append(NewAssistantTurn("b"))

	kept := []Turn{NewUserTurn("c"), NewAssistantTurn("d")}
	l.Replace(kept)

	turns := l.Turns()
	if len(turns) != 2 || turns[0].Content != "c" || turns[1].Content != "d" {
		t.Errorf("Replace() result = %+v", turns)
	}

	// The log owns its own copy.
	kept[0].Content = "mutated"
	if l.Turns()[0].Content != "c" {
		t.Error("Replace() aliases caller slice")
	}
}

func TestLogTurnsReturnsCopy(t *testing.T) {
	l := NewLog()
	_ = l.Append(NewUserTurn("a"))

	turns := l.Turns()
	turns[0].Content = "mutated"

	if got := l.Turns()[0].Content; got != "a" {
		t.Errorf("log content = %q after mutating copy", got)
	}
}
