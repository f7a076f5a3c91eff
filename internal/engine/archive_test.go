package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusforge/nexus/internal/chat"
	"github.com/nexusforge/nexus/internal/provider"
)

func fillLog(s *Session, exchanges int) {
	var turns []chat.Turn
	for i := 0; i < exchanges; i++ {
		turns = append(turns,
			chat.NewUserTurn(fmt.Sprintf("player action %d", i)),
			chat.NewAssistantTurn(fmt.Sprintf("narration %d", i)),
		)
	}
	s.Log.Replace(turns)
}

func TestArchiveAndTrim(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	mock.AddGenerateResponse(&provider.GenerateResponse{
		Content:      "=== SESSION UPDATE ===\nPLOT: the vault was opened.",
		FinishReason: "stop",
	})
	s := newTestSession(t, mock)
	require.NoError(t, s.Store.EditCharacterSheet("=== PRIOR SHEET ==="))
	fillLog(s, 5) // 10 turns

	result, err := s.ArchiveAndTrim(context.Background(), 4)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TrimmedTurns)
	assert.Equal(t, 4, result.KeptTurns)
	assert.True(t, result.Summarized)
	assert.Contains(t, result.ArchiveFile, "_archive_")

	// The log keeps the most recent 4 turns.
	turns := s.Log.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, "player action 3", turns[0].Content)
	assert.Equal(t, "narration 4", turns[3].Content)

	// The archive captured the full pre-trim log.
	archived, err := s.Snapshots.Load(result.ArchiveFile)
	require.NoError(t, err)
	assert.Len(t, archived.Messages, 10)
	assert.Equal(t, "archive", archived.Type)
	assert.Equal(t, "=== PRIOR SHEET ===", archived.CharacterSheet)

	// The summary was appended after the prior sheet content.
	sheet := s.Store.CharacterSheet()
	assert.Contains(t, sheet, "=== PRIOR SHEET ===")
	assert.Contains(t, sheet, "the vault was opened")
	assert.Less(t, strings.Index(sheet, "PRIOR SHEET"), strings.Index(sheet, "vault"))

	// The summarization request went to the cheap tier at low temperature
	// over the older segment only.
	require.Len(t, mock.GenerateCalls, 1)
	call := mock.GenerateCalls[0]
	assert.Equal(t, "mock-small", call.Model)
	assert.Equal(t, summaryTemperature, call.Temperature)
	assert.Equal(t, summaryMaxTokens, call.MaxTokens)
	require.Len(t, call.Turns, 1)
	body := call.Turns[0].Content
	assert.Contains(t, body, "Player: player action 0")
	assert.Contains(t, body, "Game Master: narration 2")
	assert.NotContains(t, body, "player action 3", "kept turns must not be summarized")
	assert.Contains(t, body, "=== PRIOR SHEET ===")
	assert.Contains(t, body, "CONTINUITY UPDATE")
}

func TestArchiveAndTrimTooShort(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	s := newTestSession(t, mock)
	fillLog(s, 2) // 4 turns

	_, err := s.ArchiveAndTrim(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSessionTooShort)
	assert.Equal(t, 4, s.Log.Len())
	assert.Empty(t, mock.GenerateCalls)

	// No archive file was written.
	entries, err := os.ReadDir(s.Snapshots.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchiveAndTrimKeepCountTooLarge(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	s := newTestSession(t, mock)
	fillLog(s, 5) // 10 turns

	for _, keep := range []int{10, 11} {
		_, err := s.ArchiveAndTrim(context.Background(), keep)
		assert.ErrorIs(t, err, ErrKeepCountTooLarge)
	}
	assert.Equal(t, 10, s.Log.Len(), "rejected call must not mutate the log")

	entries, err := os.ReadDir(s.Snapshots.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchiveAndTrimClampsKeepCount(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	s := newTestSession(t, mock)
	fillLog(s, 3) // 6 turns

	result, err := s.ArchiveAndTrim(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.KeptTurns, "keepCount below 2 is clamped up")
	assert.Equal(t, 4, result.TrimmedTurns)
	assert.Equal(t, 2, s.Log.Len())
}

func TestArchiveAndTrimSummaryFailure(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	transport := provider.NewProviderError("mock", provider.ErrorCodeTransport, "connection reset", nil)
	mock.AddError(transport)
	s := newTestSession(t, mock)
	require.NoError(t, s.Store.EditCharacterSheet("untouched"))
	fillLog(s, 5)

	result, err := s.ArchiveAndTrim(context.Background(), 4)
	assert.ErrorIs(t, err, ErrSummaryFailed)

	// The trim still happened and the archive holds the full record.
	require.NotNil(t, result)
	assert.False(t, result.Summarized)
	assert.Equal(t, 4, s.Log.Len())

	archived, loadErr := s.Snapshots.Load(result.ArchiveFile)
	require.NoError(t, loadErr)
	assert.Len(t, archived.Messages, 10)

	// The sheet is exactly as it was.
	assert.Equal(t, "untouched", s.Store.CharacterSheet())
}

func TestArchiveAndTrimBlockedWhileStreaming(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	s := newTestSession(t, mock)
	fillLog(s, 5)

	s.state.Store(stateStreaming)
	defer s.state.Store(stateIdle)

	_, err := s.ArchiveAndTrim(context.Background(), 4)
	assert.ErrorIs(t, err, ErrGenerationInFlight)
	assert.Equal(t, 10, s.Log.Len())
}
