package engine

import (
	"strings"

	"github.com/nexusforge/nexus/internal/chat"
)

// Summarization call parameters. A low temperature keeps the continuity
// update factual; the short ceiling keeps it cheap.
const (
	summaryTemperature = 0.3
	summaryMaxTokens   = 2000
)

const summaryPrompt = `Analyze the conversation above and create a CONTINUITY UPDATE for an ongoing RPG campaign. This will be appended to a persistent character sheet.

Format your response EXACTLY like this:

=== SESSION UPDATE [include date/time if known] ===

NARRATIVE TONE:
- [Current mood, pacing, and style of the story]

SENSORY NOW:
- [Where the story stands right this moment: location, time, immediate situation]

IMMUTABLE CHARACTER FACTS:
- [Name]: [Appearance, background, traits that must never drift]

PC STATUS UPDATE:
- Physical: [injuries, conditions]
- Mental: [emotional state, stress]
- Resources: [money, items gained/lost]
- Reputation: [how others see them now]

KEY QUOTES OR MOMENTS:
- [Memorable lines or scenes worth preserving, verbatim]

RELATIONSHIPS & SUBTEXT:
- [Character] <-> [Character]: [Nature of relationship, unspoken tensions, changes]

OPEN MYSTERIES & ACTIVE THREADS:
- [Unresolved storylines, promises, threats, unanswered questions]

WORLD STATE CHANGES:
- [Location changes, faction movements, time passage, world events]

SESSION TIMELINE:
- [Chronological beats of what happened, in order]

Be concise but thorough. Focus on information needed to maintain continuity.`

// buildSummaryTurns renders the older segment as role-labeled lines followed
// by the summarization instruction, with the existing character sheet
// included for preservation when present.
func buildSummaryTurns(characterSheet string, older []chat.Turn) []chat.Turn {
	var b strings.Builder

	if characterSheet != "" {
		b.WriteString("EXISTING CHARACTER SHEET (preserve established facts):\n\n")
		b.WriteString(characterSheet)
		b.WriteString("\n\n")
	}

	b.WriteString("CONVERSATION TO SUMMARIZE:\n\n")
	for _, t := range older {
		label := "Player"
		if t.Role == chat.RoleAssistant {
			label = "Game Master"
		}
		b.WriteString(label + ": " + t.Content + "\n\n")
	}

	b.WriteString(summaryPrompt)

	return []chat.Turn{chat.NewUserTurn(b.String())}
}
