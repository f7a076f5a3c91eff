// Package continuity manages the durable documents composed into the system
// prompt: the Framework, the accumulating Character Sheet, and the
// session-scoped Reference Documents.
package continuity

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	frameworkFile      = "framework.txt"
	characterSheetFile = "character_sheet.txt"

	// Documents past this size are accepted but flagged so the caller can
	// warn about prompt bloat.
	oversizeThreshold = 500000
)

var (
	// ErrEmptyName is returned when a reference document has no name.
	ErrEmptyName = errors.New("continuity: reference document name is empty")

	// ErrIndexOutOfRange is returned for an out-of-bounds document index.
	ErrIndexOutOfRange = errors.New("continuity: reference document index out of range")

	// ErrConfirmationRequired is returned when a destructive operation is
	// attempted without explicit confirmation.
	ErrConfirmationRequired = errors.New("continuity: confirmation required")
)

// ReferenceDocument is a user-supplied text artifact injected into the
// system prompt verbatim.
type ReferenceDocument struct {
	Name       string    `json:"name"`
	Content    string    `json:"content"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Store holds the Framework, Character Sheet, and Reference Documents.
// The framework and character sheet are backed by flat files under dir;
// reference documents live in memory and are persisted only inside
// session snapshots. Not safe for concurrent use.
type Store struct {
	dir            string
	framework      string
	characterSheet string
	refDocs        []ReferenceDocument
}

// Open loads the store from dir, creating the directory and a default
// framework file on first run. A missing character sheet is not an error.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create continuity dir: %w", err)
	}

	s := &Store{dir: dir}

	fwPath := filepath.Join(dir, frameworkFile)
	data, err := os.ReadFile(fwPath)
	switch {
	case err == nil:
		s.framework = string(data)
	case os.IsNotExist(err):
		s.framework = DefaultFramework
		if err := os.WriteFile(fwPath, []byte(s.framework), 0o644); err != nil {
			return nil, fmt.Errorf("write default framework: %w", err)
		}
	default:
		return nil, fmt.Errorf("read framework: %w", err)
	}

	sheet, err := os.ReadFile(filepath.Join(dir, characterSheetFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read character sheet: %w", err)
	}
	s.characterSheet = string(sheet)

	return s, nil
}

// Framework returns the current framework text
func (s *Store) Framework() string {
	return s.framework
}

// EditFramework replaces the framework and persists it immediately
func (s *Store) EditFramework(text string) error {
	if err := os.WriteFile(filepath.Join(s.dir, frameworkFile), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write framework: %w", err)
	}
	s.framework = text
	return nil
}

// CharacterSheet returns the current character sheet text
func (s *Store) CharacterSheet() string {
	return s.characterSheet
}

// EditCharacterSheet replaces the character sheet and persists it
// immediately
func (s *Store) EditCharacterSheet(text string) error {
	if err := os.WriteFile(filepath.Join(s.dir, characterSheetFile), []byte(text), 0o644); err != nil {
		return fmt.Errorf("write character sheet: %w", err)
	}
	s.characterSheet = text
	return nil
}

// AppendCharacterSheet appends text to the character sheet file and reloads
// the in-memory copy from disk. Existing content is never overwritten.
func (s *Store) AppendCharacterSheet(text string) error {
	path := filepath.Join(s.dir, characterSheetFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open character sheet: %w", err)
	}
	if _, err := fmt.Fprintf(f, "\n\n%s\n", text); err != nil {
		_ = f.Close()
		return fmt.Errorf("append character sheet: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close character sheet: %w", err)
	}
	return s.ReloadCharacterSheet()
}

// ReloadCharacterSheet re-reads the character sheet from disk
func (s *Store) ReloadCharacterSheet() error {
	data, err := os.ReadFile(filepath.Join(s.dir, characterSheetFile))
	if err != nil {
		if os.IsNotExist(err) {
			s.characterSheet = ""
			return nil
		}
		return fmt.Errorf("read character sheet: %w", err)
	}
	s.characterSheet = string(data)
	return nil
}

// ClearCharacterSheet erases the character sheet. The caller must pass
// confirm=true; the content is unrecoverable unless an archive captured it.
func (s *Store) ClearCharacterSheet(confirm bool) error {
	if !confirm {
		return ErrConfirmationRequired
	}
	return s.EditCharacterSheet("")
}

// ReferenceDocuments returns a copy of the current document list
func (s *Store) ReferenceDocuments() []ReferenceDocument {
	docs := make([]ReferenceDocument, len(s.refDocs))
	copy(docs, s.refDocs)
	return docs
}

// SetReferenceDocuments replaces the document list, used when loading a
// session snapshot
func (s *Store) SetReferenceDocuments(docs []ReferenceDocument) {
	s.refDocs = make([]ReferenceDocument, len(docs))
	copy(s.refDocs, docs)
}

// AddReferenceDocument appends a document to the list. Duplicate names are
// allowed. The returned oversize flag is true when the content exceeds the
// size threshold; the document is kept either way.
func (s *Store) AddReferenceDocument(name, content string, uploadedAt time.Time) (oversize bool, err error) {
	if strings.TrimSpace(name) == "" {
		return false, ErrEmptyName
	}
	s.refDocs = append(s.refDocs, ReferenceDocument{
		Name:       name,
		Content:    content,
		UploadedAt: uploadedAt,
	})
	return len(content) > oversizeThreshold, nil
}

// RemoveReferenceDocument removes the document at index. An out-of-range
// index performs no mutation.
func (s *Store) RemoveReferenceDocument(index int) error {
	if index < 0 || index >= len(s.refDocs) {
		return ErrIndexOutOfRange
	}
	s.refDocs = append(s.refDocs[:index], s.refDocs[index+1:]...)
	return nil
}

// ComposeSystemPrompt concatenates the framework, the character sheet
// section when present, and the reference document sections when present,
// in that fixed order. Pure function of current state.
func (s *Store) ComposeSystemPrompt() string {
	var b strings.Builder
	b.WriteString(s.framework)

	banner := strings.Repeat("=", 60)

	if s.characterSheet != "" {
		b.WriteString("\n\n" + banner + "\n")
		b.WriteString("PERSISTENT CHARACTER SHEET & CONTINUITY LOG\n")
		b.WriteString("(Reference this for character details, relationships, and past events)\n")
		b.WriteString(banner + "\n\n")
		b.WriteString(s.characterSheet)
	}

	if len(s.refDocs) > 0 {
		b.WriteString("\n\n" + banner + "\n")
		b.WriteString("REFERENCE DOCUMENTS\n")
		b.WriteString(banner + "\n")
		for _, doc := range s.refDocs {
			b.WriteString("\n--- " + doc.Name + " ---\n")
			b.WriteString(doc.Content)
			b.WriteString("\n")
		}
	}

	return b.String()
}
