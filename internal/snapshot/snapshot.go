// Package snapshot persists point-in-time session copies as JSON files in
// the stories directory: regular session snapshots saved on demand, and
// write-once archive snapshots taken before a trim.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexusforge/nexus/internal/chat"
	"github.com/nexusforge/nexus/internal/continuity"
)

// Version is written into every snapshot file
const Version = "1.0"

// TypeArchive tags snapshots written by the archive-and-trim pipeline
const TypeArchive = "archive"

var (
	// ErrSnapshotNotFound is returned when no snapshot exists by that name.
	ErrSnapshotNotFound = errors.New("snapshot: not found")

	// ErrInvalidName is returned when a snapshot name contains a path
	// separator or traversal sequence.
	ErrInvalidName = errors.New("snapshot: invalid name")
)

// Snapshot is the persisted unit: a point-in-time copy of the session.
// Loading one replaces the message log, character sheet, and reference
// documents, but never the framework.
type Snapshot struct {
	ID                 string                         `json:"id"`
	Version            string                         `json:"version"`
	Created            time.Time                      `json:"created"`
	Type               string                         `json:"type,omitempty"`
	Provider           string                         `json:"provider"`
	Model              string                         `json:"model"`
	Temperature        float64                        `json:"temperature"`
	Messages           []chat.Turn                    `json:"messages"`
	CharacterSheet     string                         `json:"character_sheet"`
	ReferenceDocuments []continuity.ReferenceDocument `json:"reference_documents,omitempty"`
}

// Info describes a stored snapshot file
type Info struct {
	Name    string
	Path    string
	ModTime time.Time
}

// Store reads and writes snapshot files under a single directory
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a snapshot store rooted at dir
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stories directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory
func (s *Store) Dir() string {
	return s.dir
}

func validateName(name string) error {
	if name == "" {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ErrInvalidName
	}
	return nil
}

// Save writes a session snapshot. An empty name gets a timestamped default
// of the form session_YYYYMMDD_HHMMSS.json. Returns the file name used.
func (s *Store) Save(snap *Snapshot, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = fmt.Sprintf("session_%s.json", time.Now().Format("20060102_150405"))
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	if err := validateName(name); err != nil {
		return "", err
	}

	s.stamp(snap)
	return name, s.write(name, snap)
}

// SaveArchive writes a write-once archive snapshot named
// <base>_archive_YYYYMMDD_HHMMSS.json. The base is derived from the current
// session file name, or "session" when the session has never been saved.
func (s *Store) SaveArchive(snap *Snapshot, sessionName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := "session"
	if sessionName != "" {
		base = strings.TrimSuffix(filepath.Base(sessionName), ".json")
		if i := strings.Index(base, "_"); i > 0 {
			base = base[:i]
		}
	}

	name := fmt.Sprintf("%s_archive_%s.json", base, time.Now().Format("20060102_150405"))
	if err := validateName(name); err != nil {
		return "", err
	}

	snap.Type = TypeArchive
	s.stamp(snap)
	return name, s.write(name, snap)
}

func (s *Store) stamp(snap *Snapshot) {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.Version == "" {
		snap.Version = Version
	}
	if snap.Created.IsZero() {
		snap.Created = time.Now()
	}
}

func (s *Store) write(name string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot by file name
func (s *Store) Load(name string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &snap, nil
}

// List returns session snapshots, most recent first. Archive files are
// excluded; they are manual-recovery artifacts, never offered for loading.
func (s *Store) List() ([]Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read stories directory: %w", err)
	}

	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if strings.Contains(entry.Name(), "_archive_") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Name:    entry.Name(),
			Path:    filepath.Join(s.dir, entry.Name()),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModTime.After(infos[j].ModTime)
	})
	return infos, nil
}
