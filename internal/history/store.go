// Package history maintains the append-only forest of image versions produced
// during an editing session. Each version points at the version it was derived
// from, so editing an older selection branches the history rather than
// rewriting it.
package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownVersion is returned when an id does not name a version in the store.
	ErrUnknownVersion = errors.New("history: unknown version id")
	// ErrUnknownParent is returned when a new version names a parent that does not exist.
	ErrUnknownParent = errors.New("history: unknown parent id")
	// ErrEmptyImage is returned when a version is added without image data.
	ErrEmptyImage = errors.New("history: empty image data")
)

// Version is one produced image plus its provenance. ParentID is empty for a
// root (freshly generated) version. Versions are never mutated after creation.
type Version struct {
	ID           string
	ImageData    []byte
	MIMEType     string
	OriginPrompt string
	ParentID     string
	CreatedAt    time.Time
}

// Store holds the versions of one session, newest first, with exactly one
// selected version once any exist. It is append-only: versions are never
// updated or removed for the lifetime of the store.
type Store struct {
	mu       sync.Mutex
	versions []*Version
	byID     map[string]*Version
	selected string
}

// NewStore constructs an empty store. One store is created per session and
// discarded with it; nothing is persisted.
func NewStore() *Store {
	return &Store{byID: make(map[string]*Version)}
}

// AddVersion records a successful render as a new version, inserts it at the
// front of the display ordering, selects it, and returns its id. parentID must
// be empty (root) or name an existing version.
func (s *Store) AddVersion(imageData []byte, mimeType, originPrompt, parentID string) (string, error) {
	if len(imageData) == 0 {
		return "", ErrEmptyImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if parentID != "" {
		if _, ok := s.byID[parentID]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownParent, parentID)
		}
	}

	v := &Version{
		ID:           newVersionID(),
		ImageData:    imageData,
		MIMEType:     mimeType,
		OriginPrompt: originPrompt,
		ParentID:     parentID,
		CreatedAt:    time.Now(),
	}
	s.versions = append([]*Version{v}, s.versions...)
	s.byID[v.ID] = v
	s.selected = v.ID
	return v.ID, nil
}

// Select makes the version with the given id the current preview and the base
// for the next edit. An unknown id leaves the selection untouched.
func (s *Store) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVersion, id)
	}
	s.selected = id
	return nil
}

// Selected returns the currently selected version, or false when the store is
// empty.
func (s *Store) Selected() (*Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return nil, false
	}
	v, ok := s.byID[s.selected]
	return v, ok
}

// Get returns the version with the given id.
func (s *Store) Get(id string) (*Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.byID[id]
	return v, ok
}

// Versions returns a snapshot of all versions, newest first.
func (s *Store) Versions() []*Version {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Version, len(s.versions))
	copy(out, s.versions)
	return out
}

// Len reports the number of versions recorded.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.versions)
}

// newVersionID builds a timestamp-prefixed id so versions sort by creation
// time; the uuid suffix keeps ids collision-free within a session.
func newVersionID() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
