package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var png = []byte{0x89, 'P', 'N', 'G'}

func TestStoreEmpty(t *testing.T) {
	s := NewStore()
	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Versions())
}

func TestAddVersionChain(t *testing.T) {
	s := NewStore()

	a, err := s.AddVersion(png, "image/png", "a red fox", "")
	require.NoError(t, err)
	b, err := s.AddVersion(png, "image/png", "add a hat", a)
	require.NoError(t, err)
	c, err := s.AddVersion(png, "image/png", "make it night", b)
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, c, sel.ID, "newest version is selected")

	// Lineage walks back to the root via parent pointers.
	vc, ok := s.Get(c)
	require.True(t, ok)
	assert.Equal(t, b, vc.ParentID)
	vb, ok := s.Get(vc.ParentID)
	require.True(t, ok)
	assert.Equal(t, a, vb.ID)
	assert.Equal(t, a, vb.ParentID)
	va, ok := s.Get(vb.ParentID)
	require.True(t, ok)
	assert.Empty(t, va.ParentID, "root has no parent")

	// Display ordering is newest first.
	versions := s.Versions()
	require.Len(t, versions, 3)
	assert.Equal(t, []string{c, b, a}, []string{versions[0].ID, versions[1].ID, versions[2].ID})
}

func TestAddVersionRejectsUnknownParent(t *testing.T) {
	s := NewStore()
	_, err := s.AddVersion(png, "image/png", "p", "nope")
	require.ErrorIs(t, err, ErrUnknownParent)
	assert.Zero(t, s.Len())
}

func TestAddVersionRejectsEmptyImage(t *testing.T) {
	s := NewStore()
	_, err := s.AddVersion(nil, "image/png", "p", "")
	require.ErrorIs(t, err, ErrEmptyImage)
}

func TestBranchFromOlderVersion(t *testing.T) {
	s := NewStore()
	a, err := s.AddVersion(png, "image/png", "base", "")
	require.NoError(t, err)
	b, err := s.AddVersion(png, "image/png", "edit one", a)
	require.NoError(t, err)

	require.NoError(t, s.Select(a))
	sel, _ := s.Selected()
	assert.Equal(t, a, sel.ID)

	d, err := s.AddVersion(png, "image/png", "edit two", a)
	require.NoError(t, err)

	// Both branches stay reachable; selection moved to the new branch tip.
	vb, ok := s.Get(b)
	require.True(t, ok)
	assert.Equal(t, a, vb.ParentID)
	vd, ok := s.Get(d)
	require.True(t, ok)
	assert.Equal(t, a, vd.ParentID)

	sel, _ = s.Selected()
	assert.Equal(t, d, sel.ID)
	assert.Equal(t, 3, s.Len())
}

func TestSelectUnknownLeavesSelectionUntouched(t *testing.T) {
	s := NewStore()
	a, err := s.AddVersion(png, "image/png", "base", "")
	require.NoError(t, err)

	err = s.Select("missing")
	require.ErrorIs(t, err, ErrUnknownVersion)

	sel, ok := s.Selected()
	require.True(t, ok)
	assert.Equal(t, a, sel.ID)
}

func TestSelectIsIdempotent(t *testing.T) {
	s := NewStore()
	a, err := s.AddVersion(png, "image/png", "base", "")
	require.NoError(t, err)
	_, err = s.AddVersion(png, "image/png", "edit", a)
	require.NoError(t, err)

	require.NoError(t, s.Select(a))
	require.NoError(t, s.Select(a))

	sel, _ := s.Selected()
	assert.Equal(t, a, sel.ID)
	assert.Equal(t, 2, s.Len())
}

func TestVersionIDsAreUnique(t *testing.T) {
	s := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id, err := s.AddVersion(png, "image/png", "p", "")
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestSessionsLifecycle(t *testing.T) {
	sessions := NewSessions(time.Hour)

	id := sessions.Open()
	store, ok := sessions.Get(id)
	require.True(t, ok)
	require.NotNil(t, store)
	assert.Equal(t, 1, sessions.Len())

	// Stores are independent per session.
	other := sessions.Open()
	otherStore, ok := sessions.Get(other)
	require.True(t, ok)
	_, err := store.AddVersion(png, "image/png", "p", "")
	require.NoError(t, err)
	assert.Zero(t, otherStore.Len())

	sessions.Close(id)
	_, ok = sessions.Get(id)
	assert.False(t, ok)

	sessions.Close("unknown") // no-op
	assert.Equal(t, 1, sessions.Len())
}

func TestSessionsSweepExpiresIdle(t *testing.T) {
	sessions := NewSessions(time.Minute)
	id := sessions.Open()

	assert.Zero(t, sessions.Sweep(time.Now()), "fresh session must survive")
	assert.Equal(t, 1, sessions.Sweep(time.Now().Add(2*time.Minute)))

	_, ok := sessions.Get(id)
	assert.False(t, ok)
}

func TestSessionsZeroTTLNeverExpires(t *testing.T) {
	sessions := NewSessions(0)
	sessions.Open()
	assert.Zero(t, sessions.Sweep(time.Now().Add(24*time.Hour)))
	assert.Equal(t, 1, sessions.Len())
}
