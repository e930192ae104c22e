package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlane/derby/internal/model"
	"github.com/fairlane/derby/pkg/kvstore"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	kv, err := kvstore.NewBadgerStore(t.TempDir(), "", kvstore.JSON)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return NewStore(kv)
}

func TestStore(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Put(&Racer{
		ID:         "racer-1",
		Owner:      "alice",
		Attributes: model.Attributes{A: 7, B: 5, C: 6},
	}))

	owner, err := s.OwnerOf("racer-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	attrs, err := s.AttributesOf("racer-1")
	require.NoError(t, err)
	assert.Equal(t, model.Attributes{A: 7, B: 5, C: 6}, attrs)

	_, err = s.OwnerOf("ghost")
	assert.ErrorIs(t, err, ErrUnknownAsset)
	_, err = s.AttributesOf("ghost")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestStore_Transfer(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Put(&Racer{ID: "racer-1", Owner: "alice"}))
	require.NoError(t, s.Transfer("racer-1", "bob"))

	owner, err := s.OwnerOf("racer-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)

	assert.ErrorIs(t, s.Transfer("ghost", "bob"), ErrUnknownAsset)
}
