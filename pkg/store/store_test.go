package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloco-robotics/bloco"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "state.yaml"))
}

func TestMissingFileReadsUnpaired(t *testing.T) {
	t.Parallel()

	s := tempStore(t)
	_, ok, err := s.LoadPairedAddr()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	s := tempStore(t)
	addr := bloco.Addr{0xAA, 0xBB, 0xCC, 0x01, 0x02, 0x03}
	require.NoError(t, s.SavePairedAddr(addr))

	got, ok, err := s.LoadPairedAddr()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, addr, got)
}

func TestClearForgetsAddr(t *testing.T) {
	t.Parallel()

	s := tempStore(t)
	require.NoError(t, s.SavePairedAddr(bloco.Addr{1, 2, 3, 4, 5, 6}))
	require.NoError(t, s.ClearPairedAddr())

	_, ok, err := s.LoadPairedAddr()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoleSurvivesAddrChanges(t *testing.T) {
	t.Parallel()

	s := tempStore(t)
	require.NoError(t, s.SaveRole(bloco.RoleBoard))
	require.NoError(t, s.SavePairedAddr(bloco.Addr{1, 2, 3, 4, 5, 6}))
	require.NoError(t, s.ClearPairedAddr())

	data, err := os.ReadFile(s.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "role: board")
}

func TestCorruptFileSurfacesError(t *testing.T) {
	t.Parallel()

	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("paired_addr: [not a string"), 0o644))
	_, _, err := s.LoadPairedAddr()
	assert.Error(t, err)
}

func TestPersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.yaml")
	first := NewFileStore(path)
	addr := bloco.Addr{9, 8, 7, 6, 5, 4}
	require.NoError(t, first.SavePairedAddr(addr))

	second := NewFileStore(path)
	got, ok, err := second.LoadPairedAddr()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, addr, got)
}
