package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloco-robotics/bloco"
	"github.com/bloco-robotics/bloco/pkg/eyes"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bloco.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "role: board\ndevice_name: reader-1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, bloco.RoleBoard, cfg.Role)
	assert.Equal(t, "reader-1", cfg.DeviceName)
	assert.Equal(t, DefaultLinkKind, cfg.LinkKind)
	assert.Equal(t, DefaultSlots, cfg.Slots)
}

func TestInvalidRoleRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "role: drone\n")
	_, err := Load(path)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "role", verr.Field)
}

func TestInvalidSlotsRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "role: board\nslots: 0\n")
	_, err := Load(path)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slots", verr.Field)
}

func TestMalformedYAMLRejected(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "role: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEyeStyleMapping(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.Equal(t, eyes.StylePupil, cfg.Style())
	cfg.EyeStyle = "solid"
	assert.Equal(t, eyes.StyleSolid, cfg.Style())
}
