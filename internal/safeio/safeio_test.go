package safeio

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_AppendAndRead(t *testing.T) {
	d, err := Open(filepath.Join(t.TempDir(), "records"))
	require.NoError(t, err)

	for _, line := range []string{"a\n", "b\n"} {
		f, err := d.OpenAppend("run-1.jsonl")
		require.NoError(t, err)
		_, err = io.WriteString(f, line)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	got, err := d.ReadFile("run-1.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(got))

	_, err = d.ReadFile("missing.jsonl")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDir_RejectsEscapes(t *testing.T) {
	root := t.TempDir()
	d, err := Open(filepath.Join(root, "inner"))
	require.NoError(t, err)

	for _, name := range []string{"../x", "..", "/etc/passwd", "a/../../x"} {
		_, err := d.OpenAppend(name)
		assert.ErrorIs(t, err, ErrOutsideRoot, name)
	}

	outside := filepath.Join(root, "outside")
	require.NoError(t, os.Mkdir(outside, 0o755))
	if err := os.Symlink(outside, filepath.Join(d.Root(), "link")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	_, err = d.OpenAppend(filepath.Join("link", "x.jsonl"))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}
