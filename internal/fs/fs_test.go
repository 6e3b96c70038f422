package fs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "segments")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "frames_1.trjv")
	f, err := Create(lfs, path)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())
	require.NoError(t, f.Close())

	f, err = Open(lfs, path)
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, "hello", string(data))

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	renamed := filepath.Join(dir, "frames_2.trjv")
	require.NoError(t, lfs.Rename(path, renamed))
	_, err = lfs.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = lfs.Stat(renamed)
	require.NoError(t, err)

	require.NoError(t, lfs.Remove(renamed))
	_, err = lfs.Stat(renamed)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_Rules(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(nil)

	ffs.AddRule("episodes_", Fault{FailOnOpen: true})
	_, err := Create(ffs, filepath.Join(tmp, "episodes_1.csv"))
	require.ErrorIs(t, err, ErrInjected)

	ffs.ClearRules()
	ffs.AddRule("frames_", Fault{FailOnWrite: true, FailAfterBytes: 4})
	f, err := Create(ffs, filepath.Join(tmp, "frames_1.trjv"))
	require.NoError(t, err)
	_, err = f.Write([]byte("abcd"))
	require.NoError(t, err)
	_, err = f.Write([]byte("e"))
	require.ErrorIs(t, err, ErrInjected)
	require.NoError(t, f.Close())

	ffs.ClearRules()
	ffs.AddRule("frames_", Fault{FailOnSync: true, FailOnClose: true})
	f, err = Create(ffs, filepath.Join(tmp, "frames_2.trjv"))
	require.NoError(t, err)
	_, err = f.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.ErrorIs(t, f.Sync(), ErrInjected)
	require.ErrorIs(t, f.Close(), ErrInjected)

	ffs.ClearRules()
	ffs.AddRule("episodes_3", Fault{FailOnRename: true})
	src := filepath.Join(tmp, "tmp")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.ErrorIs(t, ffs.Rename(src, filepath.Join(tmp, "episodes_3.csv")), ErrInjected)
	require.NoError(t, ffs.Rename(src, filepath.Join(tmp, "episodes_4.csv")))

	assert.Equal(t, 1, ffs.Opens(filepath.Join(tmp, "frames_2.trjv")))
}
