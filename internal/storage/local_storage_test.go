package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/stretchr/testify/require"
)

func TestNewLocalStorage(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "nested", "storage")

	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)
	require.NotNil(t, storage)
	require.Equal(t, tempDir, storage.basePath)

	_, err = os.Stat(tempDir)
	require.NoError(t, err, "Base directory should be created")
}

func TestLocalStorage_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	content := "Hello, world!"

	key, size, err := storage.Put(ctx, "", "greeting.txt", strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, int64(len(content)), size)
	require.True(t, strings.HasSuffix(key, ".txt"), "extension should be preserved, got %s", key)
	require.NotContains(t, key, "greeting", "original name must not leak into the key")

	expectedPath, err := storage.getPathFromKey(key)
	require.NoError(t, err)
	fileInfo, err := os.Stat(expectedPath)
	require.NoError(t, err, "File should exist after put")
	require.Equal(t, int64(len(content)), fileInfo.Size())

	readCloser, err := storage.Get(ctx, key)
	require.NoError(t, err)
	retrieved, err := io.ReadAll(readCloser)
	require.NoError(t, err)
	readCloser.Close()
	require.Equal(t, content, string(retrieved))

	require.NoError(t, storage.Delete(ctx, key))

	_, err = os.Stat(expectedPath)
	require.True(t, os.IsNotExist(err), "File should not exist after delete")

	_, err = storage.Get(ctx, key)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestLocalStorage_SameNameGetsDistinctKeys(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	const uploads = 50
	var (
		mu   sync.Mutex
		keys = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key, _, err := storage.Put(ctx, "", "report.pdf", strings.NewReader("x"))
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			keys[key] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, keys, uploads)
}

func TestLocalStorage_GetNonExistent(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = storage.Get(context.Background(), "ab/non_existent_key")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestLocalStorage_DeleteNonExistent(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	// Usunięcie nieistniejącego pliku nie powinno zwracać błędu
	err = storage.Delete(context.Background(), "ab/non_existent_key")
	require.NoError(t, err)
}

func TestLocalStorage_RejectsEscapingKeys(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		_, err := storage.Get(context.Background(), key)
		require.Error(t, err, key)
		require.Error(t, storage.Delete(context.Background(), key), key)
	}
}

func TestLocalStorage_PutWithLargeData(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	largeContent := bytes.Repeat([]byte{'a'}, 1024*1024)

	key, size, err := storage.Put(context.Background(), "", "large.bin", bytes.NewReader(largeContent))
	require.NoError(t, err)
	require.Equal(t, int64(len(largeContent)), size)

	expectedPath, err := storage.getPathFromKey(key)
	require.NoError(t, err)
	fileInfo, err := os.Stat(expectedPath)
	require.NoError(t, err)
	require.Equal(t, int64(len(largeContent)), fileInfo.Size())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestLocalStorage_PutFailureLeavesNothing(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalStorage(tempDir)
	require.NoError(t, err)

	_, _, err = storage.Put(context.Background(), "", "broken.txt", failingReader{})
	require.ErrorIs(t, err, models.ErrWriteFailure)

	var files []string
	filepath.WalkDir(tempDir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.Empty(t, files, "partial blob should be removed")
}

func TestLocalStorage_Directories(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	folder, err := storage.MakeDir(ctx, "")
	require.NoError(t, err)
	sub, err := storage.MakeDir(ctx, folder)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(sub, folder+"/"))

	key, _, err := storage.Put(ctx, sub, "inner.txt", strings.NewReader("inside"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, sub+"/"))

	require.NoError(t, storage.RemoveDir(ctx, folder))

	_, err = storage.Get(ctx, key)
	require.ErrorIs(t, err, models.ErrNotFound)

	folderPath, err := storage.getPathFromKey(folder)
	require.NoError(t, err)
	_, err = os.Stat(folderPath)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, storage.RemoveDir(ctx, folder), "removing twice is a no-op")
}

func TestLocalStorage_RemovedFolderIsNotRecreated(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	folder, err := storage.MakeDir(ctx, "")
	require.NoError(t, err)
	require.NoError(t, storage.RemoveDir(ctx, folder))

	_, _, err = storage.Put(ctx, folder, "late.txt", strings.NewReader("late"))
	require.ErrorIs(t, err, models.ErrWriteFailure)

	_, err = storage.MakeDir(ctx, folder)
	require.ErrorIs(t, err, models.ErrWriteFailure)

	folderPath, err := storage.getPathFromKey(folder)
	require.NoError(t, err)
	_, err = os.Stat(folderPath)
	require.True(t, os.IsNotExist(err))
}

func TestLocalStorage_GetDirectoryIsNotABlob(t *testing.T) {
	ctx := context.Background()
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	folder, err := storage.MakeDir(ctx, "")
	require.NoError(t, err)

	_, err = storage.Get(ctx, folder)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSafeExt(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":           ".JPG",
		"archive.tar.gz":      ".gz",
		"noext":               "",
		"weird.ex t":          "",
		"dir\\evil.sh":        ".sh",
		"x.verylongextension": "",
		".":                   "",
	}
	for name, want := range cases {
		require.Equal(t, want, safeExt(name), name)
	}
}
