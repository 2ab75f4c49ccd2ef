package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BAPONBARMON/file-server/internal/models"
)

const maxKeyAttempts = 5

var errInvalidKey = errors.New("invalid storage key")

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		return nil, err
	}
	return &LocalStorage{basePath: basePath}, nil
}

// getPathFromKey maps a key onto the storage tree, refusing keys that would
// escape the base directory.
func (ls *LocalStorage) getPathFromKey(key string) (string, error) {
	if key == "" || !filepath.IsLocal(filepath.FromSlash(key)) {
		return "", fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return filepath.Join(ls.basePath, filepath.FromSlash(key)), nil
}

// ensureShard creates the shard directory of a root level key. A folder
// directory is never recreated: writing into a removed folder must fail.
func (ls *LocalStorage) ensureShard(dir, path string) error {
	if dir != "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("%w: %w", models.ErrWriteFailure, err)
	}
	return nil
}

func (ls *LocalStorage) Put(ctx context.Context, dir, suggestedName string, data io.Reader) (string, int64, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key := newKey(dir, suggestedName)
		filePath, err := ls.getPathFromKey(key)
		if err != nil {
			return "", 0, fmt.Errorf("%w: %w", models.ErrWriteFailure, err)
		}

		if err := ls.ensureShard(dir, filePath); err != nil {
			return "", 0, err
		}

		file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("%w: %w", models.ErrWriteFailure, err)
		}

		size, err := io.Copy(file, data)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			os.Remove(filePath)
			return "", 0, fmt.Errorf("%w: %w", models.ErrWriteFailure, err)
		}

		return key, size, nil
	}

	return "", 0, fmt.Errorf("%w: no free key after %d attempts", models.ErrWriteFailure, maxKeyAttempts)
}

func (ls *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	filePath, err := ls.getPathFromKey(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob %s: %w", key, models.ErrNotFound)
		}
		return nil, err
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, fmt.Errorf("blob %s is a directory: %w", key, models.ErrNotFound)
	}

	return file, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	filePath, err := ls.getPathFromKey(key)
	if err != nil {
		return err
	}

	err = os.Remove(filePath)
	if os.IsNotExist(err) {
		return nil
	}

	return err
}

func (ls *LocalStorage) MakeDir(ctx context.Context, parentDir string) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key := newKey(parentDir, "")
		dirPath, err := ls.getPathFromKey(key)
		if err != nil {
			return "", fmt.Errorf("%w: %w", models.ErrWriteFailure, err)
		}

		if err := ls.ensureShard(parentDir, dirPath); err != nil {
			return "", err
		}

		err = os.Mkdir(dirPath, os.ModePerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("%w: %w", models.ErrWriteFailure, err)
		}
		return key, nil
	}

	return "", fmt.Errorf("%w: no free key after %d attempts", models.ErrWriteFailure, maxKeyAttempts)
}

func (ls *LocalStorage) RemoveDir(ctx context.Context, key string) error {
	dirPath, err := ls.getPathFromKey(key)
	if err != nil {
		return err
	}
	return os.RemoveAll(dirPath)
}
