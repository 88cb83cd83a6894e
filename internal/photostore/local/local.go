package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vbonduro/phototasks/internal/photostore"
)

type LocalPhotoStore struct {
	basePath string
}

func NewLocalPhotoStore(basePath string) (*LocalPhotoStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &LocalPhotoStore{basePath: basePath}, nil
}

// Copy writes source to a temporary file next to the destination and renames
// it into place, so a failed copy never clobbers an existing photo.
func (s *LocalPhotoStore) Copy(ctx context.Context, source, namespace, name string) (string, error) {
	handle := path.Join(namespace, name)
	destPath, err := s.safeJoin(handle)
	if err != nil {
		return "", err
	}

	src, err := os.Open(sourcePath(source))
	if err != nil {
		return "", fmt.Errorf("failed to open source photo: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("failed to close source photo", "source", source, "error", cerr)
		}
	}()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create namespace directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		if cerr := tmp.Close(); cerr != nil {
			slog.Error("failed to close file after write error", "error", cerr)
		}
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove file after write error", "error", rerr)
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove file after rename error", "error", rerr)
		}
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}

	return handle, nil
}

func (s *LocalPhotoStore) Exists(ctx context.Context, handle string) (bool, error) {
	filePath, err := s.safeJoin(handle)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file: %w", err)
	}
	return !info.IsDir(), nil
}

func (s *LocalPhotoStore) Get(ctx context.Context, handle string) (io.ReadCloser, string, error) {
	filePath, err := s.safeJoin(handle)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, extToMimeType(filePath), nil
}

func (s *LocalPhotoStore) Delete(ctx context.Context, handle string) error {
	filePath, err := s.safeJoin(handle)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return photostore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalPhotoStore) Rename(ctx context.Context, handle, name string) (string, error) {
	srcPath, err := s.safeJoin(handle)
	if err != nil {
		return "", err
	}
	newHandle := path.Join(path.Dir(handle), name)
	destPath, err := s.safeJoin(newHandle)
	if err != nil {
		return "", err
	}

	if err := os.Rename(srcPath, destPath); err != nil {
		if os.IsNotExist(err) {
			return "", photostore.ErrNotFound
		}
		return "", fmt.Errorf("failed to rename file: %w", err)
	}
	return newHandle, nil
}

// safeJoin resolves handle relative to basePath and rejects directory traversal.
func (s *LocalPhotoStore) safeJoin(handle string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, filepath.FromSlash(handle)))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

// sourcePath accepts either a plain path or a file:// URI.
func sourcePath(source string) string {
	return filepath.FromSlash(strings.TrimPrefix(source, "file://"))
}

func extToMimeType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
