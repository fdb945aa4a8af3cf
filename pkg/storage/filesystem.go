package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStorage persists blobs on disk under a base directory and serves them through signed links.
type FileStorage struct {
	baseDir string
	baseURL string
	signer  *SignedURLSigner
}

// NewFileStorage ensures the base directory exists. Download links are baseURL + "/" + token.
func NewFileStorage(baseDir, baseURL string, signer *SignedURLSigner) (*FileStorage, error) {
	if baseDir == "" {
		baseDir = "./blobs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileStorage{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/"), signer: signer}, nil
}

// Put copies r into a new file for key. It fails with ErrObjectExists when the file is already there.
func (s *FileStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare blob directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("create blob file %s: %w", key, ErrObjectExists)
		}
		return nil, fmt.Errorf("create blob file: %w", err)
	}
	written, copyErr := io.Copy(file, readerWithContext(ctx, r))
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, fmt.Errorf("write blob stream: %w", copyErr)
	}
	if size > 0 && written != size {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write blob stream: wrote %d of %d bytes", written, size)
	}
	url, err := s.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &Object{Key: key, URL: url, Size: written, ContentType: contentType}, nil
}

// Open returns a read-only handle for the stored file.
func (s *FileStorage) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open blob file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *FileStorage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob file: %w", err)
	}
	return nil
}

// URL signs a download link for key.
func (s *FileStorage) URL(_ context.Context, key string) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("signed url signer not configured")
	}
	token, _, err := s.signer.Generate(key)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + token, nil
}

// Resolve validates a download token and returns the object key it grants.
func (s *FileStorage) Resolve(token string) (string, error) {
	if s.signer == nil {
		return "", fmt.Errorf("signed url signer not configured")
	}
	key, _, err := s.signer.Parse(token, false)
	return key, err
}

// Exists reports whether key has a stored file.
func (s *FileStorage) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob file: %w", err)
	}
	return true, nil
}

func (s *FileStorage) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
