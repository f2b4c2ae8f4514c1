package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxFiles    = 5
	MaxFileSize = 5 << 20
)

// ErrInvalidUpload wraps every rejection caused by the client's files.
var ErrInvalidUpload = errors.New("invalid upload")

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStore keeps product images on local disk; the directory is served
// statically under BaseURL.
type LocalStore struct {
	Dir     string
	BaseURL string
	now     func() time.Time
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload folder: %w", err)
	}
	return &LocalStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/"), now: time.Now}, nil
}

// SaveAll validates every file before writing any, then stores them and
// returns their public URLs. On a write failure the files already written
// are removed.
func (s *LocalStore) SaveAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	if len(files) > MaxFiles {
		return nil, fmt.Errorf("%w: at most %d images are allowed", ErrInvalidUpload, MaxFiles)
	}
	exts := make([]string, len(files))
	for i, fh := range files {
		ext, err := checkImage(fh)
		if err != nil {
			return nil, err
		}
		exts[i] = ext
	}

	urls := make([]string, 0, len(files))
	for i, fh := range files {
		if err := ctx.Err(); err != nil {
			s.removeAll(ctx, urls)
			return nil, err
		}
		name := fmt.Sprintf("product-%s-%d%s", uuid.NewString(), s.now().UnixMilli(), exts[i])
		if err := s.write(fh, filepath.Join(s.Dir, name)); err != nil {
			s.removeAll(ctx, urls)
			return nil, fmt.Errorf("failed to save image: %w", err)
		}
		urls = append(urls, s.BaseURL+"/"+name)
	}
	return urls, nil
}

// Delete removes the file behind a URL produced by SaveAll. URLs outside
// BaseURL and files already gone are ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.BaseURL+"/") {
		return nil
	}
	name := filepath.Base(strings.TrimPrefix(url, s.BaseURL+"/"))
	if name == "." || name == "/" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) removeAll(ctx context.Context, urls []string) {
	for _, u := range urls {
		_ = s.Delete(ctx, u)
	}
}

func (s *LocalStore) write(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, io.LimitReader(src, MaxFileSize+1)); err != nil {
		dst.Close()
		os.Remove(path)
		return err
	}
	return dst.Close()
}

// checkImage sniffs the content rather than trusting the client's header.
func checkImage(fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxFileSize {
		return "", fmt.Errorf("%w: %s is larger than %d MB", ErrInvalidUpload, fh.Filename, MaxFileSize>>20)
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ext, ok := imageExt[http.DetectContentType(head[:n])]
	if !ok {
		return "", fmt.Errorf("%w: not an image! please upload only images", ErrInvalidUpload)
	}
	return ext, nil
}
