package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"
)

// FilesystemStore keeps objects in a flat directory of an afero filesystem. Locators are
// object names relative to that directory.
type FilesystemStore struct {
	fs         afero.Fs
	publicPath string
	clock      func() time.Time
}

// Option customises a FilesystemStore.
type Option func(*FilesystemStore)

// WithClock overrides the time source used to prefix object names.
func WithClock(clock func() time.Time) Option {
	return func(s *FilesystemStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewLocalStore stores objects below root on the operating system filesystem.
func NewLocalStore(root, publicPath string, opts ...Option) (*FilesystemStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return NewFilesystemStore(afero.NewBasePathFs(afero.NewOsFs(), root), publicPath, opts...), nil
}

// NewMemoryStore keeps objects in memory. Contents are lost on restart.
func NewMemoryStore(publicPath string, opts ...Option) *FilesystemStore {
	return NewFilesystemStore(afero.NewMemMapFs(), publicPath, opts...)
}

// NewFilesystemStore wraps an arbitrary afero filesystem.
func NewFilesystemStore(fsys afero.Fs, publicPath string, opts ...Option) *FilesystemStore {
	publicPath = "/" + strings.Trim(strings.TrimSpace(publicPath), "/")
	if publicPath == "/" {
		publicPath = "/uploads"
	}
	s := &FilesystemStore{fs: fsys, publicPath: publicPath, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FilesystemStore) Save(ctx context.Context, obj Object, r io.Reader) (Stored, error) {
	if err := ctx.Err(); err != nil {
		return Stored{}, err
	}

	base := ObjectName(obj.Name, s.clock())
	name := base
	var (
		file afero.File
		err  error
	)
	for attempt := 1; ; attempt++ {
		file, err = s.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) || attempt >= maxNameAttempts {
			return Stored{}, fmt.Errorf("storage: create %s: %w", name, err)
		}
		name = suffixed(base, attempt)
	}

	written, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = s.fs.Remove(name)
		return Stored{}, fmt.Errorf("storage: write %s: %w", name, err)
	}

	return Stored{Locator: name, Name: name, Size: written}, nil
}

func (s *FilesystemStore) Open(ctx context.Context, locator string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanLocator(locator)
	if err != nil {
		return nil, err
	}
	file, err := s.fs.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", name, err)
	}
	return file, nil
}

func (s *FilesystemStore) Delete(_ context.Context, locator string) error {
	name, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", name, err)
	}
	return nil
}

func (s *FilesystemStore) URL(locator string) string {
	return path.Join(s.publicPath, path.Base(locator))
}

// ObjectName derives a collision-resistant, filesystem safe name of the form
// <unix millis>_<slug>.<ext> from a client supplied file name.
func ObjectName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(original), "\\", "/"))
	ext := strings.ToLower(filepath.Ext(base))
	stem := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "document"
	}
	if len(stem) > 80 {
		stem = strings.Trim(stem[:80], "-")
	}
	ext = "." + slug.Make(strings.TrimPrefix(ext, "."))
	if ext == "." {
		ext = ""
	}
	return fmt.Sprintf("%d_%s%s", now.UnixMilli(), stem, ext)
}

const maxNameAttempts = 16

func suffixed(name string, n int) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
}

func cleanLocator(locator string) (string, error) {
	name := path.Base(strings.TrimSpace(locator))
	if name == "." || name == "/" || name == "" || name != strings.TrimSpace(locator) {
		return "", ErrNotFound
	}
	return name, nil
}
