package repository

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/JonnyShabli/imgfetch/pkg/logster"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
	imageExt             = ".jpg"
)

var indexPattern = regexp.MustCompile(`^(\d+)\.jpg$`)

type StorageInterface interface {
	Dir() string
	EnsureDir() error
	HighestIndex() (int, error)
	Path(index int) string
	Create(index int) (*os.File, string, error)
	Remove(path string) error
}

// Storage is the flat directory of numbered images.
type Storage struct {
	dir    string
	logger logster.Logger
}

func NewStorage(dir string, logger logster.Logger) *Storage {
	return &Storage{
		dir:    dir,
		logger: logger.WithField("Layer", "Repository"),
	}
}

func (s *Storage) Dir() string {
	return s.dir
}

// EnsureDir creates the image directory if it is missing.
func (s *Storage) EnsureDir() error {
	if s.dir == "" {
		return errors.New("empty dir path")
	}
	info, err := os.Stat(s.dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("ensure dir %s: %w", s.dir, fs.ErrExist)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ensure dir %s: %w", s.dir, err)
	}
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("ensure dir %s: %w", s.dir, err)
	}
	s.logger.Infof("created image directory %s", s.dir)
	return nil
}

// HighestIndex returns the largest N for which N.jpg exists, or 0.
// A missing directory is not an error.
func (s *Storage) HighestIndex() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan %s: %w", s.dir, err)
	}

	highest := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		m := indexPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			s.logger.WithError(err).Warnf("skipping %s: index out of range", e.Name())
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (s *Storage) Path(index int) string {
	return filepath.Join(s.dir, strconv.Itoa(index)+imageExt)
}

// Create opens a new image file for index. It never truncates an existing one.
func (s *Storage) Create(index int) (*os.File, string, error) {
	path := s.Path(index)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return nil, path, fmt.Errorf("create %s: %w", path, err)
	}
	return f, path, nil
}

func (s *Storage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
