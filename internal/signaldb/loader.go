package signaldb

import (
	"errors"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/afero"
)

// ErrNotFound is returned when the signal database file does not exist.
var ErrNotFound = errors.New("signal database not found")

// Loader reads signal databases from a filesystem and caches parsed results
// keyed by path, size and modification time.
type Loader struct {
	fs    afero.Fs
	cache *lru.Cache
}

// NewLoader creates a Loader with an LRU cache holding up to cacheSize databases.
func NewLoader(fs afero.Fs, cacheSize int) (*Loader, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating signal database cache: %w", err)
	}
	return &Loader{fs: fs, cache: cache}, nil
}

// Exists reports whether path names a readable file.
func (l *Loader) Exists(path string) bool {
	info, err := l.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// Load returns the parsed database at path, reusing a cached copy while the file
// is unchanged.
func (l *Loader) Load(path string) (*Database, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat signal database %s: %w", path, err)
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if cached, ok := l.cache.Get(key); ok {
		return cached.(*Database), nil
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading signal database %s: %w", path, err)
	}

	db, err := Parse(path, data)
	if err != nil {
		return nil, err
	}
	l.cache.Add(key, db)
	return db, nil
}
