// Package storage resolves named CAN log resources and persists per-user derived values.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/charge-telemetry/backend/internal/models"
)

// Catalog is the fixed enumeration of replayable logs plus the signal database
// location, rooted at one data directory.
type Catalog struct {
	fs         afero.Fs
	dataDir    string
	dbcFile    string
	defaultLog string
	logs       []models.LogResource
	byName     map[string]models.LogResource
}

// NewCatalog creates a catalog. Log names must be unique and non-empty; an empty
// defaultLog selects the first entry.
func NewCatalog(fs afero.Fs, dataDir, dbcFile, defaultLog string, logs []models.LogResource) (*Catalog, error) {
	if len(logs) == 0 {
		return nil, fmt.Errorf("catalog has no logs")
	}

	byName := make(map[string]models.LogResource, len(logs))
	for _, l := range logs {
		if l.Name == "" || l.File == "" {
			return nil, fmt.Errorf("catalog entry needs a name and a file: %+v", l)
		}
		if _, dup := byName[l.Name]; dup {
			return nil, fmt.Errorf("duplicate log name: %s", l.Name)
		}
		byName[l.Name] = l
	}

	if defaultLog == "" {
		defaultLog = logs[0].Name
	}
	if _, ok := byName[defaultLog]; !ok {
		return nil, fmt.Errorf("default log %q is not in the catalog", defaultLog)
	}

	return &Catalog{
		fs:         fs,
		dataDir:    dataDir,
		dbcFile:    dbcFile,
		defaultLog: defaultLog,
		logs:       append([]models.LogResource(nil), logs...),
		byName:     byName,
	}, nil
}

// Fs returns the filesystem the catalog resolves against.
func (c *Catalog) Fs() afero.Fs {
	return c.fs
}

// DataDir returns the data directory.
func (c *Catalog) DataDir() string {
	return c.dataDir
}

// DefaultLog returns the name used when a request names no log.
func (c *Catalog) DefaultLog() string {
	return c.defaultLog
}

// Names returns the log names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.logs))
	for i, l := range c.logs {
		names[i] = l.Name
	}
	return names
}

// Logs returns a copy of the catalog entries.
func (c *Catalog) Logs() []models.LogResource {
	return append([]models.LogResource(nil), c.logs...)
}

// LogPath resolves a log name to its file path.
func (c *Catalog) LogPath(name string) (string, bool) {
	l, ok := c.byName[name]
	if !ok {
		return "", false
	}
	return c.resolve(l.File), true
}

// SignalDBPath returns the signal database path.
func (c *Catalog) SignalDBPath() string {
	return c.resolve(c.dbcFile)
}

// Exists reports whether path is an existing regular file.
func (c *Catalog) Exists(path string) bool {
	info, err := c.fs.Stat(path)
	return err == nil && !info.IsDir()
}

// LogStatuses reports every entry's resolved path and whether the file exists.
func (c *Catalog) LogStatuses() map[string]models.LogFileStatus {
	out := make(map[string]models.LogFileStatus, len(c.logs))
	for _, l := range c.logs {
		path := c.resolve(l.File)
		out[l.Name] = models.LogFileStatus{
			Filename: l.File,
			Path:     path,
			Exists:   c.Exists(path),
		}
	}
	return out
}

func (c *Catalog) resolve(file string) string {
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(c.dataDir, file)
}

type manifest struct {
	Logs []models.LogResource `yaml:"logs"`
}

// LoadManifest reads a YAML catalog manifest:
//
//	logs:
//	  - name: charge
//	    file: Model3Log2019-01-13LowTempDriveCharge.asc
func LoadManifest(fs afero.Fs, path string) ([]models.LogResource, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing catalog manifest: %w", err)
	}
	if len(m.Logs) == 0 {
		return nil, fmt.Errorf("catalog manifest %s lists no logs", path)
	}
	return m.Logs, nil
}
