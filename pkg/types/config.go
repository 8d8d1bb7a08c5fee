package types

import (
	"errors"
	"path/filepath"
	"strings"
)

// Config holds the storage parameters for Backend.Attach.
type Config struct {
	DataDir string   `json:"data_dir" yaml:"data_dir"`
	DBFile  string   `json:"db_file" yaml:"db_file"`
	Classes []string `json:"classes" yaml:"classes"` // Seeded into the classes table on first run.
	Houses  []string `json:"houses" yaml:"houses"`   // Seeded into the houses table on first run.
}

// DefaultDBFile is the database file name used when Config.DBFile is empty.
const DefaultDBFile = "library.db"

// Config validation errors.
var (
	ErrDataDirEmpty  = errors.New("data directory must not be empty")
	ErrDBFileInvalid = errors.New("database file must be a plain file name")
)

// DatabaseFile returns the configured database file name or DefaultDBFile.
func (c Config) DatabaseFile() string {
	if c.DBFile == "" {
		return DefaultDBFile
	}
	return c.DBFile
}

// DatabasePath returns the database file inside DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile())
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if strings.ContainsAny(c.DBFile, `/\`) {
		return ErrDBFileInvalid
	}
	return nil
}
