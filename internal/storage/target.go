package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// File is a read/write handle over a finished recording, used to patch its header
type File interface {
	io.ReadWriteSeeker
	io.Closer
}

// Target is where one recording is persisted.
//
// Create opens the sink the capture loop appends to, in truncate-or-create
// mode. Open returns an independent handle over the same file; it is only
// called once the sink has been closed.
type Target interface {
	// Name identifies the file, typically its path
	Name() string

	// Create opens a fresh, empty sink
	Create() (io.WriteCloser, error)

	// Open opens the existing file for reading and patching
	Open() (File, error)
}

const (
	sandboxDirPerm  = 0700
	sandboxFilePerm = 0600
	userFilePerm    = 0644
)

// Sandbox is a target inside an application-private directory
type Sandbox struct {
	dir  string
	name string
}

// NewSandbox returns a sandboxed target with a generated file name.
// The directory is created on Create if it does not exist.
func NewSandbox(dir string) *Sandbox {
	return &Sandbox{
		dir:  dir,
		name: fmt.Sprintf("rec-%s.wav", uuid.NewString()),
	}
}

// Name returns the full path of the sandboxed file
func (s *Sandbox) Name() string {
	return filepath.Join(s.dir, s.name)
}

// Create creates the sandbox directory if needed and truncates the file
func (s *Sandbox) Create() (io.WriteCloser, error) {
	if err := os.MkdirAll(s.dir, sandboxDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create sandbox directory: %w", err)
	}
	return os.OpenFile(s.Name(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, sandboxFilePerm)
}

// Open opens the sandboxed file for reading and writing
func (s *Sandbox) Open() (File, error) {
	return os.OpenFile(s.Name(), os.O_RDWR, 0)
}

// UserPath is a target at a caller-chosen path. The parent directory must exist.
type UserPath struct {
	path string
}

// NewUserPath returns a target for path
func NewUserPath(path string) *UserPath {
	return &UserPath{path: path}
}

// Name returns the path
func (u *UserPath) Name() string {
	return u.path
}

// Create truncates or creates the file
func (u *UserPath) Create() (io.WriteCloser, error) {
	return os.OpenFile(u.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, userFilePerm)
}

// Open opens the file for reading and writing
func (u *UserPath) Open() (File, error) {
	return os.OpenFile(u.path, os.O_RDWR, 0)
}

// Resolve picks the target for a request: an explicit path wins, otherwise a
// new file in sandboxDir is used.
func Resolve(path, sandboxDir string) Target {
	if path != "" {
		return NewUserPath(path)
	}
	return NewSandbox(sandboxDir)
}
