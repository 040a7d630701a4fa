// Package shmem manages the named POSIX shared memory object backing a
// channel: exclusive-create-or-open rendezvous, sizing, mapping, and the
// ready-word publication that lets the opener join safely.
package shmem

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ErrInvalidName is returned when the shared object name violates the
// kernel's naming rules.
var ErrInvalidName = errors.New("invalid shared memory name")

// shmDir is where the kernel exposes POSIX shared memory objects.
const shmDir = "/dev/shm"

// nameMax bounds the path component after the leading slash.
const nameMax = 255

// Role distinguishes the peer that created the shared object from the one
// that attached to an existing object.
type Role int

const (
	// RoleCreator created the object, initializes the region, and unlinks
	// the name on exit.
	RoleCreator Role = iota
	// RoleOpener attached to an existing object and never unlinks it.
	RoleOpener
)

func (r Role) String() string {
	if r == RoleCreator {
		return "creator"
	}
	return "opener"
}

// Region is a process-local handle to the mapped shared object.
type Region struct {
	name string
	path string
	role Role
	fd   int
	mem  []byte
	log  *zap.SugaredLogger
}

type options struct {
	Log *zap.SugaredLogger
}

func newOptions() *options {
	return &options{
		Log: zap.NewNop().Sugar(),
	}
}

// Option configures the region handle.
type Option func(*options)

// WithLog sets the logger for region lifecycle diagnostics.
func WithLog(log *zap.SugaredLogger) Option {
	return func(o *options) {
		o.Log = log
	}
}

// checkName enforces the POSIX shm naming rules up front so a bad name
// fails cleanly instead of surfacing as a confusing open error.
func checkName(name string) error {
	if len(name) < 2 || name[0] != '/' {
		return fmt.Errorf("%w: %q must start with '/' and name an object", ErrInvalidName, name)
	}
	if strings.Contains(name[1:], "/") {
		return fmt.Errorf("%w: %q must not contain '/' after the first character", ErrInvalidName, name)
	}
	if len(name)-1 > nameMax {
		return fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, name, nameMax)
	}
	return nil
}

// OpenOrCreate establishes the shared object named name and maps exactly
// size bytes of it. The first peer to arrive creates the object exclusively
// and becomes the creator; a peer finding the object already present opens
// it and becomes the opener. Both peers size the object, because the opener
// may reach this point before the creator has done so and an empty object
// cannot be mapped.
func OpenOrCreate(name string, size int, opts ...Option) (*Region, error) {
	o := newOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.Log

	if err := checkName(name); err != nil {
		return nil, err
	}
	path := shmDir + name

	role := RoleCreator
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0o666)
	if errors.Is(err, unix.EEXIST) {
		role = RoleOpener
		fd, err = unix.Open(path, unix.O_RDWR, 0)
	}
	if errors.Is(err, unix.EINVAL) {
		return nil, fmt.Errorf("%w: %q rejected by kernel", ErrInvalidName, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open shared memory object %q: %w", name, err)
	}
	log.Debugw("opened shared memory object", "name", name, "role", role, "fd", fd)

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to size shared memory object %q: %w", name, err)
	}

	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to map shared memory object %q: %w", name, err)
	}
	log.Debugw("mapped shared memory object", "name", name, "size", size)

	return &Region{
		name: name,
		path: path,
		role: role,
		fd:   fd,
		mem:  mem,
		log:  log,
	}, nil
}

// Role reports whether this process created the shared object.
func (m *Region) Role() Role {
	return m.role
}

// Bytes returns the mapped region. The slice is only valid until Close.
func (m *Region) Bytes() []byte {
	return m.mem
}

// Close releases the process-local resources in reverse acquisition order:
// unmap, close, and, for the creator only, unlink the name. An already
// unlinked name is not an error.
func (m *Region) Close() error {
	if m.mem != nil {
		m.log.Debug("unmapping shared memory")
		if err := unix.Munmap(m.mem); err != nil {
			return fmt.Errorf("failed to unmap shared memory: %w", err)
		}
		m.mem = nil
	}

	if m.fd != -1 {
		m.log.Debug("closing shared memory file descriptor")
		if err := unix.Close(m.fd); err != nil {
			return fmt.Errorf("failed to close shared memory fd: %w", err)
		}
		m.fd = -1
	}

	if m.role == RoleCreator && m.path != "" {
		m.log.Debug("unlinking shared memory")
		if err := unix.Unlink(m.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				m.log.Debug("shared memory already unlinked")
			} else {
				return fmt.Errorf("failed to unlink shared memory object %q: %w", m.name, err)
			}
		}
		m.path = ""
	}

	return nil
}
