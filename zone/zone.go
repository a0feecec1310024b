// Package zone implements the shared-memory zone (L2): a fixed-size file
// mapped PROT_READ|PROT_WRITE|MAP_SHARED between the host (sole writer) and
// one document process (reader). There is no lock: the server stages writes
// into a process-local buffer and only publishes them to the mapping with a
// single memcpy-equivalent at SyncData, relying on the client observing
// either the old or the new whole-struct value for any field it reads
// (§3 "Shared-memory zones are written only by the host").
package zone

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Dir is the directory under the configured application cache directory
// where zone files live, per §6 "Persisted state on disk".
const Dir = "zones"

// FilePath returns a fresh, collision-free zone file path under
// <applicationCacheDirectory>/zones/, named with a random id rather than a
// predictable counter — multiple hosts may share one cache directory across
// runs, and the filename is what gets published to the document process
// over its owning channel, so a UUID avoids any coordination between
// independent host processes picking zone names concurrently.
func FilePath(cacheDir, prefix string) string {
	return filepath.Join(cacheDir, Dir, prefix+"-"+uuid.NewString()+".zone")
}

// Server owns a zone's backing file on the host side. Writers build up a
// local staging buffer with Stage and publish it atomically with SyncData.
type Server struct {
	mu      sync.Mutex
	path    string
	size    int
	file    *os.File
	mapping []byte
	staging []byte
}

// CreateServer creates (or truncates) the zone file at path, sized size
// bytes, and maps it.
func CreateServer(path string, size int) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "zone: mkdir")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "zone: open")
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "zone: truncate")
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "zone: mmap")
	}
	return &Server{
		path:    path,
		size:    size,
		file:    f,
		mapping: mapping,
		staging: make([]byte, size),
	}, nil
}

// Path returns the zone's backing file path, to be published to the
// document process via the channel that created it.
func (s *Server) Path() string { return s.path }

// Stage writes data into the staging buffer at offset, without publishing it
// to the mapping yet. Call SyncData once the whole frame's worth of fields
// has been staged.
func (s *Server) Stage(offset int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset < 0 || offset+len(data) > s.size {
		return errors.New("zone: stage out of range")
	}
	copy(s.staging[offset:], data)
	return nil
}

// SyncData publishes the entire staging buffer into the mapping in one
// contiguous copy, the single commit point clients observe.
func (s *Server) SyncData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.mapping, s.staging)
}

// Close unmaps and closes the backing file. The file itself is left on disk
// until the host removes the application cache directory.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapping != nil {
		unix.Munmap(s.mapping)
		s.mapping = nil
	}
	return s.file.Close()
}

// Client maps an existing zone file read-only from the document process
// side. Reads go straight to the mapping; there is no locking, matching the
// lock-free read contract documented on Server.
type Client struct {
	file    *os.File
	mapping []byte
}

// OpenClient opens and maps an existing zone file for reading.
func OpenClient(path string, size int) (*Client, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "zone: open client")
	}
	mapping, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "zone: mmap client")
	}
	return &Client{file: f, mapping: mapping}, nil
}

// Read copies size bytes starting at offset out of the mapping.
func (c *Client) Read(offset, size int) ([]byte, error) {
	if offset < 0 || offset+size > len(c.mapping) {
		return nil, errors.New("zone: read out of range")
	}
	out := make([]byte, size)
	copy(out, c.mapping[offset:offset+size])
	return out, nil
}

// Close unmaps and closes the client's view of the zone.
func (c *Client) Close() error {
	if c.mapping != nil {
		unix.Munmap(c.mapping)
		c.mapping = nil
	}
	return c.file.Close()
}
