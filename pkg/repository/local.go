package repository

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/httputil"
)

const (
	tempPrefix = ".part-"
	bufSize    = 64 * 1024
)

// Body is an open artifact stream together with the integrity information
// its source published.
type Body struct {
	io.ReadCloser

	// Size is the expected length in bytes, or -1 when unknown.
	Size int64

	// SHA1 is the expected lowercase hex digest, or empty when unknown.
	SHA1 string
}

// Source produces artifact bytes for a coordinate.
type Source interface {
	// URL identifies the source in provenance records. The local cache
	// returns an empty URL.
	URL() string

	// Open returns the artifact stream. It returns an error wrapping
	// ErrNotFound when the source does not have the file.
	Open(ctx context.Context, c artifact.Coordinate) (*Body, error)
}

// Local is the on-disk artifact cache in standard repository layout.
// It is safe for concurrent use by multiple goroutines and processes.
type Local struct {
	root string
}

// NewLocal opens (and creates if needed) a cache rooted at dir.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("cache directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute cache directory.
func (l *Local) Root() string { return l.root }

// URL returns the empty string: files served from the cache have no
// remote origin.
func (l *Local) URL() string { return "" }

// Path returns the absolute file path for c.
func (l *Local) Path(c artifact.Coordinate) string {
	return filepath.Join(l.root, filepath.FromSlash(c.Path()))
}

// Lookup reports whether c is cached. Zero-length files count as missing.
func (l *Local) Lookup(c artifact.Coordinate) (string, bool) {
	p := l.Path(c)
	return p, nonEmptyFile(p)
}

// Open implements [Source] for cached files.
func (l *Local) Open(ctx context.Context, c artifact.Coordinate) (*Body, error) {
	p, ok := l.Lookup(c)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, c)
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Body{ReadCloser: f, Size: info.Size()}, nil
}

// Store streams body into the cache location of c and returns the final
// path and the number of bytes written.
//
// The bytes go to a temporary file in the destination directory, are
// checked against body.Size and body.SHA1, fsynced and then renamed into
// place. If a non-empty file already exists at the destination (another
// writer finished first) the temporary file is discarded and the existing
// file is kept. Read failures are returned as retryable ErrNetwork errors
// and integrity failures as ErrCorrupt.
func (l *Local) Store(ctx context.Context, c artifact.Coordinate, body *Body) (string, int64, error) {
	dest := l.Path(c)
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", 0, err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, 0o644)
	discard := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	h := sha1.New()
	bw := bufio.NewWriterSize(io.MultiWriter(tmp, h), bufSize)
	src := &sourceReader{ctx: ctx, r: body}
	n, err := io.Copy(bw, src)
	if err != nil {
		discard()
		if src.err != nil {
			return "", 0, src.err
		}
		return "", 0, err
	}
	if err := bw.Flush(); err != nil {
		discard()
		return "", 0, err
	}

	if err := verify(n, hex.EncodeToString(h.Sum(nil)), body); err != nil {
		discard()
		return "", 0, fmt.Errorf("%s: %w", c, err)
	}

	if err := tmp.Sync(); err != nil {
		discard()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, err
	}

	if nonEmptyFile(dest) {
		_ = os.Remove(tmpPath)
		return dest, n, nil
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return "", 0, err
	}
	_ = syncDir(dir)
	return dest, n, nil
}

func verify(n int64, sum string, body *Body) error {
	switch {
	case n == 0:
		return fmt.Errorf("%w: empty file", ErrCorrupt)
	case body.Size >= 0 && n != body.Size:
		return fmt.Errorf("%w: got %d bytes, want %d", ErrCorrupt, n, body.Size)
	case body.SHA1 != "" && !strings.EqualFold(sum, body.SHA1):
		return fmt.Errorf("%w: sha1 %s, want %s", ErrCorrupt, sum, body.SHA1)
	}
	return nil
}

// Entry describes one cached file.
type Entry struct {
	Coordinate artifact.Coordinate `json:"coordinate" yaml:"coordinate"`
	Path       string              `json:"path" yaml:"path"`
	Size       int64               `json:"size" yaml:"size"`
	ModTime    time.Time           `json:"modTime" yaml:"modTime"`
}

// List returns every cached file whose path can be mapped back to a
// coordinate, sorted by path. Temporary and empty files are skipped.
func (l *Local) List() ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		rel, err := filepath.Rel(l.root, p)
		if err != nil {
			return nil
		}
		c, ok := parsePath(filepath.ToSlash(rel))
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil || info.Size() == 0 {
			return nil
		}
		out = append(out, Entry{Coordinate: c, Path: p, Size: info.Size(), ModTime: info.ModTime()})
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, err
}

// Clear removes every cached file. Resolution never calls it; it exists
// for the explicit "cache clear" command.
func (l *Local) Clear() error {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(l.root, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// parsePath maps group/dirs/artifactId/version/file back to a coordinate.
func parsePath(rel string) (artifact.Coordinate, bool) {
	parts := strings.Split(rel, "/")
	n := len(parts)
	if n < 4 {
		return artifact.Coordinate{}, false
	}
	file, version, artifactID := parts[n-1], parts[n-2], parts[n-3]
	prefix := artifactID + "-" + version
	if !strings.HasPrefix(file, prefix) {
		return artifact.Coordinate{}, false
	}
	c := artifact.Coordinate{
		GroupID:    strings.Join(parts[:n-3], "."),
		ArtifactID: artifactID,
		Version:    version,
	}
	rest := file[len(prefix):]
	switch {
	case strings.HasPrefix(rest, "."):
		c.Extension = rest[1:]
	case strings.HasPrefix(rest, "-"):
		dot := strings.Index(rest, ".")
		if dot < 2 {
			return artifact.Coordinate{}, false
		}
		c.Classifier = rest[1:dot]
		c.Extension = rest[dot+1:]
	default:
		return artifact.Coordinate{}, false
	}
	if c.Extension == "" {
		return artifact.Coordinate{}, false
	}
	return c, true
}

func nonEmptyFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// syncDir fsyncs a directory so a completed rename survives a crash.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// sourceReader checks ctx before every read and marks read failures as
// retryable network errors.
type sourceReader struct {
	ctx context.Context
	r   io.Reader
	err error
}

func (s *sourceReader) Read(p []byte) (int, error) {
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return 0, err
	}
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		if ctxErr := s.ctx.Err(); ctxErr != nil {
			s.err = ctxErr
		} else {
			s.err = httputil.Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
		}
		return n, s.err
	}
	return n, err
}

var _ Source = (*Local)(nil)
