package storage

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/wippyai/wasm-repl/errors"
)

// MaxReadSize caps a single read so a guest-supplied length cannot force
// an arbitrarily large allocation.
const MaxReadSize = 64 << 20

// EntryType classifies a directory entry.
type EntryType uint8

const (
	EntryTypeUnknown EntryType = iota
	EntryTypeDirectory
	EntryTypeRegularFile
	EntryTypeSymbolicLink
)

// Entry describes one file or directory.
type Entry struct {
	ModTime time.Time
	Name    string
	Path    string
	Size    int64
	Type    EntryType
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type == EntryTypeDirectory }

// Dir is a sandboxed view of a host directory.
type Dir struct {
	root string
}

// Open returns a Dir rooted at root, creating the directory if needed.
func Open(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseStorage, errors.KindInvalidInput, err, "resolve root")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, mapOSError(err, "/")
	}
	return &Dir{root: abs}, nil
}

// Root returns the host directory backing the namespace.
func (d *Dir) Root() string {
	return d.root
}

// resolve maps a guest path to a host path. Returns error if path escapes the sandbox.
func (d *Dir) resolve(p string) (string, error) {
	if p == "" || strings.ContainsRune(p, 0) {
		return "", errors.InvalidInput(errors.PhaseStorage, "empty or invalid path")
	}
	if escapes(p) {
		return "", errors.Access(errors.PhaseStorage, p)
	}
	full := filepath.Join(d.root, filepath.FromSlash(path.Clean("/"+p)))

	rel, err := filepath.Rel(d.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Access(errors.PhaseStorage, p)
	}
	return full, nil
}

// escapes reports whether p climbs above its starting directory at any point.
func escapes(p string) bool {
	depth := 0
	for _, seg := range strings.Split(p, "/") {
		switch seg {
		case "", ".":
		case "..":
			depth--
			if depth < 0 {
				return true
			}
		default:
			depth++
		}
	}
	return false
}

// ReadRange reads up to length bytes of the file at p starting at offset.
// A read at or past the end of the file returns an empty slice.
func (d *Dir) ReadRange(ctx context.Context, p string, offset, length int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, errors.InvalidInput(errors.PhaseStorage, "negative offset or length")
	}
	full, err := d.resolve(p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, mapOSError(err, p)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, mapOSError(err, p)
	}
	if info.IsDir() {
		return nil, errors.New(errors.PhaseStorage, errors.KindIsDirectory).Path(p).Build()
	}

	if length > MaxReadSize {
		length = MaxReadSize
	}
	if remaining := info.Size() - offset; remaining < length {
		length = max(remaining, 0)
	}

	buf := make([]byte, length)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !stderrors.Is(err, io.EOF) {
		return nil, mapOSError(err, p)
	}
	return buf[:n], nil
}

// ReadFile reads the whole file at p.
func (d *Dir) ReadFile(ctx context.Context, p string) ([]byte, error) {
	info, err := d.Stat(ctx, p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New(errors.PhaseStorage, errors.KindIsDirectory).Path(p).Build()
	}
	if info.Size > MaxReadSize {
		return nil, errors.New(errors.PhaseStorage, errors.KindInvalidData).
			Path(p).
			Detail("file is %d bytes, limit is %d", info.Size, MaxReadSize).
			Build()
	}
	return d.ReadRange(ctx, p, 0, info.Size)
}

// Remove deletes the file at p. Directories are refused.
func (d *Dir) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := d.resolve(p)
	if err != nil {
		return err
	}

	info, err := os.Lstat(full)
	if err != nil {
		return mapOSError(err, p)
	}
	if info.IsDir() {
		return errors.New(errors.PhaseStorage, errors.KindIsDirectory).Path(p).Build()
	}
	if err := os.Remove(full); err != nil {
		return mapOSError(err, p)
	}
	return nil
}

// Stat describes the file or directory at p.
func (d *Dir) Stat(ctx context.Context, p string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	full, err := d.resolve(p)
	if err != nil {
		return Entry{}, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return Entry{}, mapOSError(err, p)
	}
	return entryFor(path.Clean("/"+p), info), nil
}

// List returns the entries of directory p sorted by name.
func (d *Dir) List(ctx context.Context, p string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := d.resolve(p)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(full)
	if err != nil {
		return nil, mapOSError(err, p)
	}

	base := path.Clean("/" + p)
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		info, err := de.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		entries = append(entries, entryFor(path.Join(base, de.Name()), info))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func entryFor(guestPath string, info os.FileInfo) Entry {
	return Entry{
		Name:    info.Name(),
		Path:    guestPath,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Type:    fileInfoToEntryType(info),
	}
}

func fileInfoToEntryType(info os.FileInfo) EntryType {
	mode := info.Mode()
	switch {
	case mode.IsDir():
		return EntryTypeDirectory
	case mode.IsRegular():
		return EntryTypeRegularFile
	case mode&os.ModeSymlink != 0:
		return EntryTypeSymbolicLink
	default:
		return EntryTypeUnknown
	}
}

func mapOSError(err error, p string) error {
	if err == nil {
		return nil
	}
	kind := errors.KindIO
	switch {
	case os.IsNotExist(err):
		kind = errors.KindNotFound
	case os.IsPermission(err):
		kind = errors.KindAccess
	default:
		var errno syscall.Errno
		if stderrors.As(err, &errno) {
			kind = mapErrno(errno)
		}
	}
	return errors.New(errors.PhaseStorage, kind).Path(p).Cause(err).Build()
}

func mapErrno(errno syscall.Errno) errors.Kind {
	switch errno {
	case syscall.EACCES, syscall.EPERM, syscall.EROFS:
		return errors.KindAccess
	case syscall.ENOENT:
		return errors.KindNotFound
	case syscall.ENOTDIR:
		return errors.KindNotDirectory
	case syscall.EISDIR:
		return errors.KindIsDirectory
	case syscall.ENAMETOOLONG, syscall.EINVAL:
		return errors.KindInvalidInput
	default:
		return errors.KindIO
	}
}
