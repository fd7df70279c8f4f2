// Package vfs provides the read-only virtual filesystem served to
// terminal sessions.
//
// A Snapshot is an immutable arena of directories built once from a
// content generation. Directories reference each other by index, not
// pointer, so snapshots are trivially shareable across sessions and a
// directory index plus a snapshot reference is a stable locator.
package vfs

import (
	"sort"
	"strings"
)

// RootIndex is the index of the root directory in every snapshot.
const RootIndex = 0

// Snapshot is one immutable virtual filesystem generation.
type Snapshot struct {
	dirs []Directory
}

// Directory is one directory in the arena.
type Directory struct {
	// Path is the normalized absolute path, "/" for the root.
	Path string

	// Parent is the parent directory index, or -1 for the root.
	Parent int

	// Dirs maps child directory name to arena index.
	Dirs map[string]int

	// Files maps file name to file.
	Files map[string]*File
}

// File is one read-only text file.
type File struct {
	// Contents is the raw file text with CRLF line endings.
	Contents string

	// Lines is the CRLF decomposition of Contents. Always non-empty:
	// an empty file has one empty line.
	Lines []string
}

// NewFile builds a file from CRLF-terminated text.
func NewFile(contents string) *File {
	return &File{
		Contents: contents,
		Lines:    strings.Split(contents, "\r\n"),
	}
}

// Raw returns the raw file bytes.
func (f *File) Raw() []byte {
	return []byte(f.Contents)
}

// New creates a snapshot containing only the root directory.
func New() *Snapshot {
	return &Snapshot{
		dirs: []Directory{{
			Path:   "/",
			Parent: -1,
			Dirs:   make(map[string]int),
			Files:  make(map[string]*File),
		}},
	}
}

// Dir returns the directory at the given arena index.
func (s *Snapshot) Dir(i int) *Directory {
	return &s.dirs[i]
}

// AddDir adds a child directory under parent, returning its index.
func (s *Snapshot) AddDir(parent int, name string) int {
	path := s.dirs[parent].Path
	if parent != RootIndex {
		path += "/"
	}
	path += name

	child := len(s.dirs)
	s.dirs = append(s.dirs, Directory{
		Path:   path,
		Parent: parent,
		Dirs:   make(map[string]int),
		Files:  make(map[string]*File),
	})
	s.dirs[parent].Dirs[name] = child
	return child
}

// AddFile adds a file to the directory at the given index.
func (s *Snapshot) AddFile(dir int, name string, f *File) {
	s.dirs[dir].Files[name] = f
}

// Resolve walks a /-separated path from the root, returning the directory
// index. Empty segments and "." are no-ops; ".." moves to the parent and
// is a no-op at the root.
func (s *Snapshot) Resolve(path string) (int, bool) {
	return s.resolveFrom(RootIndex, path)
}

// ResolveFrom resolves a directory path against the directory at cur; an
// absolute path (leading "/") resolves from the root instead.
func (s *Snapshot) ResolveFrom(cur int, path string) (int, bool) {
	if strings.HasPrefix(path, "/") {
		cur = RootIndex
	}
	return s.resolveFrom(cur, path)
}

func (s *Snapshot) resolveFrom(start int, path string) (int, bool) {
	cur := start
	for _, part := range strings.Split(path, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if parent := s.dirs[cur].Parent; parent >= 0 {
				cur = parent
			}
		default:
			child, ok := s.dirs[cur].Dirs[part]
			if !ok {
				return 0, false
			}
			cur = child
		}
	}
	return cur, true
}

// ResolveFile resolves a file path. An absolute path (leading "/") walks
// from the root; a relative path walks from the directory at cur.
func (s *Snapshot) ResolveFile(cur int, path string) *File {
	dir, name, ok := s.Locate(cur, path)
	if !ok {
		return nil
	}
	return s.dirs[dir].Files[name]
}

// Locate resolves a file path to a stable (directory index, file name)
// locator within this snapshot. Holders can re-fetch the file through
// the locator instead of retaining a pointer.
func (s *Snapshot) Locate(cur int, path string) (dir int, name string, ok bool) {
	start := cur
	if strings.HasPrefix(path, "/") {
		start = RootIndex
	}

	dirPart, name := "", path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		dirPart, name = path[:i], path[i+1:]
	}
	if name == "" {
		return 0, "", false
	}

	dir, ok = s.resolveFrom(start, dirPart)
	if !ok {
		return 0, "", false
	}
	if _, exists := s.dirs[dir].Files[name]; !exists {
		return 0, "", false
	}
	return dir, name, true
}

// DirNames returns the directory's child directory names in order.
func (d *Directory) DirNames() []string {
	names := make([]string, 0, len(d.Dirs))
	for name := range d.Dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileNames returns the directory's file names in order.
func (d *Directory) FileNames() []string {
	names := make([]string, 0, len(d.Files))
	for name := range d.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
