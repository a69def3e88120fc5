// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipvault

import (
	"cmp"
	"slices"
	"strings"
)

// Entry is one logical archive member: a file or a directory reconstructed
// from the central directory (or, for a path present only implicitly,
// synthesised by buildTree). All fields are populated during Load and never
// change afterward; callers may read them freely from multiple goroutines.
type Entry struct {
	// Name is the full stored path. A directory's Name always ends in "/";
	// a file's never does.
	Name string

	// Size is the uncompressed size in bytes, from the central directory.
	// Always 0 for a synthesised directory.
	Size int64

	// Offset is the absolute byte offset of the local-file header within
	// the archive buffer. Always 0 for a synthesised directory.
	Offset int64

	// Timestamp is the MS-DOS packed date/time, preserved verbatim.
	Timestamp uint32

	// CRC is the stored CRC-32 of the uncompressed data. Always 0 for a
	// synthesised directory.
	CRC uint32

	// IsDirectory is derived from a trailing "/" on Name.
	IsDirectory bool

	// Parent is a weak back-link to the containing directory. Nil only for
	// the root entry.
	Parent *Entry

	// Children is the ordered list of entries directly contained by a
	// directory. Always empty for a file.
	Children []*Entry
}

// Path returns the entry's full path. Name already carries the full stored
// path (or "/" for the root), so Path is simply an alias callers can use
// without depending on that detail.
func (e *Entry) Path() string { return e.Name }

// newRoot returns the synthetic root directory entry.
func newRoot() *Entry {
	return &Entry{Name: "/", IsDirectory: true}
}

// buildTree turns the flat list of entries read off the central directory
// into a rooted tree, synthesising intermediate directory entries for paths
// that are only implied by a deeper file or directory record.
//
// Entries are sorted directories-first (ties broken lexicographically) so
// that an explicit directory record is always reused instead of being
// shadowed by a synthetic stub created while walking some other entry's
// path first.
func buildTree(flat []*Entry) *Entry {
	root := newRoot()
	dirs := map[string]*Entry{"": root}

	sorted := slices.Clone(flat)
	slices.SortStableFunc(sorted, func(a, b *Entry) int {
		if a.IsDirectory != b.IsDirectory {
			if a.IsDirectory {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})

	for _, e := range sorted {
		trimmed := strings.TrimSuffix(e.Name, "/")
		components := strings.Split(trimmed, "/")

		cur := root
		cumulative := ""
		for i, comp := range components {
			if comp == "" {
				continue
			}
			if cumulative == "" {
				cumulative = comp
			} else {
				cumulative = cumulative + "/" + comp
			}

			isTerminal := i == len(components)-1
			if existing, ok := dirs[cumulative]; ok {
				cur = existing
				continue
			}

			if isTerminal && !e.IsDirectory {
				// Terminal component of a file: attach e itself below,
				// outside this directory-walking loop.
				break
			}

			var node *Entry
			if isTerminal && e.IsDirectory {
				node = e
			} else {
				node = &Entry{
					Name:        cumulative + "/",
					IsDirectory: true,
					Timestamp:   e.Timestamp,
				}
			}
			node.Parent = cur
			cur.Children = append(cur.Children, node)
			dirs[cumulative] = node
			cur = node
		}

		if !e.IsDirectory {
			e.Parent = cur
			cur.Children = append(cur.Children, e)
		}
	}

	return root
}
