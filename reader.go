// Copyright Elliot Nunn. Portions copyright 2010 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zipvault is a read-only decoder for ZIP archives backed by an
// in-memory byte buffer. It reconstructs the logical entry tree from the
// central directory, extracts individual members or whole subtrees on
// demand, and validates decompressed output against the stored CRC-32 and
// uncompressed size by default.
package zipvault

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"log/slog"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/birchvale/zipvault/internal/extractioncache"
	"github.com/birchvale/zipvault/internal/flate"
)

// diagLogger is the minimal surface ZipReader's internals need to emit
// coarse diagnostics without taking a hard dependency on *slog.Logger in
// every function signature.
type diagLogger struct{ l *slog.Logger }

func (d diagLogger) diag(msg string, args ...any) {
	if d.l != nil {
		d.l.Debug(msg, args...)
	}
}

// ZipReader is the public surface over a loaded archive: the immutable
// byte buffer, the flat entry list, the normalised-path directory index,
// and the root of the reconstructed tree. A ZipReader is safe for
// concurrent use once Load returns -- every Extract call keeps its bit
// reader and output buffer entirely local.
type ZipReader struct {
	buf     []byte
	entries []*Entry
	dirs    map[string]*Entry // normalised path (no leading/trailing "/") -> directory entry
	root    *Entry

	log   diagLogger
	cache *extractioncache.Cache
}

// Option configures a ZipReader at Load time. The zero configuration (no
// options) is every option's default: caching and custom logging are both
// opt-in additions the core decoder does not require.
type Option func(*ZipReader)

// WithLogger redirects ZipReader's diagnostic logging (EOCD location,
// cache evictions, data-descriptor CRC-coincidence fallback) to l instead
// of slog.Default(). It never affects decoding results.
func WithLogger(l *slog.Logger) Option {
	return func(r *ZipReader) { r.log = diagLogger{l} }
}

// WithCache enables the ExtractionCache with room for roughly capacity
// entries. Disabled by default; enabling it never changes any observable
// Extract/ExtractDirectory/ExtractGlob result, only whether a repeat
// extraction re-runs the inflater. capacity must be positive. Evictions are
// reported through whichever logger is in effect once Load returns, so
// WithCache and WithLogger may be passed in either order.
func WithCache(capacity int) Option {
	return func(r *ZipReader) {
		r.cache = extractioncache.New(capacity, func(key extractioncache.Key, _ []byte) {
			r.log.diag("extraction cache evicted entry", "offset", key.Offset, "size", key.Size)
		})
	}
}

// Load parses buf as a ZIP archive, builds the entry tree, and returns a
// ready-to-use ZipReader. buf is retained for the reader's lifetime and
// must not be mutated afterward.
func Load(buf []byte, opts ...Option) (*ZipReader, error) {
	r := &ZipReader{buf: buf, log: diagLogger{slog.Default()}}
	for _, opt := range opts {
		opt(r)
	}

	eocdOffset, err := findEOCD(buf)
	if err != nil {
		return nil, err
	}
	eocd := buf[eocdOffset:]
	cdEntries := int(binary.LittleEndian.Uint16(eocd[10:]))
	cdOffset := int64(binary.LittleEndian.Uint32(eocd[16:]))
	r.log.diag("eocd located", "offset", eocdOffset, "entries", cdEntries)

	parsed, err := parseCentralDirectory(buf, cdOffset, cdEntries)
	if err != nil {
		return nil, err
	}

	r.root = buildTree(parsed)

	// entries includes directories buildTree synthesised, not just what the
	// central directory stated explicitly, so GetStats/FindEntry/
	// ExtractDirectory see implicit directories too. The synthetic root
	// itself is excluded: it isn't a stored entry and nothing should count
	// it.
	r.dirs = make(map[string]*Entry)
	var index func(e *Entry)
	index = func(e *Entry) {
		if e != r.root {
			r.entries = append(r.entries, e)
		}
		if e.IsDirectory && e != r.root {
			r.dirs[normalisePath(e.Name)] = e
		}
		for _, c := range e.Children {
			index(c)
		}
	}
	index(r.root)

	return r, nil
}

// normalisePath strips exactly one leading and one trailing "/" from path.
func normalisePath(path string) string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	return path
}

// FindEntry returns the entry stored at path, or ErrEntryNotFound if none
// matches. "/" always returns the synthetic root. It linear-scans entries
// comparing names with any trailing "/" stripped, then falls back to the
// normalised-path directory index on a miss.
func (r *ZipReader) FindEntry(path string) (*Entry, error) {
	if path == "/" || path == "" {
		return r.root, nil
	}
	target := normalisePath(path)

	for _, e := range r.entries {
		if strings.TrimSuffix(e.Name, "/") == target {
			return e, nil
		}
	}
	if d, ok := r.dirs[target]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrEntryNotFound, path)
}

// ListDirectory returns the children of the directory at path. It fails
// with ErrNotADirectory if the entry at path exists but is a file.
func (r *ZipReader) ListDirectory(path string) ([]*Entry, error) {
	e, err := r.FindEntry(path)
	if err != nil {
		return nil, err
	}
	if !e.IsDirectory {
		return nil, fmt.Errorf("%w: %q", ErrNotADirectory, path)
	}
	return e.Children, nil
}

// Walk performs a pre-order depth-first traversal from the root, calling
// visit with each entry and its depth (root at depth 0). Children are
// visited in the order buildTree assigned them (directories' own insertion
// order), so a directory is always visited before any of its descendants.
func (r *ZipReader) Walk(visit func(e *Entry, depth int)) {
	var walk func(e *Entry, depth int)
	walk = func(e *Entry, depth int) {
		visit(e, depth)
		for _, c := range e.Children {
			walk(c, depth+1)
		}
	}
	walk(r.root, 0)
}

// ExtractOptions configures a single Extract/ExtractDirectory/ExtractGlob
// call. The zero value is not the default; use DefaultExtractOptions to get
// it. Extract applies the options exactly as given and fills in no
// defaults: a zero ExtractOptions has Decompress false, so Extract returns
// the raw payload.
type ExtractOptions struct {
	// Decompress, when false, returns the raw (still-compressed) payload
	// bytes instead of running it through STORE/DEFLATE dispatch.
	Decompress bool
	// IsString marks the returned Content as a string result by setting
	// Content.IsString; Content.Bytes is filled and Content.String works
	// either way.
	IsString bool
	// SkipCRCValidation disables the CRC-32 check against the stored
	// value: true means "do not compute or compare" -- never inverted.
	SkipCRCValidation bool
	// SkipSizeValidation disables the uncompressed-size check against the
	// declared value.
	SkipSizeValidation bool
}

// DefaultExtractOptions returns the conventional defaults: decompress,
// validate both CRC and size, and return bytes rather than a string.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{Decompress: true}
}

// Content is the result of an extraction: the decoded bytes, retrievable
// as a []byte or, through String, as a string built from the same bytes.
// IsString records whether ExtractOptions.IsString was set and does not
// change either form.
type Content struct {
	Bytes    []byte
	IsString bool
}

// String returns the content as a string regardless of IsString.
func (c Content) String() string { return string(c.Bytes) }

// Extract decompresses and returns the content of e, validating it against
// the stored CRC-32 and declared size unless the corresponding option
// disables that check. e must not be a directory.
func (r *ZipReader) Extract(e *Entry, opts ExtractOptions) (Content, error) {
	if e.IsDirectory {
		return Content{}, fmt.Errorf("%w: %q", ErrIsADirectory, e.Name)
	}

	// Only the fully-validated, decompressed path is cacheable: a result
	// obtained with a validation skipped must never be handed back to a
	// caller who asked for that validation, so neither storing nor
	// serving from the cache happens unless both checks would have run.
	cacheable := opts.Decompress && !opts.SkipCRCValidation && !opts.SkipSizeValidation
	key := extractioncache.Key{Offset: e.Offset, Size: e.Size}
	if r.cache != nil && cacheable {
		if cached, ok := r.cache.Get(key); ok {
			out := make([]byte, len(cached))
			copy(out, cached)
			return Content{Bytes: out, IsString: opts.IsString}, nil
		}
	}

	hdr, err := readLocalFileHeader(r.buf, e.Offset)
	if err != nil {
		return Content{}, err
	}

	crc, compressedSize, uncompressedSize := hdr.crc, hdr.compressedSize, hdr.uncompressedSize
	dataOffset := hdr.dataOffset
	if hdr.flags&dataDescFlag != 0 {
		crc, compressedSize, uncompressedSize, err = resolveDataDescriptor(r.buf, dataOffset, e.CRC, r.log)
		if err != nil {
			return Content{}, err
		}
	}

	if dataOffset+compressedSize > int64(len(r.buf)) || compressedSize < 0 {
		return Content{}, fmt.Errorf("%w: compressed payload runs past end of buffer", ErrMalformedArchive)
	}
	payload := r.buf[dataOffset : dataOffset+compressedSize]

	var out []byte
	if !opts.Decompress {
		out = payload
	} else {
		switch hdr.method {
		case 0x00:
			out = payload
		case 0x08:
			out, err = flate.Inflate(payload, int(uncompressedSize))
			if err != nil {
				return Content{}, fmt.Errorf("%w: %v", ErrCorruptDeflate, err)
			}
		default:
			return Content{}, fmt.Errorf("%w: method %d", ErrUnsupportedCompression, hdr.method)
		}

		if !opts.SkipCRCValidation {
			if got := crc32.ChecksumIEEE(out); got != crc {
				return Content{}, fmt.Errorf("%w: %q: stored %08x computed %08x", ErrChecksumMismatch, e.Name, crc, got)
			}
		}
		if !opts.SkipSizeValidation {
			if int64(len(out)) != uncompressedSize {
				return Content{}, fmt.Errorf("%w: %q: declared %d got %d", ErrSizeMismatch, e.Name, uncompressedSize, len(out))
			}
		}
	}

	if r.cache != nil && cacheable {
		stored := make([]byte, len(out))
		copy(stored, out)
		r.cache.Add(key, stored)
	}

	result := make([]byte, len(out))
	copy(result, out)
	return Content{Bytes: result, IsString: opts.IsString}, nil
}

// ExtractDirectory extracts every non-directory entry whose name starts
// with path (after stripping a single leading "/"), returning a mapping
// from each entry's full name to its extracted content.
func (r *ZipReader) ExtractDirectory(path string, opts ExtractOptions) (map[string]Content, error) {
	prefix := strings.TrimPrefix(path, "/")
	out := make(map[string]Content)
	for _, e := range r.entries {
		if e.IsDirectory || !strings.HasPrefix(e.Name, prefix) {
			continue
		}
		content, err := r.Extract(e, opts)
		if err != nil {
			return nil, err
		}
		out[e.Name] = content
	}
	return out, nil
}

// ExtractGlob extracts every non-directory entry whose full name matches
// pattern under doublestar glob semantics (*, **, ?, character classes),
// returning the same name -> content mapping shape as ExtractDirectory. A
// pattern matching nothing returns an empty, non-nil map.
func (r *ZipReader) ExtractGlob(pattern string, opts ExtractOptions) (map[string]Content, error) {
	out := make(map[string]Content)
	for _, e := range r.entries {
		if e.IsDirectory {
			continue
		}
		matched, err := doublestar.Match(pattern, e.Name)
		if err != nil {
			return nil, fmt.Errorf("zipvault: invalid glob pattern %q: %w", pattern, err)
		}
		if !matched {
			continue
		}
		content, err := r.Extract(e, opts)
		if err != nil {
			return nil, err
		}
		out[e.Name] = content
	}
	return out, nil
}

// Stats summarizes the archive's contents, as returned by GetStats.
type Stats struct {
	FileCount int
	DirCount  int
	TotalSize int64
}

// GetStats performs a linear pass over the entry list, counting
// directories and files and summing file sizes.
func (r *ZipReader) GetStats() Stats {
	var s Stats
	for _, e := range r.entries {
		if e.IsDirectory {
			s.DirCount++
		} else {
			s.FileCount++
			s.TotalSize += e.Size
		}
	}
	return s
}
