// Package archive accumulates downloaded media as ordered path/bytes entries
// and serializes them as a single zip.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// zipEpoch is the fixed modification time written for every entry so that
// identical archives serialize to identical bytes.
var zipEpoch = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Entry is one file in an Archive.
type Entry struct {
	Path string
	Data []byte
}

// Archive is an ordered collection of entries keyed by path. Adding an
// existing path replaces its data in place, so the last write wins while the
// original position is kept.
type Archive struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty Archive.
func New() *Archive {
	return &Archive{index: make(map[string]int)}
}

// Add stores data under p. The path is cleaned and made relative.
func (a *Archive) Add(p string, data []byte) {
	p = cleanPath(p)
	if i, ok := a.index[p]; ok {
		a.entries[i].Data = data
		return
	}
	a.index[p] = len(a.entries)
	a.entries = append(a.entries, Entry{Path: p, Data: data})
}

// Merge appends every entry of other, in its order.
func (a *Archive) Merge(other *Archive) {
	if other == nil {
		return
	}
	for _, e := range other.entries {
		a.Add(e.Path, e.Data)
	}
}

// Get returns the data stored under p.
func (a *Archive) Get(p string) ([]byte, bool) {
	i, ok := a.index[cleanPath(p)]
	if !ok {
		return nil, false
	}
	return a.entries[i].Data, true
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Paths returns entry paths in insertion order.
func (a *Archive) Paths() []string {
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Path
	}
	return out
}

// Entries returns a copy of the entries in insertion order.
func (a *Archive) Entries() []Entry {
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// WriteZip serializes the archive as a zip to w. Media is already
// compressed, so entries are stored rather than deflated.
func (a *Archive) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range a.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Path,
			Method:   zip.Store,
			Modified: zipEpoch,
		})
		if err != nil {
			return eris.Wrapf(err, "archive: create entry %s", e.Path)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return eris.Wrapf(err, "archive: write entry %s", e.Path)
		}
	}
	return eris.Wrap(zw.Close(), "archive: close zip")
}

// Bytes returns the archive serialized as a zip.
func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadZip loads every file entry of a zip into a new Archive.
func ReadZip(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "archive: open zip")
	}
	a := New()
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, eris.Wrapf(err, "archive: open entry %s", f.Name)
		}
		b, err := io.ReadAll(rc)
		rc.Close() //nolint:errcheck
		if err != nil {
			return nil, eris.Wrapf(err, "archive: read entry %s", f.Name)
		}
		a.Add(f.Name, b)
	}
	return a, nil
}

func cleanPath(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}
