// Package bundle reads and writes a witness store as a single deterministic
// TAR archive, so a block's preimages can be shipped or archived as one file.
package bundle

import (
	"archive/tar"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"xdao.co/zkhost/preimage"
	"xdao.co/zkhost/storage"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

const (
	entryPrefix = "preimages/"
	indexName   = "index.json"
)

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// IncludeIndex controls whether index.json is included. The index is
	// non-authoritative metadata and is ignored when reading.
	IncludeIndex bool
}

// Export writes the store for height as a deterministic TAR bundle.
//
// Entries appear in ascending key order and TAR headers are normalized, so
// equal stores always produce identical bytes.
func Export(w io.Writer, height uint64, s *storage.Store, opts ExportOptions) error {
	if s == nil {
		return fmt.Errorf("bundle: nil store")
	}

	tw := tar.NewWriter(w)
	entries := make([]indexEntry, 0, s.Len())

	var werr error
	s.Range(func(k preimage.Key, v []byte) bool {
		if werr = writeFile(tw, entryPrefix+hexName(k), v); werr != nil {
			return false
		}
		if opts.IncludeIndex {
			e, err := newIndexEntry(k, v)
			if err != nil {
				werr = err
				return false
			}
			entries = append(entries, e)
		}
		return true
	})
	if werr != nil {
		_ = tw.Close()
		return werr
	}

	if opts.IncludeIndex {
		b, err := json.Marshal(indexJSON{
			Version: FormatVersion,
			Height:  height,
			Size:    s.Size(),
			Entries: entries,
		})
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, indexName, append(b, '\n')); err != nil {
			_ = tw.Close()
			return err
		}
	}
	return tw.Close()
}

// ReadOptions controls bundle read behavior.
type ReadOptions struct {
	// IgnoreUnknown skips entries outside preimages/ instead of failing.
	IgnoreUnknown bool
	// Verify checks every verifiable entry against its key while reading.
	Verify bool
}

// Read decodes a bundle into a Store. Unknown or duplicate entries fail
// closed with storage.ErrCorrupt.
func Read(r io.Reader) (*storage.Store, error) {
	return ReadWithOptions(r, ReadOptions{})
}

// ReadWithOptions is Read with explicit options.
func ReadWithOptions(r io.Reader, opts ReadOptions) (*storage.Store, error) {
	tr := tar.NewReader(r)
	b := storage.NewBuilder(0, 0)
	seen := map[preimage.Key]struct{}{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, corrupt("malformed archive: %v", err)
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return nil, corrupt("invalid entry path %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, corrupt("unexpected tar entry type %v (%s)", h.Typeflag, name)
		}
		if name == indexName {
			continue
		}
		if !strings.HasPrefix(name, entryPrefix) {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, corrupt("unknown entry %s", name)
		}

		k, err := preimage.ParseKey(strings.TrimPrefix(name, entryPrefix))
		if err != nil {
			return nil, corrupt("entry %s: %v", name, err)
		}
		if _, dup := seen[k]; dup {
			return nil, corrupt("duplicate entry %s", name)
		}
		seen[k] = struct{}{}

		if h.Size < 0 || int64(int(h.Size)) != h.Size {
			return nil, corrupt("entry %s: invalid size %d", name, h.Size)
		}
		if err := b.ReadFrom(k, tr, int(h.Size)); err != nil {
			if errors.Is(err, storage.ErrCorrupt) {
				return nil, err
			}
			return nil, corrupt("entry %s: %v", name, err)
		}
	}

	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	if opts.Verify {
		var verr error
		s.Range(func(k preimage.Key, v []byte) bool {
			if err := preimage.Verify(k, v); err != nil {
				verr = corrupt("entry %s: %v", k, err)
				return false
			}
			return true
		})
		if verr != nil {
			return nil, verr
		}
	}
	return s, nil
}

type indexJSON struct {
	Version int          `json:"version"`
	Height  uint64       `json:"height"`
	Size    int          `json:"size"`
	Entries []indexEntry `json:"entries"`
}

type indexEntry struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	Size int    `json:"size"`
	CID  string `json:"cid,omitempty"`
}

func newIndexEntry(k preimage.Key, v []byte) (indexEntry, error) {
	e := indexEntry{Key: k.Hex(), Type: k.Type().String(), Size: len(v)}
	switch k.Type() {
	case preimage.KeyTypeKeccak256:
		id, err := preimage.CIDv1RawKeccak256(v)
		if err != nil {
			return indexEntry{}, err
		}
		e.CID = id.String()
	case preimage.KeyTypeSha256:
		id, err := preimage.CIDv1RawSHA256(v)
		if err != nil {
			return indexEntry{}, err
		}
		e.CID = id.String()
	}
	return e, nil
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: bundle: %s", storage.ErrCorrupt, fmt.Sprintf(format, args...))
}

func hexName(k preimage.Key) string {
	return strings.TrimPrefix(k.Hex(), "0x")
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
		Format:   tar.FormatUSTAR,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
