package archiver

import (
	"path"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/tar"
)

// Entry describes one archive member in a Manifest.
type Entry struct {
	Path     string        `json:"path"`
	Type     string        `json:"type"`
	Size     int64         `json:"size"`
	Mode     int64         `json:"mode"`
	ModTime  int64         `json:"mtime"`
	LinkPath string        `json:"link,omitempty"`
	Dialect  string        `json:"dialect"`
	Digest   digest.Digest `json:"digest,omitempty"`
}

// Manifest summarizes an archive.
type Manifest struct {
	Compression string  `json:"compression"`
	Entries     []Entry `json:"entries"`
	TotalSize   int64   `json:"total_size"`
}

func newEntry(h *tar.Header) Entry {
	return Entry{
		Path:     h.Path,
		Type:     h.Type.String(),
		Size:     h.Size,
		Mode:     h.Mode,
		ModTime:  h.ModTime.Seconds,
		LinkPath: h.LinkPath,
		Dialect:  h.Dialect.String(),
	}
}

func (m *Manifest) add(e Entry) {
	m.Entries = append(m.Entries, e)
	m.TotalSize += e.Size
}

func newManifest(c compress.Compression) *Manifest {
	return &Manifest{Compression: c.String(), Entries: []Entry{}}
}

// Find returns the entry with the given path.
func (m *Manifest) Find(p string) (Entry, bool) {
	p = strings.TrimSuffix(p, "/")
	for _, e := range m.Entries {
		if strings.TrimSuffix(e.Path, "/") == p {
			return e, true
		}
	}
	return Entry{}, false
}

// matchesInclude reports whether p is selected by patterns. An empty
// pattern list selects everything.
func matchesInclude(patterns []string, p string) bool {
	if len(patterns) == 0 {
		return true
	}
	p = strings.TrimSuffix(p, "/")
	for _, pattern := range patterns {
		pattern = strings.TrimSuffix(pattern, "/")
		for candidate := p; candidate != "." && candidate != "/" && candidate != ""; candidate = path.Dir(candidate) {
			if ok, _ := path.Match(pattern, candidate); ok {
				return true
			}
		}
	}
	return false
}
