// Package exhibit is the read-only view of a project's exhibits and files that
// the detector, ranker and resolver query. The records are owned by whatever
// manages the project; nothing in this module writes to a Source.
package exhibit

import (
	"fmt"
	"strings"
)

// Type is the kind of evidence a file or exhibit holds.
type Type string

const (
	TypeDocument Type = "document"
	TypePhoto    Type = "photo"
	TypeVideo    Type = "video"
	TypeAudio    Type = "audio"
)

// KnownTypes lists every valid Type.
var KnownTypes = []Type{TypeDocument, TypePhoto, TypeVideo, TypeAudio}

// ParseType normalizes s into a Type. Empty input defaults to document.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeDocument, nil
	}
	for _, t := range KnownTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown exhibit type %q", s)
}

// IsTimeBased reports whether positions in this type are playback offsets.
func (t Type) IsTimeBased() bool {
	return t == TypeVideo || t == TypeAudio
}

// Entry is one exhibit available for citation in the current project.
type Entry struct {
	ExhibitRef    string `json:"exhibit_ref" yaml:"exhibit_ref"`
	Title         string `json:"title" yaml:"title"`
	Type          Type   `json:"exhibit_type" yaml:"exhibit_type"`
	FileID        string `json:"file_id,omitempty" yaml:"file_id"`
	IsKeyEvidence bool   `json:"is_key_evidence" yaml:"is_key_evidence"`
}

// File is a concrete file record. ExhibitRef links it back to an exhibit.
type File struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Type       Type   `json:"type" yaml:"type"`
	ExhibitRef string `json:"exhibit_ref,omitempty" yaml:"exhibit_ref"`
}

// Source supplies the current exhibit directory and file collection.
// Implementations return a fresh snapshot on every call.
type Source interface {
	Exhibits() []Entry
	Files() []File
}

// Snapshot is an immutable Source.
type Snapshot struct {
	exhibits []Entry
	files    []File
}

// NewSnapshot copies exhibits and files into a new Snapshot.
func NewSnapshot(exhibits []Entry, files []File) *Snapshot {
	s := &Snapshot{
		exhibits: make([]Entry, len(exhibits)),
		files:    make([]File, len(files)),
	}
	copy(s.exhibits, exhibits)
	copy(s.files, files)
	return s
}

// Exhibits returns a copy of the exhibit directory.
func (s *Snapshot) Exhibits() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.exhibits))
	copy(out, s.exhibits)
	return out
}

// Files returns a copy of the file collection.
func (s *Snapshot) Files() []File {
	if s == nil {
		return nil
	}
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// EntryByRef finds the exhibit with an exact ref.
func EntryByRef(entries []Entry, ref string) (Entry, bool) {
	for _, e := range entries {
		if e.ExhibitRef == ref {
			return e, true
		}
	}
	return Entry{}, false
}

// FileByID finds the file with the given id.
func FileByID(files []File, id string) (File, bool) {
	if id == "" {
		return File{}, false
	}
	for _, f := range files {
		if f.ID == id {
			return f, true
		}
	}
	return File{}, false
}

// FileByExhibitRef finds the first file linked to the exhibit ref.
func FileByExhibitRef(files []File, ref string) (File, bool) {
	if ref == "" {
		return File{}, false
	}
	for _, f := range files {
		if f.ExhibitRef == ref {
			return f, true
		}
	}
	return File{}, false
}
