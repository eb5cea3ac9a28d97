package ops

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/hpungsan/citelink/internal/citation"
	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/db"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/exhibit"
)

// Record kinds in a JSONL import file.
const (
	KindExhibit = "exhibit"
	KindFile    = "file"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Project string // default: config default_project
	Path    string // required; .jsonl, .yaml or .yml
}

// ImportOutput contains the result of the Import operation.
// When Errors is non-empty nothing was imported.
type ImportOutput struct {
	Project  string        `json:"project"`
	Exhibits int           `json:"exhibits"`
	Files    int           `json:"files"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError represents a rejected record.
type ImportError struct {
	Line    int    `json:"line"`
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importRecord is one line of a JSONL import, or one item of a manifest list.
type importRecord struct {
	Kind string `json:"kind" yaml:"-"`

	// exhibit fields
	ExhibitRef    string `json:"exhibit_ref" yaml:"exhibit_ref"`
	Title         string `json:"title" yaml:"title"`
	ExhibitType   string `json:"exhibit_type" yaml:"exhibit_type"`
	FileID        string `json:"file_id" yaml:"file_id"`
	IsKeyEvidence bool   `json:"is_key_evidence" yaml:"is_key_evidence"`

	// file fields
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`

	line int
}

func (r *importRecord) validate() error {
	switch r.Kind {
	case KindExhibit:
		return validation.ValidateStruct(r,
			validation.Field(&r.ExhibitRef,
				validation.Required,
				validation.By(func(any) error {
					if !citation.ValidExhibitRef(r.ExhibitRef) {
						return fmt.Errorf("must be digits followed by uppercase letters")
					}
					return nil
				}),
			),
			validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		)
	case KindFile:
		return validation.ValidateStruct(r,
			validation.Field(&r.ID, validation.Required, validation.Length(1, 200)),
			validation.Field(&r.Name, validation.Required),
		)
	}
	return fmt.Errorf("kind must be %q or %q", KindExhibit, KindFile)
}

// Import replaces a project's exhibit directory and file collection with the
// contents of a JSONL file or YAML manifest. The import is all-or-nothing:
// any rejected record leaves the stored project untouched.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	data, err := readValidated(input.Path, ImportExtensions, cfg)
	if err != nil {
		return nil, err
	}

	var (
		records         []importRecord
		errs            []ImportError
		manifestProject string
	)
	if strings.ToLower(filepath.Ext(input.Path)) == ".jsonl" {
		records, errs = parseJSONL(data)
	} else {
		records, manifestProject, errs = parseManifest(data)
	}

	project := input.Project
	if strings.TrimSpace(project) == "" {
		project = manifestProject
	}
	project, err = ResolveProject(project, cfg)
	if err != nil {
		return nil, err
	}

	exhibits, files, buildErrs := buildRecords(records)
	errs = append(errs, buildErrs...)

	out := &ImportOutput{Project: project}
	if len(errs) > 0 {
		out.Errors = errs
		return out, nil
	}

	if err := db.ReplaceProject(ctx, database, project, exhibits, files); err != nil {
		return nil, err
	}
	out.Exhibits = len(exhibits)
	out.Files = len(files)
	return out, nil
}

func parseJSONL(data []byte) ([]importRecord, []ImportError) {
	var (
		records []importRecord
		errs    []ImportError
	)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxInputBytes)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var r importRecord
		if err := json.Unmarshal(line, &r); err != nil {
			errs = append(errs, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
		r.line = lineNum
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, errs
}

// parseManifest reads a YAML manifest:
//
//	project: acme
//	exhibits:
//	  - {exhibit_ref: 2B, title: Contract, exhibit_type: document, file_id: f1}
//	files:
//	  - {id: f1, name: contract.pdf, type: document, exhibit_ref: 2B}
//
// The document is decoded node by node so errors carry line numbers.
func parseManifest(data []byte) ([]importRecord, string, []ImportError) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, "", []ImportError{{Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid YAML: %v", err)}}
	}
	if len(root.Content) == 0 {
		return nil, "", nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, "", []ImportError{{Line: doc.Line, Code: "PARSE_ERROR", Message: "manifest must be a mapping"}}
	}

	var (
		records []importRecord
		errs    []ImportError
		project string
	)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i], doc.Content[i+1]
		var kind string
		switch key.Value {
		case "project":
			project = val.Value
			continue
		case "exhibits":
			kind = KindExhibit
		case "files":
			kind = KindFile
		default:
			errs = append(errs, ImportError{Line: key.Line, Code: "PARSE_ERROR", Message: fmt.Sprintf("unknown key %q", key.Value)})
			continue
		}
		if val.Kind != yaml.SequenceNode {
			errs = append(errs, ImportError{Line: val.Line, Code: "PARSE_ERROR", Message: fmt.Sprintf("%s must be a list", key.Value)})
			continue
		}
		for _, item := range val.Content {
			var r importRecord
			if err := item.Decode(&r); err != nil {
				errs = append(errs, ImportError{Line: item.Line, Code: "PARSE_ERROR", Message: err.Error()})
				continue
			}
			r.Kind = kind
			r.line = item.Line
			records = append(records, r)
		}
	}
	return records, project, errs
}

func buildRecords(records []importRecord) ([]exhibit.Entry, []exhibit.File, []ImportError) {
	var (
		exhibits []exhibit.Entry
		files    []exhibit.File
		errs     []ImportError
	)
	seenRefs := make(map[string]bool)
	seenFiles := make(map[string]bool)

	for i := range records {
		r := &records[i]
		r.ExhibitRef = strings.TrimSpace(r.ExhibitRef)
		r.ID = strings.TrimSpace(r.ID)
		ref := r.ExhibitRef
		if r.Kind == KindFile {
			ref = r.ID
		}
		if err := r.validate(); err != nil {
			errs = append(errs, ImportError{Line: r.line, Ref: ref, Code: "INVALID_RECORD", Message: err.Error()})
			continue
		}

		switch r.Kind {
		case KindExhibit:
			typ, err := exhibit.ParseType(r.ExhibitType)
			if err != nil {
				errs = append(errs, ImportError{Line: r.line, Ref: ref, Code: "INVALID_RECORD", Message: err.Error()})
				continue
			}
			if seenRefs[r.ExhibitRef] {
				errs = append(errs, ImportError{Line: r.line, Ref: ref, Code: "DUPLICATE", Message: fmt.Sprintf("exhibit %q listed twice", r.ExhibitRef)})
				continue
			}
			seenRefs[r.ExhibitRef] = true
			exhibits = append(exhibits, exhibit.Entry{
				ExhibitRef:    r.ExhibitRef,
				Title:         strings.TrimSpace(r.Title),
				Type:          typ,
				FileID:        strings.TrimSpace(r.FileID),
				IsKeyEvidence: r.IsKeyEvidence,
			})
		case KindFile:
			typ, err := exhibit.ParseType(r.Type)
			if err != nil {
				errs = append(errs, ImportError{Line: r.line, Ref: ref, Code: "INVALID_RECORD", Message: err.Error()})
				continue
			}
			if seenFiles[r.ID] {
				errs = append(errs, ImportError{Line: r.line, Ref: ref, Code: "DUPLICATE", Message: fmt.Sprintf("file %q listed twice", r.ID)})
				continue
			}
			seenFiles[r.ID] = true
			files = append(files, exhibit.File{
				ID:         r.ID,
				Name:       strings.TrimSpace(r.Name),
				Type:       typ,
				ExhibitRef: r.ExhibitRef,
			})
		}
	}
	return exhibits, files, errs
}
