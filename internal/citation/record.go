package citation

import (
	"encoding/json"
	"fmt"
)

// NodeType is the tag saved documents use to mark a citation node.
const NodeType = "citation"

// RecordVersion is the current serialized shape version.
const RecordVersion = 1

// Record is the durable shape of a token inside a saved document.
// Consumers that do not understand citations must pass it back unchanged.
type Record struct {
	Type              string `json:"type"`
	Version           int    `json:"version"`
	ExhibitID         string `json:"exhibitId"`
	PageNumber        int    `json:"pageNumber,omitempty"`
	Description       string `json:"description,omitempty"`
	FileID            string `json:"fileId,omitempty"`
	CitationReference string `json:"citationReference"`
}

// ToRecord converts a token to its tagged record.
func (t Token) ToRecord() Record {
	return Record{
		Type:              NodeType,
		Version:           RecordVersion,
		ExhibitID:         t.ExhibitRef,
		PageNumber:        t.PageNumber,
		Description:       t.Description,
		FileID:            t.FileID,
		CitationReference: t.CitationReference,
	}
}

// FromRecord reconstructs a token through New, so the stored reference wins
// over the stored exhibit id and page if the two ever disagree.
func FromRecord(r Record) (Token, error) {
	if r.Type != NodeType {
		return Token{}, fmt.Errorf("citation: unexpected node type %q", r.Type)
	}
	return New(r.ExhibitID, r.PageNumber, r.Description, r.FileID, r.CitationReference), nil
}

// Marshal serializes a token as a tagged record.
func Marshal(t Token) ([]byte, error) {
	return json.Marshal(t.ToRecord())
}

// Unmarshal parses a tagged record back into a token.
func Unmarshal(data []byte) (Token, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Token{}, fmt.Errorf("citation: decode record: %w", err)
	}
	return FromRecord(r)
}

// IsRecord reports whether raw JSON carries the citation node tag.
func IsRecord(data []byte) bool {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.Type == NodeType
}
