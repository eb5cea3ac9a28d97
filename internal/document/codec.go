package document

import (
	"encoding/json"
	"fmt"

	"github.com/hpungsan/citelink/internal/citation"
)

// DocType tags the root of a saved document.
const DocType = "doc"

// DocVersion is the saved document shape version.
const DocVersion = 1

type docJSON struct {
	Type    string            `json:"type"`
	Version int               `json:"version"`
	Content []json.RawMessage `json:"content"`
}

type textJSON struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Marshal serializes the document. Empty padding text nodes are dropped and
// unknown nodes are written back as they were read.
func Marshal(d Doc) ([]byte, error) {
	out := docJSON{Type: DocType, Version: DocVersion, Content: []json.RawMessage{}}
	for _, n := range d.nodes {
		var (
			raw []byte
			err error
		)
		switch n.Kind {
		case KindText:
			if n.Text == "" {
				continue
			}
			raw, err = json.Marshal(textJSON{Type: "text", Text: n.Text})
		case KindCitation:
			raw, err = citation.Marshal(n.Citation)
		case KindOpaque:
			raw = n.Raw
		}
		if err != nil {
			return nil, fmt.Errorf("document: encode node: %w", err)
		}
		out.Content = append(out.Content, raw)
	}
	return json.Marshal(out)
}

// Unmarshal parses a saved document. Citation records go through the
// citation deserializer; anything else that is not text is kept opaque.
func Unmarshal(data []byte) (Doc, error) {
	var in docJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return Doc{}, fmt.Errorf("document: decode: %w", err)
	}
	if in.Type != DocType {
		return Doc{}, fmt.Errorf("document: unexpected root type %q", in.Type)
	}

	nodes := make([]Node, 0, len(in.Content))
	for _, raw := range in.Content {
		nodes = append(nodes, decodeNode(raw))
	}
	return New(nodes...), nil
}

func decodeNode(raw json.RawMessage) Node {
	var probe textJSON
	if err := json.Unmarshal(raw, &probe); err != nil {
		return OpaqueNode(raw)
	}
	switch probe.Type {
	case "text":
		return TextNode(probe.Text)
	case citation.NodeType:
		tok, err := citation.Unmarshal(raw)
		if err != nil {
			return OpaqueNode(raw)
		}
		return CitationNode(tok)
	}
	return OpaqueNode(raw)
}
