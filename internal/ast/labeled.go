package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Labeled is a node of the canonical labeled tree produced by the parser.
//
// Internal nodes carry Children; leaves carry the raw Token text. Besides the
// explicit {data, children, token} object form, both JSON and YAML accept two
// compact forms:
//
//	"relation_name:parent"                 leaf: data before the first colon
//	{term_list: ["string:\"a\"", ...]}     internal node: single key is data
type Labeled struct {
	Data     string     `json:"data" yaml:"data"`
	Children []*Labeled `json:"children,omitempty" yaml:"children,omitempty"`
	Token    string     `json:"token,omitempty" yaml:"token,omitempty"`
	Line     int        `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int        `json:"column,omitempty" yaml:"column,omitempty"`
}

// labeledFields avoids recursion into the custom unmarshalers.
type labeledFields Labeled

// Leaf creates a leaf node.
func Leaf(data, token string) *Labeled {
	return &Labeled{Data: data, Token: token}
}

// Tree creates an internal node.
func Tree(data string, children ...*Labeled) *Labeled {
	return &Labeled{Data: data, Children: children}
}

// Pos returns the node position.
func (l *Labeled) Pos() Pos {
	return Pos{Line: l.Line, Column: l.Column}
}

// String renders the tree in the compact single-line form used in diagnostics.
func (l *Labeled) String() string {
	if len(l.Children) == 0 {
		if l.Token == "" {
			return l.Data
		}
		return l.Data + ":" + l.Token
	}
	parts := make([]string, len(l.Children))
	for i, c := range l.Children {
		parts[i] = c.String()
	}
	return l.Data + "(" + strings.Join(parts, " ") + ")"
}

func splitCompactLeaf(s string) (*Labeled, error) {
	data, token, ok := strings.Cut(s, ":")
	if !ok || data == "" {
		return nil, fmt.Errorf("compact leaf %q: want kind:token", s)
	}
	return &Labeled{Data: data, Token: token}, nil
}

// UnmarshalJSON accepts the object form, the compact leaf string and the
// single-key compact internal form.
func (l *Labeled) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		leaf, err := splitCompactLeaf(s)
		if err != nil {
			return err
		}
		*l = *leaf
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("labeled node: %w", err)
	}
	if _, ok := raw["data"]; !ok && len(raw) == 1 {
		for data, body := range raw {
			var children []*Labeled
			if err := json.Unmarshal(body, &children); err != nil {
				return fmt.Errorf("labeled node %s: %w", data, err)
			}
			*l = Labeled{Data: data, Children: children}
		}
		return nil
	}

	var f labeledFields
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("labeled node: %w", err)
	}
	*l = Labeled(f)
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON and fills in the
// position from the YAML document when the node does not carry one.
func (l *Labeled) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		leaf, err := splitCompactLeaf(value.Value)
		if err != nil {
			return err
		}
		*l = *leaf
	case yaml.MappingNode:
		if len(value.Content) == 2 && value.Content[0].Value != "data" {
			var children []*Labeled
			if err := value.Content[1].Decode(&children); err != nil {
				return fmt.Errorf("labeled node %s: %w", value.Content[0].Value, err)
			}
			*l = Labeled{Data: value.Content[0].Value, Children: children}
			break
		}
		var f labeledFields
		if err := value.Decode(&f); err != nil {
			return fmt.Errorf("labeled node: %w", err)
		}
		*l = Labeled(f)
	default:
		return fmt.Errorf("labeled node at line %d: unexpected YAML node kind", value.Line)
	}
	if l.Line == 0 {
		l.Line = value.Line
		l.Column = value.Column
	}
	return nil
}

// ReadJSON decodes a labeled tree from JSON.
func ReadJSON(r io.Reader) (*Labeled, error) {
	var tree Labeled
	if err := json.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode labeled tree: %w", err)
	}
	return &tree, nil
}

// ReadYAML decodes a labeled tree from YAML.
func ReadYAML(r io.Reader) (*Labeled, error) {
	var tree Labeled
	if err := yaml.NewDecoder(r).Decode(&tree); err != nil {
		return nil, fmt.Errorf("decode labeled tree: %w", err)
	}
	return &tree, nil
}
