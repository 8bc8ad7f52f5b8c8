// Frontline Perception System
// Copyright (C) 2020-2025 TurbineOne LLC
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package viewer

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/points"
)

type unknownBlockError struct {
	line int
}

func (e *unknownBlockError) Error() string {
	return fmt.Sprintf("custom block at line %d has no name", e.line)
}

// LoadCustom loads one named block of persisted data. Blocks other than
// points are handed to the node base, which keeps them for SaveCustom.
func (o *Output) LoadCustom(name string, value *yaml.Node) error {
	if name != points.BlockName {
		return o.Node.LoadCustom(name, value)
	}

	if err := value.Decode(o.points); err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}

	return nil
}

// SaveCustom returns the node's persisted blocks: points first, then any
// blocks LoadCustom passed through.
func (o *Output) SaveCustom() ([]node.CustomBlock, error) {
	var v yaml.Node
	if err := v.Encode(o.points); err != nil {
		return nil, fmt.Errorf("saving %s: %w", points.BlockName, err)
	}

	blocks := []node.CustomBlock{{Name: points.BlockName, Value: &v}}

	return append(blocks, o.Node.SaveCustom()...), nil
}

// MarshalCustom encodes SaveCustom as a YAML mapping of block name to block.
func (o *Output) MarshalCustom() ([]byte, error) {
	blocks, err := o.SaveCustom()
	if err != nil {
		return nil, err
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, b := range blocks {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: b.Name},
			b.Value)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling custom blocks: %w", err)
	}

	return out, nil
}

// UnmarshalCustom feeds every block of a MarshalCustom document to
// LoadCustom.
func (o *Output) UnmarshalCustom(b []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parsing custom blocks: %w", err)
	}

	if len(doc.Content) == 0 {
		return nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("custom blocks at line %d: expected a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return &unknownBlockError{line: key.Line}
		}

		if err := o.LoadCustom(key.Value, value); err != nil {
			return err
		}
	}

	return nil
}
