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

package node

import (
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// CustomBlock is a named, opaque block of persisted node data.
type CustomBlock struct {
	Name  string
	Value *yaml.Node
}

// LoadCustom is the last stop of the custom-data load chain. Blocks nobody
// recognized are kept verbatim so SaveCustom can write them back out.
func (n *Node) LoadCustom(name string, value *yaml.Node) error {
	n.log.Debug().Str(lInput, name).Msg("keeping unrecognized custom block")

	i := slices.IndexFunc(n.custom, func(b CustomBlock) bool { return b.Name == name })
	if i >= 0 {
		n.custom[i].Value = value

		return nil
	}

	n.custom = append(n.custom, CustomBlock{Name: name, Value: value})

	return nil
}

// SaveCustom returns the blocks kept by LoadCustom, in load order.
func (n *Node) SaveCustom() []CustomBlock {
	return slices.Clone(n.custom)
}
