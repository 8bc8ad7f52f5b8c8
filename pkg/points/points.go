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

// Package points holds the markers and work area of a timeline. A viewer
// persists them as its "points" custom block.
package points

import (
	"fmt"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

// BlockName is the custom block name points are saved under.
const BlockName = "points"

// Marker is a named span (or instant, if empty) on the timeline.
type Marker struct {
	Range timerange.TimeRange
	Name  string
	Color int
}

// WorkArea is the part of the timeline playback and export are limited to.
type WorkArea struct {
	Enabled bool
	Range   timerange.TimeRange
}

// Points is not safe for concurrent use; it belongs to the graph's thread.
type Points struct {
	markers  []Marker
	workArea WorkArea
}

// New returns an empty set of points.
func New() *Points {
	return &Points{}
}

// Markers returns the markers ordered by start time.
func (p *Points) Markers() []Marker {
	return slices.Clone(p.markers)
}

// AddMarker inserts m, keeping markers ordered by start time.
func (p *Points) AddMarker(m Marker) {
	i, _ := slices.BinarySearchFunc(p.markers, m.Range.In(), func(e Marker, t rational.Rational) int {
		if c := e.Range.In().Cmp(t); c != 0 {
			return c
		}

		// Equal starts go after existing ones.
		return -1
	})

	p.markers = slices.Insert(p.markers, i, m)
}

// RemoveMarker removes the first marker equal to m, reporting whether one was
// found.
func (p *Points) RemoveMarker(m Marker) bool {
	i := slices.Index(p.markers, m)
	if i < 0 {
		return false
	}

	p.markers = slices.Delete(p.markers, i, i+1)

	return true
}

// WorkArea returns the work area.
func (p *Points) WorkArea() WorkArea {
	return p.workArea
}

// SetWorkArea replaces the work area.
func (p *Points) SetWorkArea(w WorkArea) {
	p.workArea = w
}

// Shift moves every point at or after from by (to - from). When time is
// removed (to < from), markers starting inside the removed span are dropped.
func (p *Points) Shift(from, to rational.Rational) {
	if from == to {
		return
	}

	diff := to.Sub(from)
	removed := timerange.New(to, from)

	out := p.markers[:0]

	for _, m := range p.markers {
		switch {
		case !m.Range.In().Less(from):
			m.Range = m.Range.Shifted(diff)
		case to.Less(from) && removed.ContainsTime(m.Range.In()):
			continue
		default:
			m.Range = timerange.New(m.Range.In(), shiftEnd(m.Range.In(), m.Range.Out(), from, to))
		}

		out = append(out, m)
	}

	p.markers = out

	in, end := p.workArea.Range.In(), p.workArea.Range.Out()
	if !in.Less(from) {
		in = in.Add(diff)
		end = end.Add(diff)
	} else {
		end = shiftEnd(in, end, from, to)
	}

	p.workArea.Range = timerange.New(in, end)
}

// shiftEnd returns where the end of a span starting before from lands. Ends
// at or after from move with the shift; ends inside removed time are cut.
func shiftEnd(in, end, from, to rational.Rational) rational.Rational {
	if !end.Less(from) {
		end = end.Add(to.Sub(from))
	} else {
		end = rational.MinOf(end, to)
	}

	return rational.MaxOf(end, in)
}

// ShiftVideo moves points along with a video cache shift.
func (p *Points) ShiftVideo(from, to rational.Rational) {
	p.Shift(from, to)
}

// ShiftAudio does nothing; points follow the picture.
func (p *Points) ShiftAudio(_, _ rational.Rational) {}

type markerDoc struct {
	In    rational.Rational `yaml:"in"`
	Out   rational.Rational `yaml:"out"`
	Name  string            `yaml:"name,omitempty"`
	Color int               `yaml:"color,omitempty"`
}

type pointsDoc struct {
	WorkArea struct {
		Enabled bool              `yaml:"enabled"`
		In      rational.Rational `yaml:"in"`
		Out     rational.Rational `yaml:"out"`
	} `yaml:"workarea"`
	Markers []markerDoc `yaml:"markers,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (p *Points) MarshalYAML() (any, error) {
	var d pointsDoc

	d.WorkArea.Enabled = p.workArea.Enabled
	d.WorkArea.In = p.workArea.Range.In()
	d.WorkArea.Out = p.workArea.Range.Out()

	for _, m := range p.markers {
		d.Markers = append(d.Markers, markerDoc{
			In:    m.Range.In(),
			Out:   m.Range.Out(),
			Name:  m.Name,
			Color: m.Color,
		})
	}

	return d, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Existing points are replaced.
func (p *Points) UnmarshalYAML(value *yaml.Node) error {
	var d pointsDoc
	if err := value.Decode(&d); err != nil {
		return fmt.Errorf("decoding points: %w", err)
	}

	p.workArea = WorkArea{
		Enabled: d.WorkArea.Enabled,
		Range:   timerange.New(d.WorkArea.In, d.WorkArea.Out),
	}

	p.markers = nil
	for _, m := range d.Markers {
		p.AddMarker(Marker{Range: timerange.New(m.In, m.Out), Name: m.Name, Color: m.Color})
	}

	return nil
}
