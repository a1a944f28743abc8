/*
Copyright © 2024 the metdiag authors.
This file is part of metdiag.

metdiag is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

metdiag is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with metdiag.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package metdiag calculates moisture transport and frontal diagnostics
// from gridded reanalysis data: the magnitude of vertically integrated
// water vapor transport (IVT) and the horizontal gradient of equivalent
// potential temperature on a pressure level, for every time step in a
// file, alongside sea level pressure.
package metdiag

import (
	"fmt"
	"strings"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Names of the axes a GridField may carry.
const (
	TimeAxis  = "time"
	LevelAxis = "lev"
	LatAxis   = "lat"
	LonAxis   = "lon"
)

// Axis is a named, ordered coordinate sequence along one dimension
// of a GridField.
type Axis struct {
	Name   string
	Coords []float64
}

func (a Axis) copy() Axis {
	return Axis{Name: a.Name, Coords: append([]float64(nil), a.Coords...)}
}

// GridField is a read-only view of a physical quantity on a regular
// grid. Its data are stored row-major in the order of its axes.
// A GridField is never modified after construction; every
// operation that changes shape or values returns a new GridField.
type GridField struct {
	name, units string
	axes        []Axis
	data        *sparse.DenseArray
}

// NewGridField returns a GridField holding a copy of data, whose
// dimensions are described by axes in order. The length of each
// axis's coordinates must match the corresponding data dimension.
func NewGridField(name, units string, data *sparse.DenseArray, axes ...Axis) (*GridField, error) {
	if data == nil {
		return nil, preconditionf("NewGridField", "%s: nil data", name)
	}
	if len(axes) != len(data.Shape) {
		return nil, preconditionf("NewGridField", "%s: %d axes for %d-d data",
			name, len(axes), len(data.Shape))
	}
	n := 1
	seen := make(map[string]bool)
	for i, a := range axes {
		if seen[a.Name] {
			return nil, preconditionf("NewGridField", "%s: repeated axis %q", name, a.Name)
		}
		seen[a.Name] = true
		if len(a.Coords) != data.Shape[i] {
			return nil, preconditionf("NewGridField", "%s: axis %s has %d coordinates but dimension %d has length %d",
				name, a.Name, len(a.Coords), i, data.Shape[i])
		}
		n *= data.Shape[i]
	}
	if len(data.Elements) != n {
		return nil, preconditionf("NewGridField", "%s: dims are %d but array length is %d",
			name, n, len(data.Elements))
	}
	f := &GridField{name: name, units: units, data: data.Copy()}
	for _, a := range axes {
		f.axes = append(f.axes, a.copy())
	}
	return f, nil
}

// newField builds a GridField that takes ownership of data and axes.
// The caller must not keep references to either.
func newField(name, units string, data *sparse.DenseArray, axes []Axis) *GridField {
	return &GridField{name: name, units: units, axes: axes, data: data}
}

// Name returns the variable name of f.
func (f *GridField) Name() string { return f.name }

// Units returns the units of f's values.
func (f *GridField) Units() string { return f.units }

// Shape returns the length of each of f's dimensions.
func (f *GridField) Shape() []int { return append([]int(nil), f.data.Shape...) }

// AxisNames returns the names of f's axes in order.
func (f *GridField) AxisNames() []string {
	names := make([]string, len(f.axes))
	for i, a := range f.axes {
		names[i] = a.Name
	}
	return names
}

// Coords returns a copy of the coordinates of the named axis and whether
// f has that axis.
func (f *GridField) Coords(axis string) ([]float64, bool) {
	i := f.axisIndex(axis)
	if i < 0 {
		return nil, false
	}
	return append([]float64(nil), f.axes[i].Coords...), true
}

// At returns the value at the given index, one entry per axis.
func (f *GridField) At(index ...int) float64 { return f.data.Get(index...) }

// Values returns a copy of f's values in row-major order.
func (f *GridField) Values() []float64 { return append([]float64(nil), f.data.Elements...) }

func (f *GridField) String() string {
	return fmt.Sprintf("%s(%s) [%s]", f.name, strings.Join(f.AxisNames(), ", "), f.units)
}

func (f *GridField) axisIndex(name string) int {
	for i, a := range f.axes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

// mustAxes checks that f has exactly the named axes, in order.
func (f *GridField) mustAxes(op string, names ...string) error {
	got := f.AxisNames()
	if len(got) != len(names) {
		return preconditionf(op, "%s has axes %v, want %v", f.name, got, names)
	}
	for i, n := range names {
		if got[i] != n {
			return preconditionf(op, "%s has axes %v, want %v", f.name, got, names)
		}
	}
	return nil
}

// Index returns the slice of f at position i along axis, with that
// axis removed.
func (f *GridField) Index(axis string, i int) (*GridField, error) {
	ax := f.axisIndex(axis)
	if ax < 0 {
		return nil, preconditionf("Index", "%s has no axis %s", f.name, axis)
	}
	if i < 0 || i >= f.data.Shape[ax] {
		return nil, preconditionf("Index", "%s: index %d out of range [0, %d) along %s",
			f.name, i, f.data.Shape[ax], axis)
	}
	return f.take(ax, []int{i}, true), nil
}

// Select returns the slice of f where the named axis exactly equals
// value, with that axis removed. No interpolation is done; a value absent
// from the coordinates is a PreconditionError.
func (f *GridField) Select(axis string, value float64) (*GridField, error) {
	ax := f.axisIndex(axis)
	if ax < 0 {
		return nil, preconditionf("Select", "%s has no axis %s", f.name, axis)
	}
	for i, c := range f.axes[ax].Coords {
		if c == value {
			return f.take(ax, []int{i}, true), nil
		}
	}
	return nil, preconditionf("Select", "%s: %s = %g not among coordinates %v",
		f.name, axis, value, f.axes[ax].Coords)
}

// SelectRange returns the part of f whose coordinates along the named
// axis lie within [lo, hi], inclusive, in their original order.
func (f *GridField) SelectRange(axis string, lo, hi float64) (*GridField, error) {
	ax := f.axisIndex(axis)
	if ax < 0 {
		return nil, preconditionf("SelectRange", "%s has no axis %s", f.name, axis)
	}
	idx := indicesWithin(f.axes[ax].Coords, lo, hi)
	if len(idx) == 0 {
		return nil, preconditionf("SelectRange", "%s: no %s coordinates within [%g, %g]",
			f.name, axis, lo, hi)
	}
	return f.take(ax, idx, false), nil
}

// indicesWithin returns the indices of the coordinates in [lo, hi],
// inclusive, in their original order. lo and hi may be given either way.
func indicesWithin(coords []float64, lo, hi float64) []int {
	if lo > hi {
		lo, hi = hi, lo
	}
	var idx []int
	for i, c := range coords {
		if c >= lo && c <= hi {
			idx = append(idx, i)
		}
	}
	return idx
}

// take copies the given indices along dimension ax into a new field.
// If drop is true, ax is removed from the result; idx must then
// hold a single index.
func (f *GridField) take(ax int, idx []int, drop bool) *GridField {
	shape := f.data.Shape
	outer, inner := 1, 1
	for i := 0; i < ax; i++ {
		outer *= shape[i]
	}
	for i := ax + 1; i < len(shape); i++ {
		inner *= shape[i]
	}
	n := shape[ax]

	var outShape []int
	var axes []Axis
	for i, a := range f.axes {
		if i != ax {
			outShape = append(outShape, shape[i])
			axes = append(axes, a.copy())
			continue
		}
		if drop {
			continue
		}
		outShape = append(outShape, len(idx))
		c := Axis{Name: a.Name, Coords: make([]float64, len(idx))}
		for k, j := range idx {
			c.Coords[k] = a.Coords[j]
		}
		axes = append(axes, c)
	}
	out := sparse.ZerosDense(outShape...)
	for o := 0; o < outer; o++ {
		for k, src := range idx {
			from := (o*n + src) * inner
			to := (o*len(idx) + k) * inner
			copy(out.Elements[to:to+inner], f.data.Elements[from:from+inner])
		}
	}
	return newField(f.name, f.units, out, axes)
}

// sameGrid checks that every field has the same axes, in the same
// order, with identical coordinates.
func sameGrid(op string, fields ...*GridField) error {
	if len(fields) < 2 {
		return nil
	}
	ref := fields[0]
	for _, g := range fields[1:] {
		if len(g.axes) != len(ref.axes) {
			return preconditionf(op, "%s has axes %v but %s has axes %v",
				ref.name, ref.AxisNames(), g.name, g.AxisNames())
		}
		for i, a := range ref.axes {
			b := g.axes[i]
			if a.Name != b.Name {
				return preconditionf(op, "%s has axes %v but %s has axes %v",
					ref.name, ref.AxisNames(), g.name, g.AxisNames())
			}
			if !floats.Equal(a.Coords, b.Coords) {
				return preconditionf(op, "%s and %s have different %s coordinates",
					ref.name, g.name, a.Name)
			}
		}
	}
	return nil
}

// Stack joins fields that share a grid along a new leading axis.
// The i'th field becomes position i along that axis, whose coordinates
// must have one entry per field.
func Stack(name string, axis Axis, fields []*GridField) (*GridField, error) {
	if len(fields) == 0 {
		return nil, preconditionf("Stack", "%s: nothing to stack", name)
	}
	if len(axis.Coords) != len(fields) {
		return nil, preconditionf("Stack", "%s: %d %s coordinates for %d fields",
			name, len(axis.Coords), axis.Name, len(fields))
	}
	for i, f := range fields {
		if f == nil {
			return nil, preconditionf("Stack", "%s: missing field at %s index %d", name, axis.Name, i)
		}
	}
	if err := sameGrid("Stack", fields...); err != nil {
		return nil, err
	}
	ref := fields[0]
	if ref.axisIndex(axis.Name) >= 0 {
		return nil, preconditionf("Stack", "%s already has axis %s", ref.name, axis.Name)
	}
	shape := append([]int{len(fields)}, ref.data.Shape...)
	out := sparse.ZerosDense(shape...)
	size := len(ref.data.Elements)
	for i, f := range fields {
		copy(out.Elements[i*size:(i+1)*size], f.data.Elements)
	}
	axes := []Axis{axis.copy()}
	for _, a := range ref.axes {
		axes = append(axes, a.copy())
	}
	return newField(name, ref.units, out, axes), nil
}

// Degenerate reports each of the named axes along which f has fewer
// than two points, and so cannot be integrated or differenced.
func (f *GridField) Degenerate(axes ...string) []DegenerateInputWarning {
	var w []DegenerateInputWarning
	for _, name := range axes {
		i := f.axisIndex(name)
		if i < 0 {
			continue
		}
		if n := f.data.Shape[i]; n < 2 {
			w = append(w, DegenerateInputWarning{Field: f.name, Axis: name, Points: n})
		}
	}
	return w
}

// renamed returns f under a new name and units. The data are shared,
// which is safe because neither field is ever modified.
func (f *GridField) renamed(name, units string) *GridField {
	return &GridField{name: name, units: units, axes: f.axes, data: f.data}
}

// strictlyMonotonic reports whether c is strictly increasing or strictly
// decreasing.
func strictlyMonotonic(c []float64) bool {
	if len(c) < 2 {
		return true
	}
	up := c[1] > c[0]
	for k := 1; k < len(c); k++ {
		if (up && c[k] <= c[k-1]) || (!up && c[k] >= c[k-1]) {
			return false
		}
	}
	return true
}

// scaled returns a copy of f multiplied by factor.
func (f *GridField) scaled(factor float64, name, units string) *GridField {
	return newField(name, units, f.data.ScaleCopy(factor), f.axes)
}
