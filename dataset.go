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

package metdiag

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"gonum.org/v1/gonum/floats"
)

// Dataset is an open reanalysis file, such as a MERRA-2 3-hourly
// pressure-level collection (inst3_3d_asm_Np).
type Dataset struct {
	path string
	g    api.Group
}

// OpenDataset opens the NetCDF-4 or HDF5 file at path.
func OpenDataset(path string) (*Dataset, error) {
	g, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metdiag: opening %s: %v", path, err)
	}
	return &Dataset{path: path, g: g}, nil
}

// Close releases the file.
func (d *Dataset) Close() { d.g.Close() }

// inputVars are the variables read from each file.
var inputVars = []struct {
	name string
	dims unit.Dimensions
	axes []string
}{
	{"U", unit.MeterPerSecond, []string{TimeAxis, LevelAxis, LatAxis, LonAxis}},
	{"V", unit.MeterPerSecond, []string{TimeAxis, LevelAxis, LatAxis, LonAxis}},
	{"QV", unit.Dimless, []string{TimeAxis, LevelAxis, LatAxis, LonAxis}},
	{"T", unit.Kelvin, []string{TimeAxis, LevelAxis, LatAxis, LonAxis}},
	{"SLP", unit.Pascal, []string{TimeAxis, LatAxis, LonAxis}},
}

// Inputs reads the fields needed for the diagnostics, restricted to
// the grid points whose coordinates fall within b (X is longitude and
// Y is latitude, inclusive). Variables are read one time step at a
// time and subset as they are read, so only one global time step of
// a variable is held in memory. Fill values are returned as NaN.
func (d *Dataset) Inputs(b *geom.Bounds) (*Inputs, error) {
	coords := make(map[string][]float64)
	in := new(Inputs)
	for _, name := range []string{TimeAxis, LevelAxis, LatAxis, LonAxis} {
		v, err := d.variable(name)
		if err != nil {
			return nil, err
		}
		c, err := flatten(v.Values)
		if err != nil {
			return nil, fmt.Errorf("metdiag: %s: coordinate %s: %v", d.path, name, err)
		}
		units := attrString(v.Attributes, "units")
		switch name {
		case TimeAxis:
			in.TimeUnits = units
		case LevelAxis:
			if units != "" {
				scale, err := CheckUnits(name, units, unit.Pascal)
				if err != nil {
					return nil, err
				}
				floats.Scale(scale/paPerHPa, c)
			}
		}
		coords[name] = c
	}

	keep := make(map[string][]int)
	for _, r := range []struct {
		axis   string
		lo, hi float64
	}{
		{LatAxis, b.Min.Y, b.Max.Y},
		{LonAxis, b.Min.X, b.Max.X},
	} {
		if keep[r.axis] = indicesWithin(coords[r.axis], r.lo, r.hi); len(keep[r.axis]) == 0 {
			return nil, preconditionf("Inputs", "%s: no %s coordinates within [%g, %g]",
				d.path, r.axis, r.lo, r.hi)
		}
	}

	fields := make(map[string]*GridField)
	for _, iv := range inputVars {
		f, err := d.readField(iv.name, iv.dims, iv.axes, coords, keep)
		if err != nil {
			return nil, err
		}
		fields[iv.name] = f
	}
	in.U, in.V, in.QV, in.T, in.SLP = fields["U"], fields["V"], fields["QV"], fields["T"], fields["SLP"]
	return in, nil
}

// readField reads variable name, whose leading axis is time, one time
// step at a time. Only the lat and lon indices in keep are retained.
func (d *Dataset) readField(name string, dims unit.Dimensions, axisNames []string,
	coords map[string][]float64, keep map[string][]int) (*GridField, error) {
	vg, err := d.g.GetVarGetter(name)
	if err != nil {
		return nil, fmt.Errorf("metdiag: %s: reading variable %s: %v", d.path, name, err)
	}
	if !slices.Equal(vg.Dimensions(), axisNames) {
		return nil, preconditionf("Inputs", "%s: %s has dimensions %v, want %v",
			d.path, name, vg.Dimensions(), axisNames)
	}
	attrs := vg.Attributes()
	units := attrString(attrs, "units")
	if _, err := CheckUnits(name, units, dims); err != nil {
		return nil, err
	}
	var fills []float64
	for _, key := range []string{"_FillValue", "missing_value"} {
		if fv, ok := attrFloat(attrs, key); ok {
			fills = append(fills, fv)
		}
	}

	nt := len(coords[TimeAxis])
	if vg.Len() != int64(nt) {
		return nil, preconditionf("Inputs", "%s: %s has %d time steps but the time axis has %d",
			d.path, name, vg.Len(), nt)
	}
	lat, lon := keep[LatAxis], keep[LonAxis]
	nlat, nlon := len(coords[LatAxis]), len(coords[LonAxis])

	// Each time step is nk planes of nlat × nlon.
	nk := 1
	shape := []int{nt}
	axes := []Axis{{Name: TimeAxis, Coords: coords[TimeAxis]}}
	for _, a := range axisNames[1:] {
		switch a {
		case LatAxis, LonAxis:
			c := make([]float64, len(keep[a]))
			for i, j := range keep[a] {
				c[i] = coords[a][j]
			}
			shape = append(shape, len(c))
			axes = append(axes, Axis{Name: a, Coords: c})
		default:
			nk *= len(coords[a])
			shape = append(shape, len(coords[a]))
			axes = append(axes, Axis{Name: a, Coords: append([]float64(nil), coords[a]...)})
		}
	}

	data := sparse.ZerosDense(shape...)
	pos := 0
	for t := 0; t < nt; t++ {
		raw, err := vg.GetSlice(int64(t), int64(t+1))
		if err != nil {
			return nil, fmt.Errorf("metdiag: %s: reading %s time step %d: %v", d.path, name, t, err)
		}
		vals, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("metdiag: %s: %s: %v", d.path, name, err)
		}
		if len(vals) != nk*nlat*nlon {
			return nil, preconditionf("Inputs", "%s: %s time step %d has %d values, want %d",
				d.path, name, t, len(vals), nk*nlat*nlon)
		}
		for k := 0; k < nk; k++ {
			for _, j := range lat {
				row := (k*nlat + j) * nlon
				for _, i := range lon {
					x := vals[row+i]
					if slices.Contains(fills, x) {
						x = math.NaN()
					}
					data.Elements[pos] = x
					pos++
				}
			}
		}
	}
	return newField(name, units, data, axes), nil
}

func (d *Dataset) variable(name string) (*api.Variable, error) {
	v, err := d.g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("metdiag: %s: reading variable %s: %v", d.path, name, err)
	}
	return v, nil
}

// flatten converts the nested slices returned by the NetCDF reader to a
// row-major []float64.
func flatten(v interface{}) ([]float64, error) {
	var out []float64
	var walk func(rv reflect.Value) error
	walk = func(rv reflect.Value) error {
		switch x := rv.Interface().(type) {
		case []float32:
			for _, e := range x {
				out = append(out, float64(e))
			}
			return nil
		case []float64:
			out = append(out, x...)
			return nil
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			for i := 0; i < rv.Len(); i++ {
				if err := walk(rv.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Interface:
			return walk(rv.Elem())
		case reflect.Float32, reflect.Float64:
			out = append(out, rv.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(rv.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(rv.Uint()))
		default:
			return fmt.Errorf("unsupported value type %s", rv.Type())
		}
		return nil
	}
	if v == nil {
		return nil, fmt.Errorf("no values")
	}
	if err := walk(reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return out, nil
}

func attrString(a api.AttributeMap, key string) string {
	if a == nil {
		return ""
	}
	v, ok := a.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func attrFloat(a api.AttributeMap, key string) (float64, bool) {
	if a == nil {
		return 0, false
	}
	v, ok := a.Get(key)
	if !ok {
		return 0, false
	}
	f, err := flatten(v)
	if err != nil || len(f) == 0 {
		return 0, false
	}
	return f[0], true
}
