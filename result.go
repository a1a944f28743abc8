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
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// fillValue marks missing data in output files.
const fillValue float32 = 1e15

var resultVars = []struct {
	name, description string
	get               func(*DiagnosticResult) *GridField
}{
	{SLPName, "Sea level pressure", func(r *DiagnosticResult) *GridField { return r.SLP }},
	{IVTName, "Magnitude of vertically integrated water vapor transport", func(r *DiagnosticResult) *GridField { return r.IVT }},
	{ThetaEGradName, "Magnitude of the horizontal gradient of equivalent potential temperature", func(r *DiagnosticResult) *GridField { return r.ThetaEGrad }},
}

func (r *DiagnosticResult) check() error {
	for _, v := range resultVars {
		f := v.get(r)
		if f == nil {
			return preconditionf("DiagnosticResult", "missing %s", v.name)
		}
		if err := f.mustAxes("DiagnosticResult", TimeAxis, LatAxis, LonAxis); err != nil {
			return err
		}
	}
	return sameGrid("DiagnosticResult", r.SLP, r.IVT, r.ThetaEGrad)
}

// Write writes r to netcdf file w.
func (r *DiagnosticResult) Write(w *os.File) error {
	if err := r.check(); err != nil {
		return err
	}
	dims := []string{TimeAxis, LatAxis, LonAxis}
	h := cdf.NewHeader(dims, r.SLP.Shape())
	h.AddAttribute("", "comment", "Integrated vapor transport and equivalent potential temperature gradient")
	h.AddAttribute("", "data_version", DataVersion)

	coordUnits := map[string]string{
		TimeAxis: r.TimeUnits,
		LatAxis:  "degrees_north",
		LonAxis:  "degrees_east",
	}
	for _, d := range dims {
		h.AddVariable(d, []string{d}, []float64{0})
		if u := coordUnits[d]; u != "" {
			h.AddAttribute(d, "units", u)
		}
	}
	for _, v := range resultVars {
		h.AddVariable(v.name, dims, []float32{0})
		h.AddAttribute(v.name, "description", v.description)
		h.AddAttribute(v.name, "units", v.get(r).units)
		h.AddAttribute(v.name, "_FillValue", []float32{fillValue})
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, d := range dims {
		c, _ := r.SLP.Coords(d)
		if err = writeVar(f, d, c); err != nil {
			return fmt.Errorf("metdiag: writing coordinate %s to netcdf file: %v", d, err)
		}
	}
	for _, v := range resultVars {
		if err = writeNCF(f, v.name, v.get(r).data); err != nil {
			return fmt.Errorf("metdiag: writing variable %s to netcdf file: %v", v.name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// WriteFile writes r to a netcdf file at path. The file is written
// under a temporary name and renamed when complete, so a failed write
// never leaves a partial file at path.
func (r *DiagnosticResult) WriteFile(path string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("metdiag: creating output file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = r.Write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("metdiag: closing output file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("metdiag: renaming output file: %w", err)
	}
	return nil
}

func writeNCF(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		if math.IsNaN(e) {
			data32[i] = fillValue
			continue
		}
		data32[i] = float32(e)
	}
	return writeVar(f, name, data32)
}

// writeVar writes all of the values of variable name. The writer's end
// corner is set to the variable's lengths, one past its last element, so
// that filling the variable does not end in io.EOF.
func writeVar(f *cdf.File, name string, values interface{}) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	_, err := f.Writer(name, start, end).Write(values)
	return err
}

// LoadDiagnosticResult reads diagnostics written by
// (*DiagnosticResult).Write. Fill values are returned as NaN.
func LoadDiagnosticResult(rw cdf.ReaderWriterAt) (*DiagnosticResult, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("metdiag.LoadDiagnosticResult: %v", err)
	}
	dataVersion, _ := f.Header.GetAttribute("", "data_version").(string)
	if dataVersion != DataVersion {
		return nil, fmt.Errorf("metdiag.LoadDiagnosticResult: data version %q is incompatible "+
			"with the required version %s", dataVersion, DataVersion)
	}

	dims := []string{TimeAxis, LatAxis, LonAxis}
	axes := make([]Axis, len(dims))
	for i, d := range dims {
		n := f.Header.Lengths(d)
		if len(n) != 1 {
			return nil, fmt.Errorf("metdiag.LoadDiagnosticResult: missing coordinate %s", d)
		}
		c := make([]float64, n[0])
		if _, err := f.Reader(d, nil, nil).Read(c); err != nil {
			return nil, fmt.Errorf("metdiag.LoadDiagnosticResult: reading %s: %v", d, err)
		}
		axes[i] = Axis{Name: d, Coords: c}
	}

	r := new(DiagnosticResult)
	r.TimeUnits, _ = f.Header.GetAttribute(TimeAxis, "units").(string)
	fields := make(map[string]*GridField)
	for _, v := range resultVars {
		if got := f.Header.Dimensions(v.name); len(got) != len(dims) {
			return nil, fmt.Errorf("metdiag.LoadDiagnosticResult: %s has dimensions %v, want %v",
				v.name, got, dims)
		}
		shape := f.Header.Lengths(v.name)
		data := sparse.ZerosDense(shape...)
		tmp := make([]float32, len(data.Elements))
		if _, err := f.Reader(v.name, nil, nil).Read(tmp); err != nil {
			return nil, fmt.Errorf("metdiag.LoadDiagnosticResult: reading %s: %v", v.name, err)
		}
		for i, x := range tmp {
			if x == fillValue {
				data.Elements[i] = math.NaN()
				continue
			}
			data.Elements[i] = float64(x)
		}
		units, _ := f.Header.GetAttribute(v.name, "units").(string)
		fields[v.name] = newField(v.name, units, data, axes)
	}
	r.SLP, r.IVT, r.ThetaEGrad = fields[SLPName], fields[IVTName], fields[ThetaEGradName]
	return r, nil
}
