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
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/cdf"
	"github.com/ctessum/geom"
	"github.com/google/go-cmp/cmp"
)

// writeReanalysis writes a small pressure-level file with the layout of
// a MERRA-2 inst3_3d_asm_Np collection.
func writeReanalysis(t testing.TB, path string) {
	t.Helper()
	time := []float64{0, 180}
	lev := []float64{1000, 925, 850}
	lat := []float64{19.5, 20, 20.5, 21}
	lon := []float64{-101.25, -100.625, -100, -99.375}
	dims := []string{TimeAxis, LevelAxis, LatAxis, LonAxis}
	lengths := []int{len(time), len(lev), len(lat), len(lon)}
	h := cdf.NewHeader(dims, lengths)
	coords := map[string][]float64{TimeAxis: time, LevelAxis: lev, LatAxis: lat, LonAxis: lon}
	units := map[string]string{
		TimeAxis: "minutes since 2015-12-01 00:00:00", LevelAxis: "hPa",
		LatAxis: "degrees_north", LonAxis: "degrees_east",
	}
	for _, d := range dims {
		h.AddVariable(d, []string{d}, []float64{0})
		h.AddAttribute(d, "units", units[d])
	}
	values := map[string]float32{"U": 5, "V": -5, "QV": 0.01, "T": 290, "SLP": 101300}
	varUnits := map[string]string{"U": "m s-1", "V": "m s-1", "QV": "kg kg-1", "T": "K", "SLP": "Pa"}
	names := []string{"QV", "SLP", "T", "U", "V", "H"}
	for _, n := range names {
		vdims := dims
		if n == "SLP" {
			vdims = []string{TimeAxis, LatAxis, LonAxis}
		}
		h.AddVariable(n, vdims, []float32{0})
		if u, ok := varUnits[n]; ok {
			h.AddAttribute(n, "units", u)
		} else {
			h.AddAttribute(n, "units", "m")
		}
		h.AddAttribute(n, "_FillValue", []float32{fillValue})
	}
	h.Define()

	w, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	f, err := cdf.Create(w, h)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range dims {
		if err := writeVar(f, d, coords[d]); err != nil {
			t.Fatal(err)
		}
	}
	for _, n := range names {
		l := f.Header.Lengths(n)
		size := 1
		for _, x := range l {
			size *= x
		}
		data := make([]float32, size)
		for i := range data {
			data[i] = values[n]
		}
		switch n {
		case "T":
			data[0] = fillValue // below ground at (0, 1000 hPa, 19.5, -101.25)
		case "U":
			for i := range data {
				data[i] = float32(i) // position in the file
			}
		}
		if err := writeVar(f, n, data); err != nil {
			t.Fatal(err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		t.Fatal(err)
	}
}

func TestDatasetInputs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "MERRA2_400.inst3_3d_asm_Np.20151201.nc")
	writeReanalysis(t, path)

	d, err := OpenDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	in, err := d.Inputs(&geom.Bounds{
		Min: geom.Point{X: -101.25, Y: 20},
		Max: geom.Point{X: -100, Y: 21},
	})
	if err != nil {
		t.Fatal(err)
	}
	if in.TimeUnits != "minutes since 2015-12-01 00:00:00" {
		t.Errorf("time units = %q", in.TimeUnits)
	}
	lat, _ := in.T.Coords(LatAxis)
	if diff := cmp.Diff([]float64{20, 20.5, 21}, lat); diff != "" {
		t.Errorf("lat (-want +got):\n%s", diff)
	}
	lon, _ := in.SLP.Coords(LonAxis)
	if diff := cmp.Diff([]float64{-101.25, -100.625, -100}, lon); diff != "" {
		t.Errorf("lon (-want +got):\n%s", diff)
	}
	lev, _ := in.U.Coords(LevelAxis)
	if diff := cmp.Diff([]float64{1000, 925, 850}, lev); diff != "" {
		t.Errorf("lev (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{2, 3, 3, 3}, in.QV.Shape()); diff != "" {
		t.Errorf("QV shape (-want +got):\n%s", diff)
	}
	// U holds each point's flat index in the full (2, 3, 4, 4) array; the
	// box keeps lat indices 1-3 and lon indices 0-2.
	for _, c := range []struct{ t, k, j, i int }{{0, 0, 0, 0}, {1, 2, 2, 1}, {1, 0, 1, 2}} {
		want := float64(((c.t*3+c.k)*4+c.j+1)*4 + c.i)
		if v := in.U.At(c.t, c.k, c.j, c.i); v != want {
			t.Errorf("U%v = %g, want %g", c, v, want)
		}
	}
	if v := in.V.At(1, 2, 2, 2); v != -5 {
		t.Errorf("V = %g, want -5", v)
	}
	if v := in.SLP.At(0, 0, 0); v != 101300 {
		t.Errorf("SLP = %g, want 101300", v)
	}
	if in.T.Units() != "K" {
		t.Errorf("T units = %q", in.T.Units())
	}

	// The fill value lies south of the bounding box.
	for _, v := range in.T.Values() {
		if math.IsNaN(v) {
			t.Fatal("fill value inside the bounding box")
		}
	}
	all, err := d.Inputs(&geom.Bounds{
		Min: geom.Point{X: -180, Y: -90},
		Max: geom.Point{X: 180, Y: 90},
	})
	if err != nil {
		t.Fatal(err)
	}
	if v := all.T.At(0, 0, 0, 0); !math.IsNaN(v) {
		t.Errorf("fill value read as %g, want NaN", v)
	}
}

func TestDatasetEmptyBox(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.nc")
	writeReanalysis(t, path)
	d, err := OpenDataset(path)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	_, err = d.Inputs(&geom.Bounds{Min: geom.Point{X: 0, Y: 50}, Max: geom.Point{X: 10, Y: 60}})
	if err == nil {
		t.Error("want error for a bounding box without grid points")
	}
}

func TestFlatten(t *testing.T) {
	got, err := flatten([][][]float32{{{1, 2}, {3, 4}}, {{5, 6}, {7, 8}}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 4, 5, 6, 7, 8}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	got, err = flatten([]int32{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{1, 2}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if _, err := flatten([]string{"a"}); err == nil {
		t.Error("want error for strings")
	}
}
