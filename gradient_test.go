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
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// planeField returns f(lat, lon) sampled on the given coordinates.
func planeField(t testing.TB, lat, lon []float64, f func(lat, lon float64) float64) *GridField {
	t.Helper()
	var vals []float64
	for _, y := range lat {
		for _, x := range lon {
			vals = append(vals, f(y, x))
		}
	}
	return testField(t, "THETAE", "K", vals,
		Axis{Name: LatAxis, Coords: lat}, Axis{Name: LonAxis, Coords: lon})
}

func TestHorizontalGradient(t *testing.T) {
	perDegree := gradientLength / metersPerDegree // K per 100 km for 1 K per degree

	tests := []struct {
		name     string
		lat, lon []float64
		f        func(lat, lon float64) float64
		want     func(lat float64) float64
	}{
		{
			name: "uniform",
			lat:  []float64{20, 20.5, 21},
			lon:  []float64{-70, -69.375, -68.75, -68.125},
			f:    func(float64, float64) float64 { return 300 },
			want: func(float64) float64 { return 0 },
		},
		{
			name: "meridional",
			lat:  []float64{20, 20.5, 21},
			lon:  []float64{-70, -69.375, -68.75},
			f:    func(lat, _ float64) float64 { return 2 * lat },
			want: func(float64) float64 { return 2 * perDegree },
		},
		{
			name: "zonal",
			lat:  []float64{0, 60},
			lon:  []float64{-70, -69.375, -68.75},
			f:    func(_, lon float64) float64 { return lon },
			want: func(lat float64) float64 { return perDegree / math.Cos(lat*math.Pi/180) },
		},
		{
			name: "descending latitude",
			lat:  []float64{21, 20.5, 20},
			lon:  []float64{-70, -69.375},
			f:    func(lat, _ float64) float64 { return lat },
			want: func(float64) float64 { return perDegree },
		},
		{
			name: "single longitude",
			lat:  []float64{20, 20.5, 21},
			lon:  []float64{-70},
			f:    func(lat, lon float64) float64 { return lat + lon },
			want: func(float64) float64 { return perDegree },
		},
		{
			name: "single point",
			lat:  []float64{45},
			lon:  []float64{-70},
			f:    func(float64, float64) float64 { return 300 },
			want: func(float64) float64 { return 0 },
		},
		{
			name: "pole",
			lat:  []float64{89.5, 90},
			lon:  []float64{0, 1},
			f:    func(lat, lon float64) float64 { return lon },
			want: func(lat float64) float64 {
				if lat == 90 {
					return 0
				}
				return perDegree / math.Cos(lat*math.Pi/180)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			g, err := HorizontalGradient(planeField(t, test.lat, test.lon, test.f))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]int{len(test.lat), len(test.lon)}, g.Shape()); diff != "" {
				t.Fatalf("shape (-want +got):\n%s", diff)
			}
			for j, lat := range test.lat {
				for i := range test.lon {
					got, want := g.At(j, i), test.want(lat)
					if different(got, want, 1e-9) {
						t.Errorf("(%d, %d): %g != %g", j, i, got, want)
					}
				}
			}
		})
	}
}

func TestHorizontalGradientErrors(t *testing.T) {
	var pe *PreconditionError
	f := planeField(t, []float64{20, 21, 20.5}, []float64{0, 1}, func(float64, float64) float64 { return 1 })
	if _, err := HorizontalGradient(f); !errors.As(err, &pe) {
		t.Errorf("non-monotonic: want PreconditionError, got %v", err)
	}
	g := constField(t, "T", "K", 1, Axis{Name: LonAxis, Coords: []float64{0, 1}}, Axis{Name: LatAxis, Coords: []float64{0, 1}})
	if _, err := HorizontalGradient(g); !errors.As(err, &pe) {
		t.Errorf("axis order: want PreconditionError, got %v", err)
	}
}

func TestHorizontalGradientMissing(t *testing.T) {
	lat := []float64{20, 20.5, 21, 21.5}
	lon := []float64{0, 1, 2, 3}
	f := planeField(t, lat, lon, func(lat, lon float64) float64 {
		if lat == 20 && lon == 0 {
			return math.NaN()
		}
		return 300
	})
	g, err := HorizontalGradient(f)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(g.At(0, 0)) || !math.IsNaN(g.At(1, 0)) || !math.IsNaN(g.At(0, 1)) {
		t.Error("points next to missing data should be missing")
	}
	if g.At(3, 3) != 0 {
		t.Errorf("far from missing data: got %g, want 0", g.At(3, 3))
	}
}

func BenchmarkHorizontalGradient(b *testing.B) {
	lat := make([]float64, 81)
	lon := make([]float64, 193)
	for i := range lat {
		lat[i] = 20 + 0.5*float64(i)
	}
	for i := range lon {
		lon[i] = -180 + 0.625*float64(i)
	}
	f := planeField(b, lat, lon, func(lat, lon float64) float64 { return 300 + 0.1*lat + 0.01*lon })
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := HorizontalGradient(f); err != nil {
			b.Fatal(err)
		}
	}
}
