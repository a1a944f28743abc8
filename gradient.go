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

	"github.com/ctessum/sparse"
)

const (
	metersPerDegree = 111.e3 // length of one degree of latitude, m
	gradientLength  = 100.e3 // gradients are reported per 100 km

	// Rows closer to a pole than this have no zonal extent.
	minCosLat = 1.e-12
)

// HorizontalGradient returns the magnitude of the horizontal gradient of
// f, a field over (lat, lon) with coordinates in degrees, in units of f
// per 100 km. Interior points use centered differences and edge points
// one-sided differences, so the result has the same shape as f. One
// degree of latitude is taken as 111 km, and one degree of longitude as
// 111 km × cos(latitude) of the row being differenced. Along an axis
// with fewer than two points the derivative is zero.
func HorizontalGradient(f *GridField) (*GridField, error) {
	const op = "HorizontalGradient"
	if err := f.mustAxes(op, LatAxis, LonAxis); err != nil {
		return nil, err
	}
	lat, lon := f.axes[0].Coords, f.axes[1].Coords
	if !strictlyMonotonic(lat) || !strictlyMonotonic(lon) {
		return nil, preconditionf(op, "%s: lat/lon coordinates are not strictly monotonic", f.name)
	}
	ny, nx := len(lat), len(lon)
	v := func(j, i int) float64 { return f.data.Elements[j*nx+i] }
	out := sparse.ZerosDense(ny, nx)
	for j := 0; j < ny; j++ {
		cosLat := math.Cos(lat[j] * math.Pi / 180)
		for i := 0; i < nx; i++ {
			var dfdx, dfdy float64
			if ny >= 2 {
				j0, j1 := stencil(j, ny)
				dfdy = (v(j1, i) - v(j0, i)) / ((lat[j1] - lat[j0]) * metersPerDegree)
			}
			if nx >= 2 && math.Abs(cosLat) > minCosLat {
				i0, i1 := stencil(i, nx)
				dfdx = (v(j, i1) - v(j, i0)) / ((lon[i1] - lon[i0]) * metersPerDegree * cosLat)
			}
			out.Elements[j*nx+i] = math.Sqrt(dfdx*dfdx+dfdy*dfdy) * gradientLength
		}
	}
	return newField(f.name+"_grad", f.units+" (100 km)-1", out,
		[]Axis{f.axes[0].copy(), f.axes[1].copy()}), nil
}

// stencil returns the indices to difference at position i of n:
// neighbors on both sides inside, the point itself and its only
// neighbor at an edge.
func stencil(i, n int) (lo, hi int) {
	switch i {
	case 0:
		return 0, 1
	case n - 1:
		return n - 2, n - 1
	default:
		return i - 1, i + 1
	}
}
