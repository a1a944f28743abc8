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
	"gonum.org/v1/gonum/integrate"
)

const (
	gravity  = 9.81 // m/s2, as used for vapor transport
	paPerHPa = 100.
)

// VaporTransport integrates the moisture fluxes u·q and v·q over
// pressure with the trapezoidal rule and returns the eastward and
// northward integrated vapor transport [kg m-1 s-1] over (lat, lon).
//
// u and v are wind components [m/s] and q is specific humidity [kg/kg],
// all on the same (lev, lat, lon) grid with lev in hPa. Every level
// present is used; restricting the column is up to the caller. Levels
// may be ordered either way but must be strictly monotonic. The result
// is (1/g)∫ flux dp from the top to the bottom of the column, so
// its sign does not depend on the level order. A single level gives
// zero transport. Missing samples (NaN), such as levels below the
// ground, are left out of their column.
func VaporTransport(u, v, q *GridField) (uIVT, vIVT *GridField, err error) {
	const op = "VaporTransport"
	for _, f := range []*GridField{u, v, q} {
		if err := f.mustAxes(op, LevelAxis, LatAxis, LonAxis); err != nil {
			return nil, nil, err
		}
	}
	if err := sameGrid(op, u, v, q); err != nil {
		return nil, nil, err
	}
	nz, ny, nx := u.data.Shape[0], u.data.Shape[1], u.data.Shape[2]
	uOut := sparse.ZerosDense(ny, nx)
	vOut := sparse.ZerosDense(ny, nx)
	horizontal := func() []Axis { return []Axis{u.axes[1].copy(), u.axes[2].copy()} }
	if nz < 2 {
		return newField("UIVT", ivtUnits, uOut, horizontal()),
			newField("VIVT", ivtUnits, vOut, horizontal()), nil
	}

	p := make([]float64, nz) // Pa
	for k, lev := range u.axes[0].Coords {
		p[k] = lev * paPerHPa
	}
	order, err := ascendingOrder(p)
	if err != nil {
		return nil, nil, err
	}
	pSorted := make([]float64, nz)
	for k, src := range order {
		pSorted[k] = p[src]
	}

	ps := make([]float64, nz)
	uq := make([]float64, nz)
	vq := make([]float64, nz)
	plane := ny * nx
	for c := 0; c < plane; c++ {
		n := 0
		for k, src := range order {
			uv := u.data.Elements[src*plane+c]
			vv := v.data.Elements[src*plane+c]
			qv := q.data.Elements[src*plane+c]
			if math.IsNaN(uv) || math.IsNaN(vv) || math.IsNaN(qv) {
				continue // below ground
			}
			ps[n], uq[n], vq[n] = pSorted[k], uv*qv, vv*qv
			n++
		}
		if n < 2 {
			continue
		}
		uOut.Elements[c] = integrate.Trapezoidal(ps[:n], uq[:n]) / gravity
		vOut.Elements[c] = integrate.Trapezoidal(ps[:n], vq[:n]) / gravity
	}
	return newField("UIVT", ivtUnits, uOut, horizontal()),
		newField("VIVT", ivtUnits, vOut, horizontal()), nil
}

// ascendingOrder returns the indices that visit p in increasing order.
// p must be strictly increasing or strictly decreasing.
func ascendingOrder(p []float64) ([]int, error) {
	idx := make([]int, len(p))
	increasing, decreasing := true, true
	for k := 1; k < len(p); k++ {
		if p[k] <= p[k-1] {
			increasing = false
		}
		if p[k] >= p[k-1] {
			decreasing = false
		}
	}
	switch {
	case increasing:
		for k := range idx {
			idx[k] = k
		}
	case decreasing:
		for k := range idx {
			idx[k] = len(p) - 1 - k
		}
	default:
		return nil, preconditionf("VaporTransport", "pressure levels %v are not strictly monotonic", p)
	}
	return idx, nil
}

// VaporTransportMagnitude returns sqrt(uIVT² + vIVT²) at each point.
func VaporTransportMagnitude(uIVT, vIVT *GridField) (*GridField, error) {
	const op = "VaporTransportMagnitude"
	for _, f := range []*GridField{uIVT, vIVT} {
		if err := f.mustAxes(op, LatAxis, LonAxis); err != nil {
			return nil, err
		}
	}
	if err := sameGrid(op, uIVT, vIVT); err != nil {
		return nil, err
	}
	out := sparse.ZerosDense(uIVT.Shape()...)
	for c, uv := range uIVT.data.Elements {
		vv := vIVT.data.Elements[c]
		out.Elements[c] = math.Sqrt(uv*uv + vv*vv)
	}
	return newField(IVTName, ivtUnits, out, []Axis{uIVT.axes[0].copy(), uIVT.axes[1].copy()}), nil
}

// IntegratedVaporTransport returns the magnitude of the vertically
// integrated vapor transport computed from u, v and q as in VaporTransport.
func IntegratedVaporTransport(u, v, q *GridField) (*GridField, error) {
	uIVT, vIVT, err := VaporTransport(u, v, q)
	if err != nil {
		return nil, err
	}
	return VaporTransportMagnitude(uIVT, vIVT)
}
