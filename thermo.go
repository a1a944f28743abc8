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

// Thermodynamic constants. The saturation curve and equivalent potential
// temperature follow Bolton (1980), Mon. Wea. Rev. 108, 1046-1053.
const (
	epsilon     = 0.622  // ratio of the molar masses of water vapor and dry air
	kappa       = 0.2854 // R/cp for dry air
	referenceP  = 1000.  // hPa
	celsiusZero = 273.15 // K

	boltonA = 6.112 // hPa
	boltonB = 17.67
	boltonC = 243.5 // °C

	gPerKg = 1000.

	// dewpointSlack absorbs rounding when the air is saturated.
	dewpointSlack = 1.e-9 // K
)

// MixingRatio returns the water vapor mixing ratio [kg/kg] of air with
// specific humidity q [kg/kg].
func MixingRatio(q float64) float64 { return q / (1 - q) }

// VaporPressure returns the partial pressure of water vapor, in the
// units of the total pressure p, for mixing ratio r [kg/kg].
func VaporPressure(p, r float64) float64 { return p * r / (epsilon + r) }

// SaturationVaporPressure returns the saturation vapor pressure [hPa]
// over liquid water at temperature t [K] (Bolton eq. 10).
func SaturationVaporPressure(t float64) float64 {
	tc := t - celsiusZero
	return boltonA * math.Exp(boltonB*tc/(tc+boltonC))
}

// SaturationSpecificHumidity returns the specific humidity [kg/kg] of
// saturated air at pressure p [hPa] and temperature t [K].
func SaturationSpecificHumidity(p, t float64) float64 {
	es := SaturationVaporPressure(t)
	r := epsilon * es / (p - es)
	return r / (1 + r)
}

// dewpointFromVaporPressure inverts Bolton eq. 10 for vapor pressure
// e [hPa] and returns the dewpoint in K.
func dewpointFromVaporPressure(e float64) float64 {
	l := math.Log(e / boltonA)
	return boltonC*l/(boltonB-l) + celsiusZero
}

// PotentialTemperature returns the dry potential temperature [K] of
// air at temperature t [K] and pressure p [hPa].
func PotentialTemperature(t, p float64) float64 {
	return t * math.Pow(referenceP/p, kappa)
}

// LCLTemperature returns the temperature [K] at the lifting condensation
// level of air with temperature t and dewpoint td, both in K (Bolton eq. 15).
func LCLTemperature(t, td float64) float64 {
	return 56 + 1/(1/(td-56)+math.Log(t/td)/800)
}

// checkMoistAir validates a pressure [hPa], temperature [K] and specific
// humidity [kg/kg] triple. Quantity errors carry no location; callers
// that know one fill it in.
func checkMoistAir(p, t, q float64) *PhysicalRangeError {
	switch {
	case !(p > 0) || math.IsInf(p, 0):
		return &PhysicalRangeError{Quantity: "pressure", Value: p, Reason: "must be positive and finite"}
	case !(t > 0) || math.IsInf(t, 0):
		return &PhysicalRangeError{Quantity: "temperature", Value: t, Reason: "must be positive and finite"}
	case !(q >= 0):
		return &PhysicalRangeError{Quantity: "specific humidity", Value: q, Reason: "must not be negative"}
	case q >= 1:
		return &PhysicalRangeError{Quantity: "specific humidity", Value: q, Reason: "must be below 1 kg/kg"}
	}
	return nil
}

// Dewpoint returns the dewpoint [K] of air at pressure p [hPa] with
// specific humidity q [kg/kg]. Temperature t [K] is used only to check
// the result: a dewpoint above t is a PhysicalRangeError. Perfectly dry
// air has no dewpoint.
func Dewpoint(p, t, q float64) (float64, error) {
	if err := checkMoistAir(p, t, q); err != nil {
		return math.NaN(), err
	}
	if q == 0 {
		return math.NaN(), &PhysicalRangeError{Quantity: "specific humidity", Value: q,
			Reason: "dry air has no dewpoint"}
	}
	return dewpoint(p, t, q)
}

func dewpoint(p, t, q float64) (float64, error) {
	e := VaporPressure(p, MixingRatio(q))
	td := dewpointFromVaporPressure(e)
	if math.IsNaN(td) || math.IsInf(td, 0) {
		return math.NaN(), &PhysicalRangeError{Quantity: "dewpoint", Value: td,
			Reason: "vapor pressure outside the saturation curve"}
	}
	if td > t+dewpointSlack {
		return math.NaN(), &PhysicalRangeError{Quantity: "dewpoint", Value: td,
			Reason: "exceeds air temperature (supersaturated)"}
	}
	return math.Min(td, t), nil
}

// EquivalentPotentialTemperature returns the equivalent potential
// temperature [K] of air at pressure p [hPa], temperature t [K] and
// specific humidity q [kg/kg], after Bolton (1980) eqs. 15 and 43.
// Bolton's fits expect the mixing ratio in g/kg. For dry air (q = 0)
// it is the dry potential temperature.
func EquivalentPotentialTemperature(p, t, q float64) (float64, error) {
	if err := checkMoistAir(p, t, q); err != nil {
		return math.NaN(), err
	}
	if q == 0 {
		return PotentialTemperature(t, p), nil
	}
	td, err := dewpoint(p, t, q)
	if err != nil {
		return math.NaN(), err
	}
	rg := MixingRatio(q) * gPerKg
	tl := LCLTemperature(t, td)
	thetaDL := t * math.Pow(referenceP/p, kappa*(1-0.28e-3*rg))
	thetaE := thetaDL * math.Exp((3.376/tl-0.00254)*rg*(1+0.81e-3*rg))
	if math.IsNaN(thetaE) || math.IsInf(thetaE, 0) || thetaE <= 0 {
		return math.NaN(), &PhysicalRangeError{Quantity: "equivalent potential temperature",
			Value: thetaE, Reason: "not finite"}
	}
	return thetaE, nil
}

// ThetaE returns the equivalent potential temperature [K] over (lat, lon)
// at the pressure level p [hPa], given temperature t [K] and specific
// humidity q [kg/kg] on that level. Missing (NaN) inputs give a
// missing result; the first physically invalid point stops the
// calculation.
func ThetaE(p float64, t, q *GridField) (*GridField, error) {
	return pointwise("ThetaE", "THETAE", thetaEUnits, t, q, func(tv, qv float64) (float64, error) {
		return EquivalentPotentialTemperature(p, tv, qv)
	})
}

// DewpointField returns the dewpoint [K] over (lat, lon) at the pressure
// level p [hPa], given temperature t [K] and specific humidity q [kg/kg].
func DewpointField(p float64, t, q *GridField) (*GridField, error) {
	return pointwise("DewpointField", "TD", "K", t, q, func(tv, qv float64) (float64, error) {
		return Dewpoint(p, tv, qv)
	})
}

func pointwise(op, name, units string, t, q *GridField, fn func(t, q float64) (float64, error)) (*GridField, error) {
	for _, f := range []*GridField{t, q} {
		if err := f.mustAxes(op, LatAxis, LonAxis); err != nil {
			return nil, err
		}
	}
	if err := sameGrid(op, t, q); err != nil {
		return nil, err
	}
	lat, lon := t.axes[0].Coords, t.axes[1].Coords
	out := sparse.ZerosDense(len(lat), len(lon))
	for j := range lat {
		for i := range lon {
			c := j*len(lon) + i
			tv, qv := t.data.Elements[c], q.data.Elements[c]
			if math.IsNaN(tv) || math.IsNaN(qv) {
				out.Elements[c] = math.NaN() // missing stays missing
				continue
			}
			v, err := fn(tv, qv)
			if err != nil {
				if pe, ok := err.(*PhysicalRangeError); ok {
					pe.Lat, pe.Lon = lat[j], lon[i]
				}
				return nil, err
			}
			out.Elements[c] = v
		}
	}
	return newField(name, units, out, []Axis{t.axes[0].copy(), t.axes[1].copy()}), nil
}
