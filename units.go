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
	"strings"

	"github.com/ctessum/unit"
)

// Output variable names and units.
const (
	SLPName        = "SLP"
	IVTName        = "IVT"
	ThetaEGradName = "thetae_grad"

	slpUnits        = "hPa"
	ivtUnits        = "kg m-1 s-1"
	thetaEUnits     = "K"
	thetaEGradUnits = "K (100 km)-1"
)

// knownUnits maps the unit strings found in reanalysis files to their
// value in SI units.
var knownUnits = map[string]*unit.Unit{
	"1":       unit.New(1, unit.Dimless),
	"kg kg-1": unit.New(1, unit.Dimless),
	"kg/kg":   unit.New(1, unit.Dimless),
	"K":       unit.New(1, unit.Kelvin),
	"m s-1":   unit.New(1, unit.MeterPerSecond),
	"m/s":     unit.New(1, unit.MeterPerSecond),
	"Pa":      unit.New(1, unit.Pascal),
	"hPa":     unit.New(paPerHPa, unit.Pascal),
	"mb":      unit.New(paPerHPa, unit.Pascal),
}

// ParseUnits returns one of the given units expressed in SI.
func ParseUnits(s string) (*unit.Unit, error) {
	u, ok := knownUnits[strings.TrimSpace(s)]
	if !ok {
		return nil, fmt.Errorf("metdiag: unrecognized units %q", s)
	}
	return u.Clone(), nil
}

// CheckUnits checks that units describe a quantity with dimensions want,
// and returns the factor that converts values in those units to SI.
func CheckUnits(variable, units string, want unit.Dimensions) (float64, error) {
	u, err := ParseUnits(units)
	if err != nil {
		return 0, preconditionf("CheckUnits", "%s: %v", variable, err)
	}
	if err := u.Check(want); err != nil {
		return 0, preconditionf("CheckUnits", "%s [%s]: %v", variable, units, err)
	}
	return u.Value(), nil
}

// vaporTransportDimensions returns the dimensions of (1/g)∫ u q dp.
func vaporTransportDimensions() unit.Dimensions {
	flux := unit.Mul(unit.New(1, unit.MeterPerSecond), unit.New(1, unit.Dimless), unit.New(1, unit.Pascal))
	return unit.Div(flux, unit.New(gravity, unit.MeterPerSecond2)).Dimensions()
}
