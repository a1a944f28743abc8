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
)

func TestEquivalentPotentialTemperature(t *testing.T) {
	// 850 hPa, 20 °C, dewpoint 18 °C.
	const p, temp, q = 850., 293.15, 0.015232985640112984
	td, err := Dewpoint(p, temp, q)
	if err != nil {
		t.Fatal(err)
	}
	if different(td, 291.15, 1e-9) {
		t.Errorf("dewpoint = %g, want 291.15", td)
	}
	thetaE, err := EquivalentPotentialTemperature(p, temp, q)
	if err != nil {
		t.Fatal(err)
	}
	if different(thetaE, 353.8917387164979, 1e-9) {
		t.Errorf("theta-e = %g, want 353.8917387164979", thetaE)
	}
	if theta := PotentialTemperature(temp, p); thetaE <= theta {
		t.Errorf("theta-e %g should exceed dry potential temperature %g", thetaE, theta)
	}
}

func TestDewpointBelowTemperature(t *testing.T) {
	for _, p := range []float64{1000, 925, 850, 700, 500, 300} {
		for temp := 230.; temp <= 310; temp += 10 {
			qs := SaturationSpecificHumidity(p, temp)
			for _, rh := range []float64{0.01, 0.2, 0.5, 0.9, 0.999} {
				td, err := Dewpoint(p, temp, rh*qs)
				if err != nil {
					t.Fatalf("p=%g T=%g RH=%g: %v", p, temp, rh, err)
				}
				if td >= temp {
					t.Errorf("p=%g T=%g RH=%g: dewpoint %g not below temperature", p, temp, rh, td)
				}
			}
			td, err := Dewpoint(p, temp, qs)
			if err != nil {
				t.Fatalf("p=%g T=%g saturated: %v", p, temp, err)
			}
			if math.Abs(td-temp) > 1e-6 {
				t.Errorf("p=%g T=%g saturated: dewpoint %g should equal temperature", p, temp, td)
			}
		}
	}
}

func TestThermoErrors(t *testing.T) {
	tests := []struct {
		name    string
		p, t, q float64
	}{
		{name: "humidity at 1", p: 925, t: 290, q: 1},
		{name: "humidity above 1", p: 925, t: 290, q: 1.5},
		{name: "negative humidity", p: 925, t: 290, q: -1e-6},
		{name: "zero pressure", p: 0, t: 290, q: 0.01},
		{name: "negative pressure", p: -925, t: 290, q: 0.01},
		{name: "zero temperature", p: 925, t: 0, q: 0.01},
		{name: "NaN temperature", p: 925, t: math.NaN(), q: 0.01},
		{name: "supersaturated", p: 925, t: 250, q: 0.02},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := EquivalentPotentialTemperature(test.p, test.t, test.q)
			var pe *PhysicalRangeError
			if !errors.As(err, &pe) {
				t.Errorf("want PhysicalRangeError, got %v (value %g)", err, v)
			}
		})
	}
}

func TestThetaE(t *testing.T) {
	lat := Axis{Name: LatAxis, Coords: []float64{30, 30.5}}
	lon := Axis{Name: LonAxis, Coords: []float64{-80, -79.375}}
	temp := testField(t, "T", "K", []float64{290, 291, 292, math.NaN()}, lat, lon)
	q := constField(t, "QV", "kg kg-1", 0.01, lat, lon)
	thetaE, err := ThetaE(925, temp, q)
	if err != nil {
		t.Fatal(err)
	}
	vals := thetaE.Values()
	for i, tv := range []float64{290, 291, 292} {
		want, err := EquivalentPotentialTemperature(925, tv, 0.01)
		if err != nil {
			t.Fatal(err)
		}
		if vals[i] != want {
			t.Errorf("point %d: %g != %g", i, vals[i], want)
		}
	}
	if !math.IsNaN(vals[3]) {
		t.Errorf("missing temperature should give missing theta-e, got %g", vals[3])
	}

	bad := testField(t, "QV", "kg kg-1", []float64{0.01, 0.01, 1.2, 0.01}, lat, lon)
	_, err = ThetaE(925, temp, bad)
	var pe *PhysicalRangeError
	if !errors.As(err, &pe) {
		t.Fatalf("want PhysicalRangeError, got %v", err)
	}
	if pe.Lat != 30.5 || pe.Lon != -80 {
		t.Errorf("error location = (%g, %g), want (30.5, -80)", pe.Lat, pe.Lon)
	}
}

func TestDryAir(t *testing.T) {
	thetaE, err := EquivalentPotentialTemperature(925, 290, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := PotentialTemperature(290, 925); thetaE != want {
		t.Errorf("theta-e = %g, want dry potential temperature %g", thetaE, want)
	}
	// The moist formula approaches the dry value as q goes to zero.
	moist, err := EquivalentPotentialTemperature(925, 290, 1e-9)
	if err != nil {
		t.Fatal(err)
	}
	if different(moist, thetaE, 1e-6) {
		t.Errorf("theta-e at q=1e-9 is %g, want about %g", moist, thetaE)
	}

	var pe *PhysicalRangeError
	if _, err := Dewpoint(925, 290, 0); !errors.As(err, &pe) {
		t.Errorf("dewpoint of dry air: want PhysicalRangeError, got %v", err)
	}

	// A dry point does not stop the field calculation.
	lat := Axis{Name: LatAxis, Coords: []float64{30, 30.5}}
	lon := Axis{Name: LonAxis, Coords: []float64{-80, -79.375}}
	temp := constField(t, "T", "K", 290, lat, lon)
	q := testField(t, "QV", "kg kg-1", []float64{0.01, 0, 0.01, 0.01}, lat, lon)
	f, err := ThetaE(925, temp, q)
	if err != nil {
		t.Fatal(err)
	}
	if v := f.At(0, 1); v != thetaE {
		t.Errorf("dry point theta-e = %g, want %g", v, thetaE)
	}
}
