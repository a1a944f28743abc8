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
	"context"
	"runtime"
	"time"

	"github.com/ctessum/geom"
	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Config holds the settings for computing diagnostics from a
// reanalysis file.
type Config struct {
	// North, South, East, and West bound the region of interest,
	// in degrees latitude and longitude. The bounds are inclusive
	// and apply to coordinate labels, not array positions.
	North, South, East, West float64

	// TargetLevel is the pressure level [hPa] at which equivalent
	// potential temperature and its gradient are calculated.
	TargetLevel float64

	// LevelBand is the inclusive pressure range [hPa] of the column
	// that is integrated to get vapor transport.
	LevelBand [2]float64

	// Workers is the maximum number of time steps computed at once.
	// Values less than one mean runtime.NumCPU().
	Workers int

	// Log receives progress messages and warnings. If nil, the
	// logrus standard logger is used.
	Log logrus.FieldLogger

	// Metrics, if not nil, records the work done.
	Metrics *Metrics
}

// DefaultConfig returns the configuration used for the North
// Atlantic and North American region.
func DefaultConfig() *Config {
	return &Config{
		North:       60,
		South:       20,
		East:        -60,
		West:        -300,
		TargetLevel: 925,
		LevelBand:   [2]float64{300, 1000},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	lo, hi := c.LevelBand[0], c.LevelBand[1]
	switch {
	case !(c.North > c.South):
		return preconditionf("Config", "north bound %g must be north of south bound %g", c.North, c.South)
	case !(c.East > c.West):
		return preconditionf("Config", "east bound %g must be east of west bound %g", c.East, c.West)
	case c.North > 90 || c.South < -90:
		return preconditionf("Config", "latitude bounds [%g, %g] outside [-90, 90]", c.South, c.North)
	case !(lo > 0) || !(hi > lo):
		return preconditionf("Config", "level band %v hPa must be positive and increasing", c.LevelBand)
	case c.TargetLevel < lo || c.TargetLevel > hi:
		return preconditionf("Config", "target level %g hPa outside level band %v", c.TargetLevel, c.LevelBand)
	}
	return nil
}

// Bounds returns the region of interest, with longitude as X and
// latitude as Y.
func (c *Config) Bounds() *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: c.West, Y: c.South},
		Max: geom.Point{X: c.East, Y: c.North},
	}
}

func (c *Config) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *Config) workers() int {
	if c.Workers < 1 {
		return runtime.NumCPU()
	}
	return c.Workers
}

// Inputs holds the reanalysis fields needed to compute diagnostics.
// U, V, QV, and T have axes (time, lev, lat, lon) with levels in hPa;
// SLP has axes (time, lat, lon). Empty units are taken to be the
// expected ones.
type Inputs struct {
	U, V, QV, T *GridField
	SLP         *GridField

	// TimeUnits describes the time coordinate, e.g.
	// "minutes since 2019-01-01 00:00:00".
	TimeUnits string
}

// check verifies the axes, grids, and units of the inputs and returns
// the factor that converts SLP to Pa.
func (in *Inputs) check() (float64, error) {
	const op = "Assemble"
	for _, f := range []*GridField{in.U, in.V, in.QV, in.T, in.SLP} {
		if f == nil {
			return 0, preconditionf(op, "missing input field")
		}
	}
	for _, f := range []*GridField{in.U, in.V, in.QV, in.T} {
		if err := f.mustAxes(op, TimeAxis, LevelAxis, LatAxis, LonAxis); err != nil {
			return 0, err
		}
	}
	if err := in.SLP.mustAxes(op, TimeAxis, LatAxis, LonAxis); err != nil {
		return 0, err
	}
	if err := sameGrid(op, in.U, in.V, in.QV, in.T); err != nil {
		return 0, err
	}
	for _, name := range []string{TimeAxis, LatAxis, LonAxis} {
		a, _ := in.U.Coords(name)
		b, _ := in.SLP.Coords(name)
		if !floats.Equal(a, b) {
			return 0, preconditionf(op, "%s and %s have different %s coordinates",
				in.U.name, in.SLP.name, name)
		}
	}
	want := []struct {
		f    *GridField
		dims unit.Dimensions
	}{
		{in.U, unit.MeterPerSecond},
		{in.V, unit.MeterPerSecond},
		{in.QV, unit.Dimless},
		{in.T, unit.Kelvin},
	}
	for _, w := range want {
		if w.f.units == "" {
			continue
		}
		scale, err := CheckUnits(w.f.name, w.f.units, w.dims)
		if err != nil {
			return 0, err
		}
		if scale != 1 {
			return 0, preconditionf(op, "%s must be in SI units, not %s", w.f.name, w.f.units)
		}
	}
	if in.SLP.units == "" {
		return 1, nil
	}
	return CheckUnits(in.SLP.name, in.SLP.units, unit.Pascal)
}

// DiagnosticResult holds the diagnostics for every time step in a
// file, each with axes (time, lat, lon).
type DiagnosticResult struct {
	SLP        *GridField // sea level pressure [hPa]
	IVT        *GridField // integrated vapor transport magnitude [kg m-1 s-1]
	ThetaEGrad *GridField // theta-e gradient magnitude [K (100 km)-1]

	TimeUnits string
}

type step struct {
	slp, ivt, grad *GridField
}

// Assemble computes the diagnostics for every time step in the inputs
// and stacks them in input time order. Time steps are computed
// concurrently; the first failure cancels the rest and is returned
// as a *StepError.
func (c *Config) Assemble(ctx context.Context, in *Inputs) (*DiagnosticResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	slpScale, err := in.check()
	if err != nil {
		return nil, err
	}
	times, _ := in.U.Coords(TimeAxis)
	if len(times) == 0 {
		return nil, preconditionf("Assemble", "no time steps")
	}

	// Reduce the level axis once for all time steps.
	var band [3]*GridField
	for i, f := range []*GridField{in.U, in.V, in.QV} {
		if band[i], err = f.SelectRange(LevelAxis, c.LevelBand[0], c.LevelBand[1]); err != nil {
			return nil, err
		}
	}
	tLev, err := in.T.Select(LevelAxis, c.TargetLevel)
	if err != nil {
		return nil, err
	}
	qLev, err := in.QV.Select(LevelAxis, c.TargetLevel)
	if err != nil {
		return nil, err
	}

	log := c.log()
	for _, w := range append(band[0].Degenerate(LevelAxis), tLev.Degenerate(LatAxis, LonAxis)...) {
		log.WithFields(logrus.Fields{
			"field":  w.Field,
			"axis":   w.Axis,
			"points": w.Points,
		}).Warn(w.String())
		c.Metrics.degenerateInput(w.Axis)
	}
	lev, _ := band[0].Coords(LevelAxis)
	log.WithFields(logrus.Fields{
		"time_steps": len(times),
		"levels":     len(lev),
	}).Info("metdiag: computing diagnostics")

	steps := make([]step, len(times))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())
	for i := range times {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			s, err := c.step(i, band, tLev, qLev, in.SLP, slpScale/paPerHPa)
			if err != nil {
				return &StepError{Index: i, Time: times[i], Err: err}
			}
			steps[i] = s
			c.Metrics.observeStep(time.Since(start))
			log.WithFields(logrus.Fields{
				"time_index": i,
				"time":       times[i],
				"duration":   time.Since(start),
			}).Debug("metdiag: time step done")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timeAxis := Axis{Name: TimeAxis, Coords: times}
	r := &DiagnosticResult{TimeUnits: in.TimeUnits}
	slp := make([]*GridField, len(steps))
	ivt := make([]*GridField, len(steps))
	grad := make([]*GridField, len(steps))
	for i, s := range steps {
		slp[i], ivt[i], grad[i] = s.slp, s.ivt, s.grad
	}
	if r.SLP, err = Stack(SLPName, timeAxis, slp); err != nil {
		return nil, err
	}
	if r.IVT, err = Stack(IVTName, timeAxis, ivt); err != nil {
		return nil, err
	}
	if r.ThetaEGrad, err = Stack(ThetaEGradName, timeAxis, grad); err != nil {
		return nil, err
	}
	return r, nil
}

// step computes the diagnostics for time index i. slpToHPa converts
// the SLP input to hPa.
func (c *Config) step(i int, band [3]*GridField, t, q, slp *GridField, slpToHPa float64) (step, error) {
	var s step
	var uvq [3]*GridField
	for k, f := range band {
		var err error
		if uvq[k], err = f.Index(TimeAxis, i); err != nil {
			return s, err
		}
	}
	ivt, err := IntegratedVaporTransport(uvq[0], uvq[1], uvq[2])
	if err != nil {
		return s, err
	}

	ti, err := t.Index(TimeAxis, i)
	if err != nil {
		return s, err
	}
	qi, err := q.Index(TimeAxis, i)
	if err != nil {
		return s, err
	}
	thetaE, err := ThetaE(c.TargetLevel, ti, qi)
	if err != nil {
		return s, err
	}
	grad, err := HorizontalGradient(thetaE)
	if err != nil {
		return s, err
	}

	p, err := slp.Index(TimeAxis, i)
	if err != nil {
		return s, err
	}
	s.slp = p.scaled(slpToHPa, SLPName, slpUnits)
	s.ivt = ivt
	s.grad = grad.renamed(ThetaEGradName, thetaEGradUnits)
	return s, nil
}
