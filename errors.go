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

import "fmt"

// PreconditionError reports inputs that cannot be combined: mismatched
// axes or coordinates between fields, or a requested coordinate value
// that is not present. It aborts processing of the current file.
type PreconditionError struct {
	Op     string // operation that detected the problem
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("metdiag: %s: precondition failed: %s", e.Op, e.Reason)
}

func preconditionf(op, format string, a ...interface{}) error {
	return &PreconditionError{Op: op, Reason: fmt.Sprintf(format, a...)}
}

// PhysicalRangeError reports a physically impossible value found while
// computing a diagnostic: humidity outside [0, 1) kg/kg, non-positive
// pressure or temperature, or a dewpoint above the air temperature.
type PhysicalRangeError struct {
	Quantity string
	Value    float64
	Lat, Lon float64 // location of the offending grid point, degrees
	Reason   string
}

func (e *PhysicalRangeError) Error() string {
	return fmt.Sprintf("metdiag: %s = %g at (lat %g, lon %g) is out of range: %s",
		e.Quantity, e.Value, e.Lat, e.Lon, e.Reason)
}

// DegenerateInputWarning describes an input that is too short along an
// axis to be integrated or differenced. The affected contribution is zero;
// it is not an error.
type DegenerateInputWarning struct {
	Field  string
	Axis   string
	Points int
}

func (w DegenerateInputWarning) String() string {
	return fmt.Sprintf("%s has %d point(s) along %s; contribution set to zero",
		w.Field, w.Points, w.Axis)
}

// StepError wraps a failure computing one time step.
type StepError struct {
	Index int     // position along the time axis
	Time  float64 // time coordinate value
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("metdiag: time step %d (time=%g): %v", e.Index, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
