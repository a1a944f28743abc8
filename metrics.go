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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts the work done by a diagnostic run. A nil *Metrics
// records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	timeSteps   prometheus.Counter
	stepSeconds prometheus.Histogram
	files       *prometheus.CounterVec
	degenerate  *prometheus.CounterVec
}

// NewMetrics creates a set of metrics registered on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		timeSteps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metdiag_time_steps_total",
			Help: "Number of time steps for which diagnostics were computed.",
		}),
		stepSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "metdiag_time_step_seconds",
			Help:    "Time taken to compute the diagnostics for one time step.",
			Buckets: prometheus.DefBuckets,
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metdiag_files_total",
			Help: "Number of input files processed, by outcome.",
		}, []string{"status"}),
		degenerate: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metdiag_degenerate_inputs_total",
			Help: "Number of fields with fewer than two points along an axis.",
		}, []string{"axis"}),
	}
	m.Registry.MustRegister(m.timeSteps, m.stepSeconds, m.files, m.degenerate)
	return m
}

// WriteTextfile writes the current metric values to path in the
// Prometheus text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

func (m *Metrics) observeStep(d time.Duration) {
	if m == nil {
		return
	}
	m.timeSteps.Inc()
	m.stepSeconds.Observe(d.Seconds())
}

// FileDone records the outcome of processing one input file.
func (m *Metrics) FileDone(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.files.WithLabelValues(status).Inc()
}

func (m *Metrics) degenerateInput(axis string) {
	if m == nil {
		return
	}
	m.degenerate.WithLabelValues(axis).Inc()
}
