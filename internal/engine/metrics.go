package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	runsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classd",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Total analysis runs started",
	})

	cellsFilled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classd",
		Subsystem: "engine",
		Name:      "cells_total",
		Help:      "Result cells filled, by final status",
	}, []string{"status"})

	modelFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classd",
		Subsystem: "engine",
		Name:      "model_failures_total",
		Help:      "Whole-column model failures, by error kind",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(runsStarted, cellsFilled, modelFailures)
}
