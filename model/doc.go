// Package model defines stable boundary types shared by the pipeline stages.
//
// Error carries the taxonomy every stage reports through (Kind + Code), and
// RunResult is the only type intended for direct JSON serialization by
// consumers that need a machine-readable outcome of a run.
package model
