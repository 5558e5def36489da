// Package zkvm is the boundary between the host and a deterministic executor
// that can prove its runs.
//
// A Prover is driven in a fixed order: Setup derives the key pair for a
// Program, Prove runs the program over a Stdin and returns a Receipt, and
// Verify checks a Receipt against the verifying key. Execute runs the program
// without proving, for cycle counts and quick checks.
package zkvm
