// Package testutil generates reproducible tile payloads for tests and
// benchmarks.
package testutil
