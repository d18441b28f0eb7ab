// Package resource governs the memory, worker and IO budgets shared by tiles,
// the filter pipeline and tile I/O.
//
//   - Memory: buffer allocations and coordinate scratch copies are accounted
//     against a hard limit. Acquisition is fail-fast; a denied reservation
//     surfaces to callers as an allocation error.
//   - Workers: bounds how many tile chunks are filtered concurrently.
//   - IO: token-bucket limit on bytes moved to and from blob stores.
//
// All methods are safe for concurrent use and are no-ops on a nil *Controller,
// so every consumer can take an optional controller without nil checks.
package resource
