// Package testutil provides test helpers:
//   - Miniredis helpers for the Redis dataset source (miniredis.go)
//   - Transaction and CSV fixtures (fixtures.go)
package testutil
