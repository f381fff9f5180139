// Package core provides the shared data types and sentinel errors for
// cacache's verification and garbage-collection engine. Interfaces that
// define internal contracts live in internal/contracts to avoid exposing
// them as part of the public API.
package core
