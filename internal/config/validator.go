// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `Load` calls `validateStruct` immediately after it unmarshals the merged
// Koanf tree into a `Config` instance.  Any tag mismatch aborts startup, so
// the binary never runs with partial or malformed configuration.
//
// Rules in use: `required`, `required_if` (DSN only matters for mysql),
// `oneof`, and `hostname_port`.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.

package config

import "github.com/go-playground/validator/v10"

//
// validator instance (package-level singleton)
//

var v = validator.New()

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
