// Package config loads, validates, and normalizes Parafile configuration
// from TOML, including the category/variable catalog definitions.
package config
