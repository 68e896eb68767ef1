// Package config loads and validates daemon settings from an optional YAML
// file, falling back to compiled-in defaults suitable for an empty data
// directory mount.
package config
