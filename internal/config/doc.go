// Package config loads trajstore command-line configuration from TOML
// files.
//
// Load starts from Default, overlays the file (when it exists), expands
// paths, derives unset values and validates the result. CreateSample writes
// the annotated sample configuration embedded in the binary.
package config
