// Package config defines the recorder configuration structure.
//
// RecorderConfig is loaded by confloader from defaults, an optional YAML
// file and ARSNAP_* environment variables, then checked by Verify. The
// To* helpers translate sections into the option structs of the packages
// that consume them.
package config
