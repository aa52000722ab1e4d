// Package confloader provides configuration loading for arsnap.
//
// A Loader layers a YAML file and ARSNAP_* environment variables over the
// defaults already present in the target struct, then unmarshals through
// koanf tags. A Watcher reports changes to the configuration file so the
// recorder can re-apply reloadable settings (currently log.level).
//
// Priority (highest to lowest):
//
//  1. Environment variables
//  2. Configuration file
//  3. Default values
package confloader
