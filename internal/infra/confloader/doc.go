// Package confloader loads layered configuration with koanf.
//
// Priority (highest to lowest):
//
//  1. Command-line flags (LoadMap)
//  2. Environment variables (MEDPANEL_SECTION_KEY)
//  3. Configuration file (YAML)
//  4. Defaults (WithDefaults)
//
// Watcher reports edits to the configuration file so long-running sessions
// (the interactive shell) can pick them up.
package confloader
