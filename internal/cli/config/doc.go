// Package config defines the medpanel-cli configuration.
//
// Values are merged from, in increasing priority: built-in defaults, the
// YAML config file (~/.medpanel/config.yaml unless --config is given),
// MEDPANEL_* environment variables, and command-line flags.
package config
