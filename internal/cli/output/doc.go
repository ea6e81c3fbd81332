// Package output renders command results for medpanel-cli.
//
// Results are written as an aligned table (the default), indented JSON, or
// YAML. Table output understands the Tabular interface, plain structs and
// slices of structs; the machine formats keep the API's JSON field names.
// Paginate slices long lists the way the patient dashboard pages them.
package output
