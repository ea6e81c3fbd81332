// Package command defines the medpanel-cli commands with urfave/cli/v2.
//
//   - root.go: the App, global flags, lazy config and Runtime
//   - runtime.go: wiring of store, expiry handling, transport and services
//   - auth.go: login, register, logout, whoami, status and WhatsApp linking
//   - patient.go: patient list, add, update and delete
//   - profile.go: profile show and update
//   - config.go: local configuration file
//   - shell.go: interactive shell sharing one Runtime across lines
//   - terminal.go: hidden password input on a terminal
//
// Commands parse flags, call a service and hand the result to the output
// package. A session that expires mid-command prints the expiry message and
// a hint to log in again.
package command
