// Package main provides the entry point for medpanel-cli.
//
// medpanel-cli is a terminal client for the hospital admin panel API:
//
//   - Account login, registration and logout
//   - Patient records (list, add, update, delete)
//   - Profile view and edit
//   - WhatsApp linking for patient messaging
//
// Usage:
//
//	medpanel-cli auth login --email dr@rs.id
//	medpanel-cli patient list --page 2
//	medpanel-cli -o json patient list
//	medpanel-cli shell
//
// When the API reports the session as expired, the stored credential is
// removed and the user is told to log in again.
package main
