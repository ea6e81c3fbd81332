// Package repl implements the interactive "medpanel-cli shell".
//
// Each line is split shell-style and handed to an Executor, which in
// practice re-enters the same command tree the one-shot CLI uses. A line
// ending in "?" lists matching commands instead of running one.
package repl
