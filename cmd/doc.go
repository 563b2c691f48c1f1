// Package cmd contains the cobra command tree for the meetsched binary:
// serve (the HTTP server), migrate (schema migration), and version.
package cmd
