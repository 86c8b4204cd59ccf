// Package cmd implements the command-line interface for the dMerge pipeline
// service. It provides a hierarchical command structure with operations for
// running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the dMerge server
//   - data: Client commands (submit DATA A, read DATA C, benchmark)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dmerge -help for a list of all commands.
package cmd
