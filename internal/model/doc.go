// Package model defines the domain types shared across the seqfixtures CLI.
//
// A Release pairs a library version with the fixtures its example
// generators produce. A Plan is the ordered list of releases a single
// "generate" run walks through. Reports carry per-release outcomes back to
// the CLI for text or JSON output.
//
// This package also defines CLIError and the exit-code table, which every
// other package uses to tag failures with a process exit status.
package model
