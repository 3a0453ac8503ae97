// Package cli provides output formatting and terminal rendering shared by
// the advisory commands.
package cli
