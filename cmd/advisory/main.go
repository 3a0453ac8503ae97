// Command advisory runs live voice advisory sessions with Dr. Ronit Lami and
// manages their configuration and transcripts.
//
// Usage:
//
//	advisory [flags] <command> [subcommand] [args]
//
// Commands:
//
//	session      - Start a live advisory session
//	config       - Configuration management (contexts, services)
//	transcripts  - List, show, export and delete session transcripts
//	devices      - List audio devices and displays
//	version      - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/horesheladil/drlamiaiassistent/cmd/advisory/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
