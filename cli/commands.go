// Package cli implements the pdfsign command-line front end: a thin flag
// layer over the root pdfsign package, in digitorus/pdfsign's own
// stdlib-flag style (no cobra anywhere in this stack).
package cli

import (
	"fmt"
	"os"
)

// osExit is os.Exit, indirected so tests can observe an exit attempt
// without killing the test binary.
var osExit = os.Exit

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  sign    Sign a PDF file's unsigned signature fields")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}
