// Command nativeui runs NativeUI applications.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/nativeui/cmd/nativeui/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
