// Command jsonsplit splits large JSON documents into bounded output files.
package main

import (
	"fmt"
	"os"

	"jsonsplit/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
