// # cmd/depgraph/main.go
package main

import (
	"os"

	"depgraph/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
