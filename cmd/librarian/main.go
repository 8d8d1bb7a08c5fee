// Package main provides the librarian CLI.
package main

import "github.com/mesh-intelligence/librarian/internal/cli"

func main() {
	cli.Execute()
}
