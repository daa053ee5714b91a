// The main package for the reviewharvest executable.
package main

import (
	"github.com/ymiyake/reviewharvest/cmd"
)

func main() {
	cmd.Execute()
}
