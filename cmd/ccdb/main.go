// Command ccdb inspects the LLVM IR database written by cc_wrapper.
package main

import (
	"fmt"
	"os"

	"github.com/Bal0sk/diffkemp/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
