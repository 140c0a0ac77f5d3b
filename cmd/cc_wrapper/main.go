// Command cc_wrapper stands in for the C compiler of a build. It runs the
// real compiler, then builds LLVM IR for the same step and records the IR
// files in a database.
//
//	cc_wrapper [--key=value]... -- <compiler arguments>...
package main

import (
	"os"

	"github.com/Bal0sk/diffkemp/wrapper"
)

func main() {
	os.Exit(wrapper.New().Run(os.Args[1:]))
}
