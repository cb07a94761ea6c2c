////////////////////////////////////////////////////////////////////////////////
// Debond governance: staking-weighted governance engine, host side.
// The wasm contract lives in ./contract.
////////////////////////////////////////////////////////////////////////////////

package main

import (
	"fmt"
	"os"
	"runtime"

	"debond_gov/cli"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
