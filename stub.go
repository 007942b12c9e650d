package main

import (
	"os"
	"strings"

	"rvos/kernel/kfmt"
	"rvos/kernel/kmain"
)

// main is a trampoline into the kernel entrypoint. When the kernel is hosted
// by the simulator, the process arguments stand in for the boot command line
// and the console is attached to stdout. A zero frame range lets Kmain fall
// back to the configured one.
//
// main is not expected to return; Kmain halts the CPU once all threads exit.
func main() {
	kfmt.SetOutputSink(&kfmt.PrefixWriter{Sink: os.Stdout, Prefix: []byte("rvos: ")})
	kmain.Kmain(strings.Join(os.Args[1:], " "), 0, 0)
}
