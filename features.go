// features.go - "features": build information and the instruction catalog
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intuitionamiga/amd64core/cpu"
)

func printFeatures(w io.Writer, stubsOnly bool) {
	fmt.Fprintf(w, "amd64core %s\n", Version)
	fmt.Fprintf(w, "  Go version: %s\n", runtime.Version())
	fmt.Fprintf(w, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintln(w)

	var implemented, stubs []string
	for _, m := range cpu.Mnemonics() {
		c, _ := cpu.Lookup(m)
		if c == cpu.Stub {
			stubs = append(stubs, m)
		} else {
			implemented = append(implemented, m)
		}
	}

	if !stubsOnly {
		fmt.Fprintf(w, "Implemented (%d):\n", len(implemented))
		printColumns(w, implemented)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Stub (%d):\n", len(stubs))
	if len(stubs) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	printColumns(w, stubs)
}

func printColumns(w io.Writer, names []string) {
	const perLine = 8
	for i := 0; i < len(names); i += perLine {
		end := min(i+perLine, len(names))
		fmt.Fprintf(w, "  %s\n", strings.Join(names[i:end], " "))
	}
}

func newFeaturesCmd() *cobra.Command {
	var stubsOnly bool
	cmd := &cobra.Command{
		Use:   "features",
		Short: "List every catalog mnemonic and whether it is implemented or a stub",
		Run: func(cmd *cobra.Command, args []string) {
			printFeatures(cmd.OutOrStdout(), stubsOnly)
		},
	}
	cmd.Flags().BoolVar(&stubsOnly, "stubs", false, "list only stub instructions")
	return cmd
}
