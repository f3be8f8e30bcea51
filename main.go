// main.go - command line driver for the amd64core instruction engine

/*
 █████╗ ███╗   ███╗██████╗  ██████╗ ██╗  ██╗     ██████╗ ██████╗ ██████╗ ███████╗
██╔══██╗████╗ ████║██╔══██╗██╔════╝ ██║  ██║    ██╔════╝██╔═══██╗██╔══██╗██╔════╝
███████║██╔████╔██║██║  ██║███████╗ ███████║    ██║     ██║   ██║██████╔╝█████╗
██╔══██║██║╚██╔╝██║██║  ██║██╔═══██╗╚════██║    ██║     ██║   ██║██╔══██╗██╔══╝
██║  ██║██║ ╚═╝ ██║██████╔╝╚██████╔╝     ██║    ╚██████╗╚██████╔╝██║  ██║███████╗
╚═╝  ╚═╝╚═╝     ╚═╝╚═════╝  ╚═════╝      ╚═╝     ╚═════╝ ╚═════╝ ╚═╝  ╚═╝╚══════╝

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/amd64core
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/intuitionamiga/amd64core/log"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

func boilerPlate(w io.Writer) {
	fmt.Fprintln(w, "\033[38;2;255;20;147mamd64core\033[0m - AMD64 user-mode instruction engine")
	fmt.Fprintln(w, "(c) 2024 - 2026 Zayn Otley")
	fmt.Fprintln(w, "License: GPLv3 or later")
}

func newRootCmd() *cobra.Command {
	var (
		logLevel   string
		logModules string
		banner     bool
	)

	rootCmd := &cobra.Command{
		Use:          "amd64core",
		Short:        "Decode and execute AMD64 machine code",
		Version:      fmt.Sprintf("%s (%s, %s)", Version, Commit, BuildTime),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if banner {
				boilerPlate(cmd.ErrOrStderr())
			}
			if err := log.InitLogger(logLevel); err != nil {
				return err
			}
			for _, m := range strings.Split(logModules, ",") {
				if m = strings.TrimSpace(m); m != "" {
					log.EnableModule(m)
				}
			}
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logLevel, "log-level", "warn", "trace, debug, info, warn, error or crit")
	pf.StringVar(&logModules, "log-modules", "", "comma-separated modules with trace and debug output (cpu,frontend,cli)")
	pf.BoolVar(&banner, "banner", false, "print the banner on startup")

	rootCmd.AddCommand(newRunCmd(), newDisasmCmd(), newReplCmd(), newFeaturesCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
