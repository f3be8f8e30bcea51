// cmd_run.go - "run": load machine code, prepare the machine and execute it
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/intuitionamiga/amd64core/frontend"
	"github.com/intuitionamiga/amd64core/log"
)

type runOptions struct {
	cfg     frontend.Config
	file    string
	script  string
	sets    []string
	console uint64
	perf    bool
	quiet   bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{cfg: frontend.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "run [hex bytes...]",
		Short: "Execute machine code until it returns, faults or reaches the step limit",
		Example: `  amd64core run 48c7c02a000000c3
  amd64core run --set rbx=7 "48 89 d8 c3"
  amd64core run --file prog.bin --script setup.star`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runProgram(ctx, cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.Uint64Var(&opts.cfg.LoadAddr, "base", opts.cfg.LoadAddr, "load and entry address")
	f.Uint64Var(&opts.cfg.StackTop, "stack-top", opts.cfg.StackTop, "initial stack pointer before the return address is pushed")
	f.Uint64Var(&opts.cfg.StackSize, "stack-size", opts.cfg.StackSize, "bytes of stack mapped below stack-top")
	f.Uint64Var(&opts.cfg.MaxSteps, "steps", opts.cfg.MaxSteps, "instruction limit (0 for none)")
	f.BoolVar(&opts.cfg.CheckAlignment, "align", false, "fault on misaligned accesses while RFLAGS.AC is set")
	f.BoolVar(&opts.cfg.StrictDecode, "strict", false, "stop at instructions outside the catalog instead of stubbing them")
	f.StringVarP(&opts.file, "file", "f", "", "load a flat binary instead of hex arguments")
	f.StringVar(&opts.script, "script", "", "Starlark (or .lua) scenario run before the program")
	f.StringArrayVar(&opts.sets, "set", nil, "register assignment name=value, repeatable")
	f.Uint64Var(&opts.console, "console", 0, "map a console device at this address (0 disables)")
	f.BoolVar(&opts.perf, "perf", false, "report MIPS while running")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "do not print the final state")
	return cmd
}

func runProgram(ctx context.Context, cmd *cobra.Command, args []string, opts runOptions) error {
	out := cmd.OutOrStdout()
	r := frontend.NewRunner(opts.cfg)
	r.PerfEnabled = opts.perf

	if opts.file != "" {
		if err := r.LoadFile(opts.file); err != nil {
			return err
		}
	} else {
		code, err := parseCode(args)
		if err != nil {
			return err
		}
		if err := r.Load(code); err != nil {
			return err
		}
	}

	if opts.console != 0 {
		host := NewTerminalHost(cmd.InOrStdin(), out)
		r.Memory().MapIO(host.Region(opts.console))
		host.Start()
		defer host.Stop()
	}

	var sc scenarioHook
	if opts.script != "" {
		var err error
		if sc, err = loadScenario(r, opts.script, out); err != nil {
			return fmt.Errorf("script: %w", err)
		}
		defer sc.close()
	}
	for _, kv := range opts.sets {
		if err := assign(r.State(), kv); err != nil {
			return err
		}
	}

	n, runErr := r.Run(ctx, 0)
	log.Debug(log.CLI, "run finished", "steps", n, "err", runErr)

	if !opts.quiet {
		dumpState(out, r)
	}
	if runErr != nil {
		if errors.Is(runErr, frontend.ErrStepLimit) {
			return fmt.Errorf("stopped after %d instructions: %w", n, runErr)
		}
		return runErr
	}
	if sc != nil {
		return sc.check()
	}
	return nil
}
