// cmd_repl.go - "repl": interactive load, step and inspect loop
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
	"github.com/intuitionamiga/amd64core/log"
)

var errQuit = errors.New("quit")

const replHelp = `commands:
  load <hex>          load code at the base address and reset
  step [n]            execute n instructions (default 1)
  run [n]             run until halt or n instructions
  regs                show the machine state
  set <name=value>    assign a register, rip, rflags or xmmN
  mem <addr> [len]    dump memory
  disasm [n]          decode n instructions from rip (default 8)
  reset               reload the last code
  quit                leave`

// replSession holds the machine between commands.
type replSession struct {
	runner *frontend.Runner
	out    io.Writer
}

func newReplSession(cfg frontend.Config, out io.Writer) *replSession {
	return &replSession{runner: frontend.NewRunner(cfg), out: out}
}

// exec runs one command line. It returns errQuit for quit and exit.
func (s *replSession) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	log.Debug(log.CLI, "repl command", "cmd", cmd, "args", len(args))

	switch cmd {
	case "quit", "exit", "q":
		return errQuit
	case "help", "?":
		fmt.Fprintln(s.out, replHelp)
	case "load":
		code, err := parseCode(args)
		if err != nil {
			return err
		}
		if err := s.runner.Load(code); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "loaded %d bytes at 0x%x\n", len(code), s.runner.Config().LoadAddr)
	case "reset":
		return s.runner.Reset()
	case "step", "s":
		n, err := countArg(args, 1)
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			pc := s.runner.State().RIP()
			if u, err := s.runner.Decode(pc); err == nil {
				fmt.Fprintf(s.out, "0x%016x: %s\n", pc, cpu.FormatDisassembly(u))
			}
			if err := s.runner.Step(); err != nil {
				return err
			}
			if s.runner.Halted() {
				fmt.Fprintln(s.out, "halted")
				break
			}
		}
	case "run", "r":
		n, err := countArg(args, 0)
		if err != nil {
			return err
		}
		done, err := s.runner.Run(ctx, n)
		fmt.Fprintf(s.out, "%d instructions\n", done)
		if err != nil {
			return err
		}
		if s.runner.Halted() {
			fmt.Fprintln(s.out, "halted")
		}
	case "regs", "state":
		dumpState(s.out, s.runner)
	case "set":
		if len(args) != 1 {
			return fmt.Errorf("usage: set name=value")
		}
		return assign(s.runner.State(), args[0])
	case "mem", "m":
		if len(args) == 0 {
			return fmt.Errorf("usage: mem addr [len]")
		}
		addr, err := parseUint(args[0])
		if err != nil {
			return err
		}
		size, err := countArg(args[1:], 64)
		if err != nil {
			return err
		}
		return dumpMemory(s.out, s.runner.Memory(), addr, size)
	case "disasm", "d":
		n, err := countArg(args, 8)
		if err != nil {
			return err
		}
		pc := s.runner.State().RIP()
		code, _ := s.runner.Memory().Dump(pc, n*frontend.MaxInstructionLen)
		if code == nil {
			return fmt.Errorf("no code at 0x%x", pc)
		}
		s.disasmCount(code, pc, n)
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return nil
}

func (s *replSession) disasmCount(code []byte, pc uint64, n uint64) {
	off := 0
	for i := uint64(0); i < n && off < len(code); i++ {
		u, err := frontend.Decode(code[off:], pc+uint64(off))
		if err != nil {
			fmt.Fprintf(s.out, "0x%016x: %v\n", pc+uint64(off), err)
			return
		}
		fmt.Fprintf(s.out, "0x%016x: %s\n", u.PC(), cpu.FormatDisassembly(u))
		off += u.Len()
	}
}

func countArg(args []string, def uint64) (uint64, error) {
	if len(args) == 0 {
		return def, nil
	}
	return strconv.ParseUint(args[0], 0, 64)
}

func newReplCmd() *cobra.Command {
	cfg := frontend.DefaultConfig()
	var history string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive load, step and inspect console",
		RunE: func(cmd *cobra.Command, args []string) error {
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "amd64> ",
				HistoryFile:     history,
				InterruptPrompt: "^C",
				EOFPrompt:       "quit",
				Stdout:          cmd.OutOrStdout(),
			})
			if err != nil {
				return fmt.Errorf("failed to start readline: %w", err)
			}
			atexit.Register(func() { rl.Close() })
			defer rl.Close()

			sess := newReplSession(cfg, rl.Stdout())
			fmt.Fprintln(sess.out, "type help for commands")
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if err != nil {
					return nil
				}
				if err := sess.exec(cmd.Context(), line); err != nil {
					if errors.Is(err, errQuit) {
						return nil
					}
					fmt.Fprintf(sess.out, "error: %v\n", err)
				}
			}
		},
	}
	cmd.Flags().Uint64Var(&cfg.LoadAddr, "base", cfg.LoadAddr, "load and entry address")
	cmd.Flags().Uint64Var(&cfg.MaxSteps, "steps", cfg.MaxSteps, "default limit for run")
	cmd.Flags().StringVar(&history, "history", filepath.Join(os.TempDir(), "amd64core_history.txt"), "readline history file")
	return cmd
}
