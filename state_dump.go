// state_dump.go - register, flag and vector dumps for the CLI
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/xlab/treeprint"
	"golang.org/x/term"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

var gprOrder = []cpu.Register{
	cpu.RAX, cpu.RBX, cpu.RCX, cpu.RDX, cpu.RSI, cpu.RDI, cpu.RBP, cpu.RSP,
	cpu.R8, cpu.R9, cpu.R10, cpu.R11, cpu.R12, cpu.R13, cpu.R14, cpu.R15,
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// dumpState writes the machine state as a tree on a terminal and as
// key=value lines otherwise.
func dumpState(w io.Writer, r *frontend.Runner) {
	if isTerminal(w) {
		fmt.Fprint(w, stateTree(r).String())
		return
	}
	dumpStateLines(w, r)
}

func dumpStateLines(w io.Writer, r *frontend.Runner) {
	s := r.State()
	for _, reg := range gprOrder {
		fmt.Fprintf(w, "%s=0x%016x\n", reg, s.Get(reg))
	}
	fmt.Fprintf(w, "rip=0x%016x\n", s.RIP())
	fmt.Fprintf(w, "rflags=0x%016x\n", s.RFLAGS())
	fmt.Fprintf(w, "flags=%s\n", cpu.FlagString(s.RFLAGS()))
	for i := 0; i < 16; i++ {
		if v := s.XMM(i); !v.IsZero() {
			fmt.Fprintf(w, "xmm%d=%s\n", i, v)
		}
	}
	fmt.Fprintf(w, "instructions=%d\n", r.InstructionCount)
	fmt.Fprintf(w, "stubs=%d\n", r.StubCount)
	fmt.Fprintf(w, "halted=%t\n", r.Halted())
}

func stateTree(r *frontend.Runner) treeprint.Tree {
	s := r.State()
	tree := treeprint.New()
	tree.SetValue(fmt.Sprintf("\033[1;34mrip: 0x%016x\033[0m, \033[1;32mhalted: %t\033[0m", s.RIP(), r.Halted()))

	gpr := tree.AddBranch("registers")
	for _, reg := range gprOrder {
		gpr.AddNode(fmt.Sprintf("%-3s 0x%016x", reg, s.Get(reg)))
	}

	flags := tree.AddBranch("rflags")
	flags.AddNode(fmt.Sprintf("0x%016x", s.RFLAGS()))
	flags.AddNode(cpu.FlagString(s.RFLAGS()))

	var xmm treeprint.Tree
	for i := 0; i < 16; i++ {
		v := s.XMM(i)
		if v.IsZero() {
			continue
		}
		if xmm == nil {
			xmm = tree.AddBranch("vectors")
		}
		xmm.AddNode(fmt.Sprintf("xmm%-2d %s", i, v))
	}

	stats := tree.AddBranch("counters")
	stats.AddNode(fmt.Sprintf("instructions %d", r.InstructionCount))
	stats.AddNode(fmt.Sprintf("stubs %d", r.StubCount))
	stats.AddNode(fmt.Sprintf("decodes %d", r.CacheMisses))
	return tree
}

// dumpMemory prints a hex/ASCII listing of size bytes at addr.
func dumpMemory(w io.Writer, m *cpu.PagedMemory, addr, size uint64) error {
	data, err := m.Dump(addr, size)
	if err != nil {
		return err
	}
	for off := 0; off < len(data); off += 16 {
		end := min(off+16, len(data))
		fmt.Fprintf(w, "%016x:", addr+uint64(off))
		for i := off; i < off+16; i++ {
			if i < end {
				fmt.Fprintf(w, " %02x", data[i])
			} else {
				fmt.Fprint(w, "   ")
			}
		}
		fmt.Fprint(w, "  ")
		for _, b := range data[off:end] {
			if b < 0x20 || b > 0x7E {
				b = '.'
			}
			fmt.Fprintf(w, "%c", b)
		}
		fmt.Fprintln(w)
	}
	return nil
}
