// cmd_disasm.go - "disasm": linear sweep through machine code
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

func newDisasmCmd() *cobra.Command {
	var (
		base uint64
		file string
	)
	cmd := &cobra.Command{
		Use:   "disasm [hex bytes...]",
		Short: "Decode machine code and show how each instruction is modeled",
		RunE: func(cmd *cobra.Command, args []string) error {
			var code []byte
			var err error
			if file != "" {
				code, err = os.ReadFile(file)
			} else {
				code, err = parseCode(args)
			}
			if err != nil {
				return err
			}
			disassemble(cmd.OutOrStdout(), code, base)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&base, "base", frontend.DefaultConfig().LoadAddr, "address of the first byte")
	cmd.Flags().StringVarP(&file, "file", "f", "", "read a flat binary instead of hex arguments")
	return cmd
}

// disassemble prints one line per instruction. Bytes that do not decode are
// shown as db and skipped one at a time; instructions outside the catalog
// are marked unsupported.
func disassemble(w io.Writer, code []byte, base uint64) {
	for off := 0; off < len(code); {
		pc := base + uint64(off)
		u, err := frontend.Decode(code[off:], pc)
		if err != nil {
			var ue *frontend.UnsupportedError
			if errors.As(err, &ue) {
				if n := ue.Len; n > 0 && off+n <= len(code) {
					fmt.Fprintf(w, "0x%016x: %-30s ; unsupported %s\n", pc, hexBytes(code[off:off+n]), ue.Op)
					off += n
					continue
				}
			}
			fmt.Fprintf(w, "0x%016x: %-30s db 0x%02x\n", pc, hexBytes(code[off:off+1]), code[off])
			off++
			continue
		}

		line := cpu.FormatDisassembly(u)
		if u.Capability() == cpu.Stub {
			line += " ; stub"
		}
		fmt.Fprintf(w, "0x%016x: %-30s %s\n", pc, hexBytes(u.Bytes()), line)
		off += u.Len()
	}
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("%02x", x)
	}
	return strings.Join(parts, " ")
}
