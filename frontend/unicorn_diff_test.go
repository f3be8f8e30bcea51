//go:build unicorn
// +build unicorn

package frontend_test

import (
	"context"
	"fmt"
	"testing"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
	"github.com/stretchr/testify/require"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

const (
	ucCodeBase  = 0x400000
	ucStackTop  = 0x7FFF0000
	ucStackSize = 0x10000

	// Flags with defined results for every instruction in the programs below.
	ucFlagMask = uint64(cpu.FlagCF | cpu.FlagPF | cpu.FlagZF | cpu.FlagSF | cpu.FlagOF)
)

var ucRegs = []struct {
	reg cpu.Register
	uc  int
}{
	{cpu.RAX, uc.X86_REG_RAX}, {cpu.RCX, uc.X86_REG_RCX}, {cpu.RDX, uc.X86_REG_RDX},
	{cpu.RBX, uc.X86_REG_RBX}, {cpu.RSP, uc.X86_REG_RSP}, {cpu.RBP, uc.X86_REG_RBP},
	{cpu.RSI, uc.X86_REG_RSI}, {cpu.RDI, uc.X86_REG_RDI}, {cpu.R8, uc.X86_REG_R8},
	{cpu.R9, uc.X86_REG_R9}, {cpu.R10, uc.X86_REG_R10}, {cpu.R11, uc.X86_REG_R11},
	{cpu.R12, uc.X86_REG_R12}, {cpu.R13, uc.X86_REG_R13}, {cpu.R14, uc.X86_REG_R14},
	{cpu.R15, uc.X86_REG_R15},
}

// runUnicorn executes straight-line code and returns the 16 GPRs and RFLAGS.
func runUnicorn(t *testing.T, code []byte, init map[cpu.Register]uint64) ([16]uint64, uint64) {
	t.Helper()
	mu, err := uc.NewUnicorn(uc.ARCH_X86, uc.MODE_64)
	require.NoError(t, err)
	defer mu.Close()

	codeSize := (uint64(len(code)) + cpu.PageSize - 1) &^ (cpu.PageSize - 1)
	require.NoError(t, mu.MemMap(ucCodeBase, codeSize))
	require.NoError(t, mu.MemWrite(ucCodeBase, code))
	require.NoError(t, mu.MemMap(ucStackTop-ucStackSize, ucStackSize))

	require.NoError(t, mu.RegWrite(uc.X86_REG_RSP, ucStackTop))
	for _, r := range ucRegs {
		if v, ok := init[r.reg]; ok {
			require.NoError(t, mu.RegWrite(r.uc, v))
		}
	}
	require.NoError(t, mu.Start(ucCodeBase, ucCodeBase+uint64(len(code))))

	var gpr [16]uint64
	for i, r := range ucRegs {
		gpr[i], err = mu.RegRead(r.uc)
		require.NoError(t, err)
	}
	flags, err := mu.RegRead(uc.X86_REG_EFLAGS)
	require.NoError(t, err)
	return gpr, flags
}

// runCore executes the same code through the decoder and catalog.
func runCore(t *testing.T, code []byte, init map[cpu.Register]uint64) ([16]uint64, uint64) {
	t.Helper()
	r := frontend.NewRunner(frontend.Config{LoadAddr: ucCodeBase, StackTop: ucStackTop, StackSize: ucStackSize})
	require.NoError(t, r.Load(code))
	s := r.State()
	s.Set(cpu.RSP, ucStackTop)
	for reg, v := range init {
		s.Set(reg, v)
	}

	end := uint64(ucCodeBase + len(code))
	for s.RIP() != end {
		require.NoError(t, r.Step(), "at 0x%x", s.RIP())
	}

	var gpr [16]uint64
	for i, reg := range ucRegs {
		gpr[i] = s.Get(reg.reg)
	}
	return gpr, s.RFLAGS()
}

func TestUnicorn_Differential(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		init map[cpu.Register]uint64
	}{
		{"add carry", []byte{0x48, 0x01, 0xd8}, map[cpu.Register]uint64{cpu.RAX: ^uint64(0), cpu.RBX: 1}},
		{"sub borrow", []byte{0x29, 0xd8}, map[cpu.Register]uint64{cpu.RAX: 1, cpu.RBX: 2}},
		{"add overflow", []byte{0x01, 0xd8}, map[cpu.Register]uint64{cpu.RAX: 0x7FFFFFFF, cpu.RBX: 1}},
		{"cmp equal", []byte{0x48, 0x39, 0xd8}, map[cpu.Register]uint64{cpu.RAX: 5, cpu.RBX: 5}},
		{"xor zero", []byte{0x31, 0xc0}, map[cpu.Register]uint64{cpu.RAX: 0xFFFFFFFF00000001}},
		{"adc chain", []byte{0x48, 0x01, 0xd8, 0x48, 0x11, 0xca}, map[cpu.Register]uint64{cpu.RAX: ^uint64(0), cpu.RBX: 1, cpu.RCX: 3}},
		{"cdq negative", []byte{0x99}, map[cpu.Register]uint64{cpu.RAX: 0x80000000, cpu.RDX: 0x1234}},
		{"cqo", []byte{0x48, 0x99}, map[cpu.Register]uint64{cpu.RAX: 1 << 63}},
		{"cdqe", []byte{0x48, 0x98}, map[cpu.Register]uint64{cpu.RAX: 0xFFFFFFFF}},
		{"bswap r64", []byte{0x48, 0x0f, 0xc8}, map[cpu.Register]uint64{cpu.RAX: 0x0102030405060708}},
		{"bswap r32", []byte{0x0f, 0xcb}, map[cpu.Register]uint64{cpu.RBX: 0xFFFFFFFF11223344}},
		{"movzx byte", []byte{0x0f, 0xb6, 0xc3}, map[cpu.Register]uint64{cpu.RAX: ^uint64(0), cpu.RBX: 0x80}},
		{"movsx byte", []byte{0x48, 0x0f, 0xbe, 0xc3}, map[cpu.Register]uint64{cpu.RBX: 0x80}},
		{"write ah", []byte{0xb4, 0x12}, map[cpu.Register]uint64{cpu.RAX: 0xAAAAAAAAAAAAAAAA}},
		{"neg", []byte{0x48, 0xf7, 0xd8}, map[cpu.Register]uint64{cpu.RAX: 1}},
		{"inc keeps carry", []byte{0x48, 0x01, 0xd8, 0x48, 0xff, 0xc1}, map[cpu.Register]uint64{cpu.RAX: ^uint64(0), cpu.RBX: 1, cpu.RCX: 7}},
		{"setcc and cmov", []byte{0x48, 0x39, 0xd8, 0x0f, 0x9c, 0xc1, 0x48, 0x0f, 0x4c, 0xd3}, map[cpu.Register]uint64{cpu.RAX: 1, cpu.RBX: 2}},
		{"lahf", []byte{0x48, 0x39, 0xd8, 0x9f}, map[cpu.Register]uint64{cpu.RAX: 3, cpu.RBX: 3}},
		{"push pop", []byte{0x53, 0x58}, map[cpu.Register]uint64{cpu.RBX: 0xDEADBEEF}},
		{"lea sib", []byte{0x48, 0x8d, 0x44, 0xb3, 0x10}, map[cpu.Register]uint64{cpu.RBX: 0x1000, cpu.RSI: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantGPR, wantFlags := runUnicorn(t, tt.code, tt.init)
			gotGPR, gotFlags := runCore(t, tt.code, tt.init)

			for i, r := range ucRegs {
				if gotGPR[i] != wantGPR[i] {
					t.Errorf("%s: got 0x%016X, want 0x%016X", r.reg, gotGPR[i], wantGPR[i])
				}
			}
			if gotFlags&ucFlagMask != wantFlags&ucFlagMask {
				t.Errorf("RFLAGS: got %s, want %s",
					cpu.FlagString(gotFlags&ucFlagMask), cpu.FlagString(wantFlags&ucFlagMask))
			}
		})
	}
}

func TestUnicorn_RunToHalt(t *testing.T) {
	// sum 10..1 then return to the sentinel
	code := []byte{0x31, 0xc0, 0xb9, 0x0a, 0x00, 0x00, 0x00, 0x01, 0xc8, 0xff, 0xc9, 0x75, 0xfa}

	wantGPR, _ := runUnicorn(t, code, nil)

	r := frontend.NewRunner(frontend.Config{LoadAddr: ucCodeBase, StackTop: ucStackTop, StackSize: ucStackSize})
	require.NoError(t, r.Load(append(code, 0xc3)))
	_, err := r.Run(context.Background(), 0)
	require.NoError(t, err)

	require.Equal(t, wantGPR[0], r.State().Get(cpu.RAX), fmt.Sprintf("RAX after %d steps", r.InstructionCount))
}
