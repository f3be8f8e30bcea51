// ops_int_test.go - integer, move, stack and flag instruction semantics
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Sign Extension Tests
// =============================================================================

func TestCDQ(t *testing.T) {
	tests := []struct {
		eax, edx uint64
	}{
		{0x00000000, 0x00000000},
		{0x7FFFFFFF, 0x00000000},
		{0x80000000, 0xFFFFFFFF},
		{0xFFFFFFFF, 0xFFFFFFFF},
	}
	for _, tt := range tests {
		s := NewState(nil)
		s.Set(RAX, 0xDEAD000000000000|tt.eax)
		s.Set(RDX, 0x1234567812345678)
		exec(t, s, "cdq")
		if s.Get(RDX) != tt.edx {
			t.Errorf("cdq eax=0x%08X: RDX got 0x%016X, want 0x%016X", tt.eax, s.Get(RDX), tt.edx)
		}
		if s.Get(RAX) != 0xDEAD000000000000|tt.eax {
			t.Errorf("cdq eax=0x%08X modified RAX", tt.eax)
		}
	}
}

func TestCWD_CQO(t *testing.T) {
	s := NewState(nil)
	s.Set(RDX, 0xFFFFFFFFFFFFFFFF)
	s.Set(AX, 0x8000)
	exec(t, s, "cwd")
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), s.Get(RDX), "cwd writes only DX")

	s.Set(AX, 0x0001)
	exec(t, s, "cwd")
	assert.Equal(t, uint64(0xFFFFFFFFFFFF0000), s.Get(RDX))

	s.Set(RAX, 0x8000000000000000)
	exec(t, s, "cqo")
	assert.Equal(t, ^uint64(0), s.Get(RDX))
}

func TestCBW_CWDE_CDQE(t *testing.T) {
	s := NewState(nil)
	s.Set(RAX, 0xFFFFFFFFFFFF0080)
	exec(t, s, "cbw")
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFF80), s.Get(RAX))

	s.Set(RAX, 0xFFFFFFFF00008000)
	exec(t, s, "cwde")
	assert.Equal(t, uint64(0xFFFF8000), s.Get(RAX))

	s.Set(RAX, 0x0000000080000000)
	exec(t, s, "cdqe")
	assert.Equal(t, uint64(0xFFFFFFFF80000000), s.Get(RAX))
}

// =============================================================================
// BSWAP Tests
// =============================================================================

func TestBSWAP(t *testing.T) {
	s := NewState(nil)
	s.Set(RCX, 0x0102030405060708)
	exec(t, s, "bswap", Reg(RCX))
	assert.Equal(t, uint64(0x0807060504030201), s.Get(RCX))

	s.Set(RCX, 0xFFFFFFFF11223344)
	exec(t, s, "bswap", Reg(ECX))
	assert.Equal(t, uint64(0x44332211), s.Get(RCX))

	s.Set(RCX, 0xAAAA1122)
	exec(t, s, "bswap", Reg(CX))
	assert.Equal(t, uint64(0xAAAA2211), s.Get(RCX))
}

func TestBSWAP_SelfInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, r := range []Register{RDX, EDX, DX} {
		for i := 0; i < 64; i++ {
			s := NewState(nil)
			v := rng.Uint64()
			s.Set(r, v)
			want := s.Get(RDX)
			exec(t, s, "bswap", Reg(r))
			exec(t, s, "bswap", Reg(r))
			if s.Get(RDX) != want {
				t.Fatalf("bswap %s twice: got 0x%X, want 0x%X", r, s.Get(RDX), want)
			}
		}
	}

	_, err := New("bswap", 0, []byte{0x0f, 0xc8}, Reg(AL))
	assert.ErrorIs(t, err, ErrOperandKind)
}

// =============================================================================
// ALU Tests
// =============================================================================

func TestALU_XorZeroIdiom(t *testing.T) {
	s := NewState(nil)
	s.Set(RAX, 0xFFFFFFFFFFFFFFFF)
	s.SetFlag(FlagCF, true)
	s.SetFlag(FlagOF, true)

	next := exec(t, s, "xor", Reg(EAX), Reg(EAX))

	assert.Equal(t, uint64(testCode+4), next)
	assert.Equal(t, uint64(0), s.Get(RAX))
	assert.True(t, s.Flag(FlagZF))
	assert.True(t, s.Flag(FlagPF))
	assert.False(t, s.Flag(FlagCF))
	assert.False(t, s.Flag(FlagOF))
}

func TestALU_Arithmetic(t *testing.T) {
	s := NewState(nil)
	s.Set(RAX, 10)
	exec(t, s, "add", Reg(RAX), Imm(-3, 8))
	assert.Equal(t, uint64(7), s.Get(RAX))
	assert.True(t, s.Flag(FlagCF), "7 = 10 + 0xFFFF...FD carries out")

	s.Set(RAX, 5)
	s.SetFlag(FlagCF, true)
	exec(t, s, "adc", Reg(RAX), Imm(1, 32))
	assert.Equal(t, uint64(7), s.Get(RAX))

	s.SetFlag(FlagCF, true)
	exec(t, s, "sbb", Reg(RAX), Imm(1, 32))
	assert.Equal(t, uint64(5), s.Get(RAX))

	exec(t, s, "sub", Reg(AL), Imm(6, 8))
	assert.Equal(t, uint64(0xFF), s.Get(RAX))
	assert.True(t, s.Flag(FlagCF))
	assert.True(t, s.Flag(FlagSF))
}

func TestALU_CompareAndTestDoNotWrite(t *testing.T) {
	s := NewState(nil)
	s.Set(RBX, 3)

	exec(t, s, "cmp", Reg(RBX), Imm(3, 8))
	assert.Equal(t, uint64(3), s.Get(RBX))
	assert.True(t, s.Flag(FlagZF))

	exec(t, s, "test", Reg(RBX), Imm(4, 8))
	assert.Equal(t, uint64(3), s.Get(RBX))
	assert.True(t, s.Flag(FlagZF))

	exec(t, s, "cmp", Reg(RBX), Imm(4, 8))
	assert.True(t, s.Flag(FlagCF))
	assert.True(t, s.Test(CondB))
	assert.True(t, s.Test(CondL))
}

func TestALU_AndOrProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 200; i++ {
		a, b := rng.Uint64(), rng.Uint64()
		s := NewState(nil)

		s.Set(RAX, a)
		s.Set(RBX, b)
		exec(t, s, "and", Reg(RAX), Reg(RBX))
		ab := s.Get(RAX)
		s.Set(RAX, b)
		s.Set(RBX, a)
		exec(t, s, "and", Reg(RAX), Reg(RBX))
		require.Equal(t, ab, s.Get(RAX), "and commutes")

		s.Set(RAX, a)
		exec(t, s, "or", Reg(RAX), Reg(RAX))
		require.Equal(t, a, s.Get(RAX), "or idempotent")
		require.False(t, s.Flag(FlagCF))
		require.False(t, s.Flag(FlagOF))
	}
}

func TestUnary(t *testing.T) {
	s := NewState(nil)
	s.SetFlag(FlagCF, true)
	s.Set(RAX, 0xFF)
	exec(t, s, "inc", Reg(AL))
	assert.Equal(t, uint64(0), s.Get(RAX))
	assert.True(t, s.Flag(FlagZF))
	assert.True(t, s.Flag(FlagCF), "inc preserves CF")

	s.SetFlag(FlagCF, false)
	exec(t, s, "dec", Reg(EAX))
	assert.Equal(t, uint64(0xFFFFFFFF), s.Get(RAX))
	assert.False(t, s.Flag(FlagCF))

	s.Set(RAX, 5)
	exec(t, s, "neg", Reg(RAX))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFB), s.Get(RAX))
	assert.True(t, s.Flag(FlagCF))

	flags := s.RFLAGS()
	exec(t, s, "not", Reg(RAX))
	assert.Equal(t, uint64(4), s.Get(RAX))
	assert.Equal(t, flags, s.RFLAGS(), "not leaves flags")
}

// =============================================================================
// Move Tests
// =============================================================================

func TestALU_FaultingStoreKeepsFlags(t *testing.T) {
	s, mem := newTestState(t)
	// readable but not writable: an input register on an unmapped page
	mem.MapIO(IORegion{Start: 0x9000, End: 0x9007, OnRead: func(uint64, int) uint64 { return 5 }})
	s.Set(RDI, 0x9000)
	s.Set(RBX, 7)
	s.SetFlag(FlagCF, true)
	before := s.RFLAGS()

	_, err := build(t, "sub", Mem(RDI, 0, 64), Reg(RBX)).Execute(s)
	require.ErrorIs(t, err, ErrUnmapped)
	assert.Equal(t, before, s.RFLAGS(), "sub")

	_, err = build(t, "inc", Mem(RDI, 0, 32)).Execute(s)
	require.ErrorIs(t, err, ErrUnmapped)
	assert.Equal(t, before, s.RFLAGS(), "inc")

	_, err = build(t, "neg", Mem(RDI, 0, 8)).Execute(s)
	require.ErrorIs(t, err, ErrUnmapped)
	assert.Equal(t, before, s.RFLAGS(), "neg")

	_, err = build(t, "cmp", Mem(RDI, 0, 64), Reg(RBX)).Execute(s)
	require.NoError(t, err)
	assert.True(t, s.Flag(FlagSF), "cmp never stores, so its flags land")
}

func TestMove_Widths(t *testing.T) {
	s, _ := newTestState(t)

	s.Set(RAX, 0xFFFFFFFFFFFFFFFF)
	exec(t, s, "mov", Reg(EAX), Imm(1, 32))
	assert.Equal(t, uint64(1), s.Get(RAX))

	exec(t, s, "mov", Reg(RAX), Imm(-1, 32))
	assert.Equal(t, ^uint64(0), s.Get(RAX), "imm32 sign-extends to 64 bits")

	s.Set(RBX, 0x80)
	exec(t, s, "movzx", Reg(ECX), Reg(BL))
	assert.Equal(t, uint64(0x80), s.Get(RCX))
	exec(t, s, "movsx", Reg(RCX), Reg(BL))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFF80), s.Get(RCX))

	s.Set(RBX, 0x80000000)
	exec(t, s, "movsxd", Reg(RDX), Reg(EBX))
	assert.Equal(t, uint64(0xFFFFFFFF80000000), s.Get(RDX))

	s.Set(RSI, testData)
	exec(t, s, "mov", Mem(RSI, 4, 16), Imm(0x1234, 16))
	v, err := s.Read16(testData + 4)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)
}

func TestLEA_NoMemoryAccess(t *testing.T) {
	s := NewState(nil)
	s.Set(RBX, 0xDEAD0000)
	s.Set(RCX, 2)
	exec(t, s, "lea", Reg(RAX), MemIndex(RBX, RCX, 4, 0x10, 64))
	assert.Equal(t, uint64(0xDEAD0018), s.Get(RAX))

	exec(t, s, "lea", Reg(EAX), Mem(RIP, 0x100, 64))
	assert.Equal(t, uint64(testCode+4+0x100), s.Get(RAX))
}

func TestCMOV(t *testing.T) {
	s := NewState(nil)
	s.Set(RAX, 0xFFFFFFFF00000001)
	s.Set(RBX, 2)

	s.SetFlag(FlagZF, false)
	exec(t, s, "cmove", Reg(RAX), Reg(RBX))
	assert.Equal(t, uint64(0xFFFFFFFF00000001), s.Get(RAX), "false 64-bit cmov is a no-op")

	exec(t, s, "cmove", Reg(EAX), Reg(EBX))
	assert.Equal(t, uint64(1), s.Get(RAX), "false 32-bit cmov still zero-extends")

	s.SetFlag(FlagZF, true)
	exec(t, s, "cmove", Reg(RAX), Reg(RBX))
	assert.Equal(t, uint64(2), s.Get(RAX))
}

func TestSETcc(t *testing.T) {
	s := NewState(nil)
	s.Set(RAX, 0xFFFF)
	s.SetFlag(FlagSF, true)
	s.SetFlag(FlagOF, false)

	exec(t, s, "setl", Reg(AL))
	assert.Equal(t, uint64(0xFF01), s.Get(RAX))
	exec(t, s, "setge", Reg(AH))
	assert.Equal(t, uint64(0x0001), s.Get(RAX))
}

// =============================================================================
// Stack and Control Flow Tests
// =============================================================================

func TestPushPop(t *testing.T) {
	s, _ := newTestState(t)
	s.Set(RBX, 0xCAFEBABE)

	exec(t, s, "push", Reg(RBX))
	assert.Equal(t, uint64(testStack-8), s.Get(RSP))
	exec(t, s, "push", Imm(-2, 8))
	top, err := s.Read64(testStack - 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFE), top)

	exec(t, s, "pop", Reg(RCX))
	exec(t, s, "pop", Reg(RDX))
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFE), s.Get(RCX))
	assert.Equal(t, uint64(0xCAFEBABE), s.Get(RDX))
	assert.Equal(t, uint64(testStack), s.Get(RSP))
}

func TestPushfPopf(t *testing.T) {
	s, _ := newTestState(t)
	s.SetFlag(FlagCF, true)
	s.SetFlag(FlagDF, true)
	exec(t, s, "pushfq")
	img, err := s.Read64(testStack - 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(FlagCF|FlagDF|FlagIF)|2, img)

	require.NoError(t, s.Write64(testStack-8, uint64(FlagZF)))
	exec(t, s, "popf")
	assert.True(t, s.Flag(FlagZF))
	assert.False(t, s.Flag(FlagCF))
	assert.True(t, s.Flag(FlagIF), "popf keeps IF")
}

func TestLEAVE(t *testing.T) {
	s, _ := newTestState(t)
	frame := uint64(testStack - 0x40)
	require.NoError(t, s.Write64(frame, 0x1111))
	s.Set(RBP, frame)
	s.Set(RSP, frame-0x20)

	exec(t, s, "leave")
	assert.Equal(t, uint64(0x1111), s.Get(RBP))
	assert.Equal(t, frame+8, s.Get(RSP))
}

func TestCallRet(t *testing.T) {
	s, _ := newTestState(t)

	call := build(t, "call", Imm(0x1800, 64))
	assert.True(t, call.IsControlFlow())
	assert.Equal(t, []uint64{0x1800}, call.BranchTargets())

	next, err := call.Execute(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1800), next)
	assert.Equal(t, uint64(testStack-8), s.Get(RSP))

	ret := build(t, "ret")
	assert.True(t, ret.IsControlFlow())
	assert.Empty(t, ret.BranchTargets())

	next, err = ret.Execute(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(testCode+4), next)
	assert.Equal(t, uint64(testStack), s.Get(RSP))
}

func TestRET_Imm16(t *testing.T) {
	s, _ := newTestState(t)
	s.Set(RSP, testStack-0x40)
	require.NoError(t, s.Write64(testStack-0x40, 0x4321))

	next := exec(t, s, "ret", Imm(0x10, 16))
	assert.Equal(t, uint64(0x4321), next)
	assert.Equal(t, uint64(testStack-0x40+8+0x10), s.Get(RSP))
}

func TestRET_FaultLeavesRSP(t *testing.T) {
	s := NewState(NewPagedMemory())
	s.Set(RSP, 0x9000)

	_, err := build(t, "ret").Execute(s)
	assert.ErrorIs(t, err, ErrUnmapped)
	assert.Equal(t, uint64(0x9000), s.Get(RSP))
}

func TestIndirectJump(t *testing.T) {
	s, _ := newTestState(t)
	s.Set(RAX, 0x4444)

	jmp := build(t, "jmp", Reg(RAX))
	assert.Empty(t, jmp.BranchTargets())
	next, err := jmp.Execute(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x4444), next)

	require.NoError(t, s.Write64(testData, 0x5555))
	s.Set(RBX, testData)
	next = exec(t, s, "call", Mem(RBX, 0, 64))
	assert.Equal(t, uint64(0x5555), next)
}

func TestJcc(t *testing.T) {
	s := NewState(nil)
	jne := build(t, "jne", Imm(0x2000, 64))
	assert.Equal(t, []uint64{0x2000, testCode + 4}, jne.BranchTargets())

	s.SetFlag(FlagZF, true)
	next, err := jne.Execute(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(testCode+4), next)

	s.SetFlag(FlagZF, false)
	next, err = jne.Execute(s)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2000), next)

	_, err = New("je", 0, nil, Reg(RAX))
	assert.ErrorIs(t, err, ErrOperandKind)
}

func TestJRCXZ(t *testing.T) {
	s := NewState(nil)
	s.Set(RCX, 0x100000000)
	assert.Equal(t, uint64(testCode+4), exec(t, s, "jrcxz", Imm(0x3000, 64)))
	assert.Equal(t, uint64(0x3000), exec(t, s, "jecxz", Imm(0x3000, 64)))
	assert.Equal(t, []uint64{0x3000, testCode + 4}, build(t, "jrcxz", Imm(0x3000, 64)).BranchTargets())
}

func TestConditions(t *testing.T) {
	s := NewState(nil)
	for c := CondO; c <= CondG; c += 2 {
		for _, f := range []uint64{0, uint64(FlagCF | FlagZF), uint64(FlagSF), uint64(FlagOF | FlagPF)} {
			s.SetRFLAGS(f)
			if s.Test(c) == s.Test(c+1) {
				t.Errorf("%s and %s agree for flags 0x%X", c, c+1, f)
			}
		}
	}
}

// =============================================================================
// Flag Instruction Tests
// =============================================================================

func TestLAHF_SAHF_RoundTrip(t *testing.T) {
	s := NewState(nil)
	for b := 0; b < 256; b++ {
		s.Set(AH, uint64(b))
		exec(t, s, "sahf")
		s.Set(AH, 0)
		exec(t, s, "lahf")
		want := uint64(b)&uint64(flagsByteMask) | 2
		if s.Get(AH) != want {
			t.Fatalf("lahf after sahf 0x%02X: got 0x%02X, want 0x%02X", b, s.Get(AH), want)
		}
	}
}

func TestFlagOps(t *testing.T) {
	s := NewState(nil)
	exec(t, s, "stc")
	assert.True(t, s.Flag(FlagCF))
	exec(t, s, "cmc")
	assert.False(t, s.Flag(FlagCF))
	exec(t, s, "std")
	assert.True(t, s.Flag(FlagDF))
	exec(t, s, "cld")
	assert.False(t, s.Flag(FlagDF))
	exec(t, s, "stc")
	exec(t, s, "clc")
	assert.False(t, s.Flag(FlagCF))
}
