// decoder.go - machine code to catalog instruction units via x86asm
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

/*
Decode turns the bytes at one program counter into a cpu.Instruction.

golang.org/x/arch/x86/x86asm does the prefix, opcode and ModRM work. Its
result is mapped onto the catalog:

	x86asm.Reg   general registers to cpu.Register views, X0-X15 to XMM
	x86asm.Mem   cpu.MemoryOperand, width taken from Inst.MemBytes
	x86asm.Imm   cpu.ImmediateOperand at the instruction's data size
	x86asm.Rel   an absolute target, next instruction + displacement

The CET forms in the F3 0F 1E hint space (ENDBR32/64, RDSSPD/Q) are matched
on the raw bytes first, since x86asm reports them as hint NOPs.

String instructions drop the RSI/RDI operands x86asm spells out; the units
read those registers themselves. A REP, REPE or REPNE prefix becomes part of
the mnemonic ("rep stosb", "repne scasb"). A LOCK prefix on an instruction
that cannot take one is a decode error; on any other it changes nothing.
*/

package frontend

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/intuitionamiga/amd64core/cpu"
)

// MaxInstructionLen is the architectural limit on one encoding.
const MaxInstructionLen = 15

// opAliases renames x86asm ops whose spelling differs from the catalog.
// MOVSD and CMPSD are shared with the string forms, told apart by operands.
var opAliases = map[x86asm.Op]string{
	x86asm.MOVSD_XMM: "movsd",
	x86asm.CMPSD_XMM: "cmpsd",
}

var stringOps = map[x86asm.Op]bool{
	x86asm.MOVSB: true, x86asm.MOVSW: true, x86asm.MOVSD: true, x86asm.MOVSQ: true,
	x86asm.STOSB: true, x86asm.STOSW: true, x86asm.STOSD: true, x86asm.STOSQ: true,
	x86asm.LODSB: true, x86asm.LODSW: true, x86asm.LODSD: true, x86asm.LODSQ: true,
	x86asm.SCASB: true, x86asm.SCASW: true, x86asm.SCASD: true, x86asm.SCASQ: true,
	x86asm.CMPSB: true, x86asm.CMPSW: true, x86asm.CMPSD: true, x86asm.CMPSQ: true,
}

// Decode decodes one instruction at pc from code.
func Decode(code []byte, pc uint64) (cpu.Instruction, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("%w: empty buffer at 0x%016x", ErrDecode, pc)
	}
	if u, ok, err := decodeHint(code, pc); ok {
		return u, err
	}

	inst, err := x86asm.Decode(code, 64)
	if err != nil {
		return nil, fmt.Errorf("%w at 0x%016x: %v", ErrDecode, pc, err)
	}
	raw := append([]byte(nil), code[:inst.Len]...)

	for _, p := range inst.Prefix {
		if p == 0 {
			break
		}
		if p&x86asm.PrefixInvalid != 0 {
			return nil, fmt.Errorf("%w at 0x%016x: %s: lock prefix not allowed", ErrDecode, pc, inst.String())
		}
	}

	name, ok := opAliases[inst.Op]
	if !ok {
		name = strings.ToLower(inst.Op.String())
	}

	ops := make([]cpu.Operand, 0, 4)
	if stringOps[inst.Op] {
		if !flatString(inst) {
			return nil, &UnsupportedError{PC: pc, Op: name, Len: inst.Len}
		}
		if rep := repPrefix(inst); rep != "" {
			name = rep + " " + name
		}
	} else {
		for _, a := range inst.Args {
			if a == nil {
				break
			}
			op, err := convertArg(a, inst, pc)
			if err != nil {
				return nil, &UnsupportedError{PC: pc, Op: name, Len: inst.Len}
			}
			// Byte-sized destinations carry an imm8 under a wider data size.
			if imm, ok := op.(cpu.ImmediateOperand); ok && len(ops) > 0 && ops[0].Bits() < imm.Width {
				op = cpu.Imm(imm.Value, ops[0].Bits())
			}
			ops = append(ops, op)
		}
	}

	u, err := cpu.New(name, pc, raw, ops...)
	if err != nil {
		if errors.Is(err, cpu.ErrUnknownMnemonic) {
			return nil, &UnsupportedError{PC: pc, Op: name, Len: inst.Len}
		}
		return nil, fmt.Errorf("%w at 0x%016x: %s: %v", ErrDecode, pc, inst.String(), err)
	}
	return u, nil
}

// flatString reports whether a string instruction addresses memory the way
// the units do: 64-bit RSI/RDI with no FS or GS override.
func flatString(inst x86asm.Inst) bool {
	if inst.AddrSize != 64 {
		return false
	}
	for _, a := range inst.Args {
		if m, ok := a.(x86asm.Mem); ok && (m.Segment == x86asm.FS || m.Segment == x86asm.GS) {
			return false
		}
	}
	return true
}

// repPrefix names the repeat prefix on a string instruction. F3 and F2 both
// mean plain REP on MOVS STOS LODS.
func repPrefix(inst x86asm.Inst) string {
	compares := false
	switch inst.Op {
	case x86asm.SCASB, x86asm.SCASW, x86asm.SCASD, x86asm.SCASQ,
		x86asm.CMPSB, x86asm.CMPSW, x86asm.CMPSD, x86asm.CMPSQ:
		compares = true
	}
	rep := ""
	for _, p := range inst.Prefix {
		if p == 0 {
			break
		}
		if p&x86asm.PrefixIgnored != 0 {
			continue
		}
		switch p &^ (x86asm.PrefixImplicit | x86asm.PrefixInvalid) {
		case x86asm.PrefixREP:
			rep = "rep"
			if compares {
				rep = "repe"
			}
		case x86asm.PrefixREPN:
			rep = "rep"
			if compares {
				rep = "repne"
			}
		}
	}
	return rep
}

var errArg = errors.New("unsupported operand")

func convertArg(a x86asm.Arg, inst x86asm.Inst, pc uint64) (cpu.Operand, error) {
	switch a := a.(type) {
	case x86asm.Reg:
		if a >= x86asm.X0 && a <= x86asm.X15 {
			return cpu.XMM(int(a - x86asm.X0)), nil
		}
		r, ok := convertReg(a)
		if !ok {
			return nil, errArg
		}
		return cpu.Reg(r), nil

	case x86asm.Mem:
		return convertMem(a, inst)

	case x86asm.Imm:
		bits := inst.DataSize
		if bits == 0 {
			bits = 64
		}
		return cpu.Imm(int64(a), bits), nil

	case x86asm.Rel:
		target := pc + uint64(inst.Len) + uint64(int64(a))
		return cpu.Imm(int64(target), 64), nil
	}
	return nil, errArg
}

// convertReg maps an x86asm general register onto the matching view.
func convertReg(r x86asm.Reg) (cpu.Register, bool) {
	switch {
	case r >= x86asm.AL && r <= x86asm.BL:
		return cpu.AL + cpu.Register(r-x86asm.AL), true
	case r >= x86asm.AH && r <= x86asm.BH:
		return cpu.AH + cpu.Register(r-x86asm.AH), true
	case r >= x86asm.SPB && r <= x86asm.DIB:
		return cpu.SPL + cpu.Register(r-x86asm.SPB), true
	case r >= x86asm.R8B && r <= x86asm.R15B:
		return cpu.R8B + cpu.Register(r-x86asm.R8B), true
	case r >= x86asm.AX && r <= x86asm.R15W:
		return cpu.AX + cpu.Register(r-x86asm.AX), true
	case r >= x86asm.EAX && r <= x86asm.R15L:
		return cpu.EAX + cpu.Register(r-x86asm.EAX), true
	case r >= x86asm.RAX && r <= x86asm.R15:
		return cpu.RAX + cpu.Register(r-x86asm.RAX), true
	case r == x86asm.RIP || r == x86asm.EIP:
		return cpu.RIP, true
	}
	return cpu.NoRegister, false
}

func convertMem(m x86asm.Mem, inst x86asm.Inst) (cpu.Operand, error) {
	op := cpu.MemoryOperand{
		Base:       cpu.NoRegister,
		Index:      cpu.NoRegister,
		Scale:      m.Scale,
		Disp:       m.Disp,
		Width:      inst.MemBytes * 8,
		AddrSize32: inst.AddrSize == 32,
	}
	if op.Width == 0 {
		op.Width = inst.DataSize
	}
	if op.Scale == 0 {
		op.Scale = 1
	}
	switch m.Segment {
	case x86asm.FS:
		op.Segment = cpu.SegFS
	case x86asm.GS:
		op.Segment = cpu.SegGS
	}
	if m.Base != 0 {
		r, ok := convertReg(m.Base)
		if !ok {
			return nil, errArg
		}
		op.Base = r
	}
	if m.Index != 0 {
		r, ok := convertReg(m.Index)
		if !ok {
			return nil, errArg
		}
		op.Index = r
	}
	return op, nil
}

// decodeHint recognizes F3 [REX] 0F 1E /r. ok is false when the bytes are
// something else and x86asm should decode them.
func decodeHint(code []byte, pc uint64) (cpu.Instruction, bool, error) {
	if code[0] != 0xF3 {
		return nil, false, nil
	}
	i := 1
	var rex byte
	if i < len(code) && code[i]&0xF0 == 0x40 {
		rex = code[i]
		i++
	}
	if i+2 >= len(code) {
		return nil, false, nil
	}
	if code[i] != 0x0F || code[i+1] != 0x1E {
		return nil, false, nil
	}
	modrm := code[i+2]
	raw := append([]byte(nil), code[:i+3]...)

	var name string
	var ops []cpu.Operand
	switch {
	case modrm == 0xFA:
		name = "endbr64"
	case modrm == 0xFB:
		name = "endbr32"
	case modrm&0xF8 == 0xC8:
		reg := cpu.Register(modrm&7) | cpu.Register(rex&1)<<3
		if rex&0x08 != 0 {
			name = "rdsspq"
			ops = []cpu.Operand{cpu.Reg(cpu.RAX + reg)}
		} else {
			name = "rdsspd"
			ops = []cpu.Operand{cpu.Reg(cpu.EAX + reg)}
		}
	default:
		return nil, false, nil
	}
	u, err := cpu.New(name, pc, raw, ops...)
	return u, true, err
}
