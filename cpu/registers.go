// registers.go - AMD64 general purpose register views
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"strconv"
	"strings"
)

// Register names one view of a general purpose register slot. The first
// sixteen values of every width group follow the hardware encoding order
// (rax, rcx, rdx, rbx, rsp, rbp, rsi, rdi, r8..r15).
type Register uint8

const (
	RAX Register = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	EAX
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
	R8D
	R9D
	R10D
	R11D
	R12D
	R13D
	R14D
	R15D

	AX
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	R8W
	R9W
	R10W
	R11W
	R12W
	R13W
	R14W
	R15W

	AL
	CL
	DL
	BL
	SPL
	BPL
	SIL
	DIL
	R8B
	R9B
	R10B
	R11B
	R12B
	R13B
	R14B
	R15B

	AH
	CH
	DH
	BH

	RIP

	numRegisters
)

// NoRegister marks an absent base or index in a memory operand.
const NoRegister Register = 0xFF

// regView is the (slot, offset, width) projection a Register name stands for.
// Offsets and widths are in bytes.
type regView struct {
	slot   uint8
	offset uint8
	width  uint8
	name   string
}

const ripSlot = 16

var regViews [numRegisters]regView

var regByName = map[string]Register{}

func init() {
	names64 := [16]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi"}
	names32 := [16]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi"}
	names16 := [16]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}
	names8 := [16]string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil"}
	for i := 8; i < 16; i++ {
		n := "r" + strconv.Itoa(i)
		names64[i] = n
		names32[i] = n + "d"
		names16[i] = n + "w"
		names8[i] = n + "b"
	}
	for i := 0; i < 16; i++ {
		regViews[RAX+Register(i)] = regView{uint8(i), 0, 8, names64[i]}
		regViews[EAX+Register(i)] = regView{uint8(i), 0, 4, names32[i]}
		regViews[AX+Register(i)] = regView{uint8(i), 0, 2, names16[i]}
		regViews[AL+Register(i)] = regView{uint8(i), 0, 1, names8[i]}
	}
	for i, n := range []string{"ah", "ch", "dh", "bh"} {
		regViews[AH+Register(i)] = regView{uint8(i), 1, 1, n}
	}
	regViews[RIP] = regView{ripSlot, 0, 8, "rip"}

	for r := Register(0); r < numRegisters; r++ {
		regByName[regViews[r].name] = r
	}
}

// Width returns the view width in bits.
func (r Register) Width() int {
	if r >= numRegisters {
		return 0
	}
	return int(regViews[r].width) * 8
}

// Slot returns the index of the 64-bit register the view projects onto.
func (r Register) Slot() int {
	return int(regViews[r].slot)
}

// Full returns the 64-bit view sharing r's slot.
func (r Register) Full() Register {
	if r == RIP {
		return RIP
	}
	return RAX + Register(regViews[r].slot)
}

// Sized returns the view of r's slot with the given width in bits. Asking for
// 8 bits always yields the low byte.
func (r Register) Sized(bits int) Register {
	if r == RIP {
		return NoRegister
	}
	slot := Register(regViews[r].slot)
	switch bits {
	case 64:
		return RAX + slot
	case 32:
		return EAX + slot
	case 16:
		return AX + slot
	case 8:
		return AL + slot
	}
	return NoRegister
}

func (r Register) String() string {
	if r >= numRegisters {
		return "?"
	}
	return regViews[r].name
}

// LookupRegister resolves a case-insensitive register name.
func LookupRegister(name string) (Register, bool) {
	r, ok := regByName[strings.ToLower(name)]
	return r, ok
}

// RegisterNames lists every view name in declaration order.
func RegisterNames() []string {
	names := make([]string, 0, numRegisters)
	for r := Register(0); r < numRegisters; r++ {
		names = append(names, regViews[r].name)
	}
	return names
}
