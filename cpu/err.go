// err.go - error values for the AMD64 semantics core
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"errors"
	"fmt"
)

var (
	// Memory errors
	ErrUnmapped  = errors.New("unmapped address")
	ErrUnaligned = errors.New("unaligned access")

	// Operand binding errors
	ErrNotWritable  = errors.New("operand not writable")
	ErrOperandKind  = errors.New("operand cannot supply this width")
	ErrOperandCount = errors.New("wrong operand count")

	// Catalog errors
	ErrUnknownMnemonic = errors.New("mnemonic not in catalog")

	// Arithmetic faults
	ErrDivide = errors.New("divide error")
)

// FaultKind distinguishes the memory faults the core propagates to its driver.
type FaultKind uint8

const (
	FaultUnmapped FaultKind = iota
	FaultUnaligned
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnmapped:
		return "unmapped"
	case FaultUnaligned:
		return "unaligned"
	}
	return fmt.Sprintf("FaultKind(%d)", uint8(k))
}

// MemoryFault is returned by Memory implementations. The core never recovers
// from one; it is handed up to the driver unchanged.
type MemoryFault struct {
	Addr  uint64
	Width int // bytes
	Write bool
	Kind  FaultKind
}

func (f *MemoryFault) Error() string {
	op := "read"
	if f.Write {
		op = "write"
	}
	return fmt.Sprintf("%s fault: %s of %d bytes at 0x%016x", f.Kind, op, f.Width, f.Addr)
}

func (f *MemoryFault) Unwrap() error {
	switch f.Kind {
	case FaultUnaligned:
		return ErrUnaligned
	}
	return ErrUnmapped
}

// DivideError is the #DE fault of DIV and IDIV: a zero divisor, or a quotient
// that does not fit the destination. Like a MemoryFault it is handed up to
// the driver unchanged, and the faulting unit has written nothing.
type DivideError struct {
	Divisor  uint64
	Overflow bool // quotient out of range rather than a zero divisor
}

func (e *DivideError) Error() string {
	if e.Overflow {
		return fmt.Sprintf("divide error: quotient overflow dividing by 0x%x", e.Divisor)
	}
	return "divide error: division by zero"
}

func (e *DivideError) Unwrap() error {
	return ErrDivide
}

// OperandError reports a descriptor that cannot be bound for the requested use.
type OperandError struct {
	Operand Operand
	Err     error
}

func (e OperandError) Error() string {
	return fmt.Sprintf("operand %v: %v", e.Operand, e.Err)
}

func (e OperandError) Unwrap() error {
	return e.Err
}
