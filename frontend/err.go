// err.go - decode and execution errors raised by the front end
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package frontend

import (
	"errors"
	"fmt"
)

var (
	ErrDecode    = errors.New("cannot decode instruction")
	ErrHalted    = errors.New("runner halted")
	ErrStepLimit = errors.New("step limit reached")
	ErrNoCode    = errors.New("no code loaded")
)

// UnsupportedError is a decoded instruction with no catalog entry.
type UnsupportedError struct {
	PC  uint64
	Op  string
	Len int // encoded length, so callers can skip the instruction
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported instruction %s at 0x%016x", e.Op, e.PC)
}

// ExecError wraps a failure raised while executing the instruction at PC.
// Memory faults from the core come through unchanged in Err.
type ExecError struct {
	PC   uint64
	Inst string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("0x%016x %s: %v", e.PC, e.Inst, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
