// helpers_test.go - shared fixtures for the instruction tests
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package cpu

import (
	"bytes"
	"testing"

	"github.com/intuitionamiga/amd64core/log"
	"github.com/stretchr/testify/require"
)

const (
	testCode  = 0x1000
	testData  = 0x8000
	testStack = 0x20000
)

// newTestState maps a code page, a data page and a stack page ending at
// testStack, with RSP at its top.
func newTestState(t *testing.T) (*State, *PagedMemory) {
	t.Helper()
	mem := NewPagedMemory()
	mem.Map(testCode, PageSize)
	mem.Map(testData, PageSize)
	mem.Map(testStack-PageSize, PageSize)
	s := NewState(mem)
	s.Set(RSP, testStack)
	return s, mem
}

// build constructs a unit at testCode with a 4-byte placeholder encoding.
func build(t *testing.T, m string, ops ...Operand) Instruction {
	t.Helper()
	u, err := New(m, testCode, []byte{0x90, 0x90, 0x90, 0x90}, ops...)
	require.NoError(t, err, m)
	return u
}

// exec builds and runs one unit, failing the test on error, and returns the
// next program counter.
func exec(t *testing.T, s *State, m string, ops ...Operand) uint64 {
	t.Helper()
	next, err := build(t, m, ops...).Execute(s)
	require.NoError(t, err, m)
	return next
}

// captureLog redirects the root logger into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Root()
	log.SetDefault(log.NewLogger(log.NewTerminalHandler(&buf, log.LevelTrace)))
	t.Cleanup(func() { log.SetDefault(prev) })
	return &buf
}
