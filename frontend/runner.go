// runner.go - fetch, decode and execute loop over the instruction catalog
//
// Owns a machine state, a paged memory and a decoded-instruction cache keyed
// by program counter. Code is loaded at LoadAddr with a stack below StackTop;
// a sentinel return address on the stack stops the run when the program
// returns from its entry point.
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/log"
)

const (
	defaultLoadAddr  = 0x00400000
	defaultStackTop  = 0x7FFF0000
	defaultStackSize = 0x00010000
	defaultMaxSteps  = 1_000_000

	// HaltAddress is pushed as the return address of the entry point.
	// Transferring control to it ends the run.
	HaltAddress = 0xFFFFFFFFFFFFF000

	// How often Run looks at its context.
	ctxCheckMask = 0xFFF
)

// Config holds the memory layout and limits of a Runner.
type Config struct {
	LoadAddr  uint64
	StackTop  uint64
	StackSize uint64
	MaxSteps  uint64 // 0 runs until halt

	// CheckAlignment enables AC-style alignment faults (see
	// cpu.State.AlignmentCheck).
	CheckAlignment bool

	// StrictDecode stops the run at an instruction outside the catalog.
	// Otherwise it runs as a stub that has no effect.
	StrictDecode bool
}

func DefaultConfig() Config {
	return Config{
		LoadAddr:  defaultLoadAddr,
		StackTop:  defaultStackTop,
		StackSize: defaultStackSize,
		MaxSteps:  defaultMaxSteps,
	}
}

// Runner drives one cpu.State through decoded code.
type Runner struct {
	state *cpu.State
	mem   *cpu.PagedMemory
	cfg   Config

	code   []byte
	cache  map[uint64]cpu.Instruction
	halted atomic.Bool

	// Counters, reset by Load and Reset
	InstructionCount uint64
	StubCount        uint64
	CacheMisses      uint64

	PerfEnabled    bool
	perfStartTime  time.Time
	lastPerfReport time.Time

	execMu     sync.Mutex
	execDone   chan struct{}
	execActive bool
	execErr    error
}

func NewRunner(cfg Config) *Runner {
	def := DefaultConfig()
	if cfg.LoadAddr == 0 {
		cfg.LoadAddr = def.LoadAddr
	}
	if cfg.StackTop == 0 {
		cfg.StackTop = def.StackTop
	}
	if cfg.StackSize == 0 {
		cfg.StackSize = def.StackSize
	}
	mem := cpu.NewPagedMemory()
	r := &Runner{
		state: cpu.NewState(mem),
		mem:   mem,
		cfg:   cfg,
		cache: make(map[uint64]cpu.Instruction),
	}
	r.state.AlignmentCheck = cfg.CheckAlignment
	r.state.Clock = func() uint64 { return r.InstructionCount }
	r.halted.Store(true)
	return r
}

func (r *Runner) State() *cpu.State        { return r.state }
func (r *Runner) Memory() *cpu.PagedMemory { return r.mem }
func (r *Runner) Config() Config           { return r.cfg }
func (r *Runner) Halted() bool             { return r.halted.Load() }

// Cached reports whether the instruction at pc has been decoded.
func (r *Runner) Cached(pc uint64) bool {
	_, ok := r.cache[pc]
	return ok
}

// Load places code at LoadAddr and resets the machine to run it.
func (r *Runner) Load(code []byte) error {
	if len(code) == 0 {
		return ErrNoCode
	}
	if r.cfg.LoadAddr+uint64(len(code)) < r.cfg.LoadAddr {
		return fmt.Errorf("program too large: %d bytes at 0x%x", len(code), r.cfg.LoadAddr)
	}
	r.code = append(r.code[:0], code...)
	return r.Reset()
}

// LoadFile loads a flat binary image.
func (r *Runner) LoadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return r.Load(data)
}

// Reset clears registers, memory and counters and reloads the last image.
func (r *Runner) Reset() error {
	if len(r.code) == 0 {
		return ErrNoCode
	}
	r.mem.Reset()
	r.mem.Load(r.cfg.LoadAddr, r.code)
	r.mem.Map(r.cfg.StackTop-r.cfg.StackSize, r.cfg.StackSize)

	r.state.Reset()
	r.state.Set(cpu.RSP, r.cfg.StackTop)
	if err := r.mem.Write64(r.cfg.StackTop-8, HaltAddress); err != nil {
		return err
	}
	r.state.Set(cpu.RSP, r.cfg.StackTop-8)
	r.state.SetRIP(r.cfg.LoadAddr)

	r.Invalidate()
	r.InstructionCount, r.StubCount, r.CacheMisses = 0, 0, 0
	r.halted.Store(false)
	log.Debug(log.Frontend, "program loaded", "addr", fmt.Sprintf("0x%x", r.cfg.LoadAddr), "size", len(r.code))
	return nil
}

// Invalidate drops every cached instruction. Call it after writing to code.
func (r *Runner) Invalidate() {
	clear(r.cache)
}

// Decode returns the cached instruction at pc, decoding it on a miss.
//
// Bytes short of a full instruction because fetch hit a fault report that
// fault. An instruction outside the catalog decodes to a cpu.Unsupported
// stub unless StrictDecode is set.
func (r *Runner) Decode(pc uint64) (cpu.Instruction, error) {
	if u, ok := r.cache[pc]; ok {
		return u, nil
	}
	buf, ferr := r.fetch(pc)
	if len(buf) == 0 {
		return nil, &ExecError{PC: pc, Inst: "fetch", Err: ferr}
	}
	u, err := Decode(buf, pc)
	if err != nil {
		if ferr != nil {
			return nil, &ExecError{PC: pc, Inst: "fetch", Err: ferr}
		}
		var ue *UnsupportedError
		if r.cfg.StrictDecode || !errors.As(err, &ue) {
			return nil, err
		}
		u = cpu.NewUnsupported(ue.Op, pc, append([]byte(nil), buf[:ue.Len]...))
		log.Debug(log.Frontend, "unsupported instruction, running as stub", "pc", fmt.Sprintf("0x%016x", pc), "op", ue.Op)
	}
	r.CacheMisses++
	r.cache[pc] = u
	log.Debug(log.Frontend, "decoded", "pc", fmt.Sprintf("0x%016x", pc), "inst", cpu.FormatDisassembly(u))
	return u, nil
}

// fetch reads up to MaxInstructionLen bytes, stopping at the first fault.
func (r *Runner) fetch(pc uint64) ([]byte, error) {
	buf := make([]byte, 0, MaxInstructionLen)
	for i := uint64(0); i < MaxInstructionLen; i++ {
		b, err := r.mem.Read8(pc + i)
		if err != nil {
			return buf, err
		}
		buf = append(buf, b)
	}
	return buf, nil
}

// Step executes one instruction.
func (r *Runner) Step() error {
	if r.halted.Load() {
		return ErrHalted
	}
	pc := r.state.RIP()
	if pc == HaltAddress {
		r.halt()
		return ErrHalted
	}

	u, err := r.Decode(pc)
	if err != nil {
		r.halted.Store(true)
		log.Error(log.Frontend, "decode failed", "pc", fmt.Sprintf("0x%016x", pc), "err", err)
		return err
	}

	next, err := u.Execute(r.state)
	if err != nil {
		r.halted.Store(true)
		xe := &ExecError{PC: pc, Inst: cpu.FormatDisassembly(u), Err: err}
		log.Error(log.Frontend, "execution failed", "err", xe)
		return xe
	}
	log.Trace(log.Frontend, "step", "pc", fmt.Sprintf("0x%016x", pc), "inst", cpu.FormatDisassembly(u))

	r.InstructionCount++
	if u.Capability() == cpu.Stub {
		r.StubCount++
	}
	r.state.SetRIP(next)
	if next == HaltAddress {
		r.halt()
	}
	return nil
}

func (r *Runner) halt() {
	r.halted.Store(true)
	log.Info(log.Frontend, "halted", "instructions", r.InstructionCount, "stubs", r.StubCount)
}

// Run steps until the program halts, limit instructions have executed or ctx
// is done. limit 0 falls back to Config.MaxSteps. It returns the number of
// instructions executed by this call.
func (r *Runner) Run(ctx context.Context, limit uint64) (uint64, error) {
	if limit == 0 {
		limit = r.cfg.MaxSteps
	}
	if r.PerfEnabled {
		r.perfStartTime = time.Now()
		r.lastPerfReport = r.perfStartTime
	}

	var n uint64
	for !r.halted.Load() {
		if limit != 0 && n >= limit {
			return n, ErrStepLimit
		}
		if n&ctxCheckMask == 0 {
			if err := ctx.Err(); err != nil {
				return n, err
			}
		}
		if err := r.Step(); err != nil {
			if errors.Is(err, ErrHalted) {
				break
			}
			return n, err
		}
		n++
		if r.PerfEnabled && r.InstructionCount&0xFFFFFF == 0 {
			r.reportPerf()
		}
	}
	return n, nil
}

func (r *Runner) reportPerf() {
	now := time.Now()
	if now.Sub(r.lastPerfReport) < time.Second {
		return
	}
	elapsed := now.Sub(r.perfStartTime).Seconds()
	mips := float64(r.InstructionCount) / elapsed / 1_000_000
	log.Info(log.Frontend, "performance", "mips", fmt.Sprintf("%.2f", mips),
		"instructions", r.InstructionCount, "elapsed", fmt.Sprintf("%.1fs", elapsed))
	r.lastPerfReport = now
}

// StartExecution runs the program on a goroutine until it halts or Stop is
// called. Wait returns the result.
func (r *Runner) StartExecution(ctx context.Context) {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	if r.execActive {
		return
	}
	r.execActive = true
	r.execErr = nil
	r.execDone = make(chan struct{})
	go func() {
		_, err := r.Run(ctx, 0)
		r.execMu.Lock()
		r.execErr = err
		r.execActive = false
		close(r.execDone)
		r.execMu.Unlock()
	}()
}

func (r *Runner) IsRunning() bool {
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.execActive
}

// Wait blocks until a run started by StartExecution ends.
func (r *Runner) Wait() error {
	r.execMu.Lock()
	done := r.execDone
	r.execMu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	r.execMu.Lock()
	defer r.execMu.Unlock()
	return r.execErr
}

// Stop halts the runner and waits for a background run to finish.
func (r *Runner) Stop() {
	r.execMu.Lock()
	r.halted.Store(true)
	if !r.execActive {
		r.execMu.Unlock()
		return
	}
	done := r.execDone
	r.execMu.Unlock()
	<-done
}
