// terminal_host.go - memory-mapped console for programs run from the CLI
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/intuitionamiga/amd64core/cpu"
)

// Console register layout, relative to the mapped base.
const (
	consoleData   = 0x0 // write: emit byte; read: next input byte or 0
	consoleStatus = 0x1 // read: 1 when input is waiting
	consoleSize   = 0x2
)

// TerminalHost connects a console device to the host terminal. Input is
// read on a goroutine so guest reads of the data register never block.
type TerminalHost struct {
	out    io.Writer
	in     io.Reader
	input  chan byte
	stopCh chan struct{}
	done   chan struct{}

	stopped      sync.Once
	fd           int
	oldTermState *term.State
}

func NewTerminalHost(in io.Reader, out io.Writer) *TerminalHost {
	return &TerminalHost{
		in:     in,
		out:    out,
		input:  make(chan byte, 256),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Region returns the device as an I/O region at base.
func (h *TerminalHost) Region(base uint64) cpu.IORegion {
	return cpu.IORegion{
		Start: base,
		End:   base + consoleSize - 1,
		OnRead: func(addr uint64, width int) uint64 {
			switch addr - base {
			case consoleData:
				select {
				case b := <-h.input:
					return uint64(b)
				default:
					return 0
				}
			case consoleStatus:
				if len(h.input) > 0 {
					return 1
				}
			}
			return 0
		},
		OnWrite: func(addr uint64, width int, value uint64) {
			if addr-base == consoleData {
				h.out.Write([]byte{byte(value)})
			}
		},
	}
}

// Start begins feeding input. A terminal on stdin is put in raw mode so
// keys arrive unbuffered; call Stop to restore it.
func (h *TerminalHost) Start() {
	if f, ok := h.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		h.fd = int(f.Fd())
		oldState, err := term.MakeRaw(h.fd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		} else {
			h.oldTermState = oldState
		}
	}

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		for {
			n, err := h.in.Read(buf)
			if n > 0 {
				b := buf[0]
				// Raw mode sends CR for Enter and DEL for Backspace.
				switch b {
				case '\r':
					b = '\n'
				case 0x7F:
					b = 0x08
				}
				select {
				case h.input <- b:
				case <-h.stopCh:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
}

// Stop restores the terminal. A reader blocked on stdin is abandoned.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

// Drain waits for the input goroutine to finish after in reached EOF.
func (h *TerminalHost) Drain() {
	<-h.done
}
