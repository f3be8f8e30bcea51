// memory_bus.go - Memory interface and sparse paged memory
//
// (c) 2024-2026 Zayn Otley - GPLv3 or later

/*
Memory is the width-tagged access interface the core consumes. Every access
names its width; no operand ever reads or writes bytes it did not ask for.
Implementations signal bad accesses with *MemoryFault.

PagedMemory is the bundled implementation:

	Sparse 4 KiB pages allocated on Map, so a 64-bit address space costs
	only what is mapped.
	Memory-mapped I/O regions with onRead/onWrite callbacks, looked up by
	page key before touching backing storage.
	A sync.RWMutex around the page table so several States can share one
	memory.
*/

package cpu

import (
	"encoding/binary"
	"sync"

	"github.com/intuitionamiga/amd64core/vec"
)

const (
	PageSize  = 0x1000
	PageShift = 12
	pageMask  = ^uint64(PageSize - 1)
)

type Memory interface {
	Read8(addr uint64) (uint8, error)
	Read16(addr uint64) (uint16, error)
	Read32(addr uint64) (uint32, error)
	Read64(addr uint64) (uint64, error)
	Read128(addr uint64) (vec.Vector128, error)
	Write8(addr uint64, v uint8) error
	Write16(addr uint64, v uint16) error
	Write32(addr uint64, v uint32) error
	Write64(addr uint64, v uint64) error
	Write128(addr uint64, v vec.Vector128) error
}

// IORegion intercepts accesses to [Start, End]. Callbacks see the access
// width in bytes and the zero-extended value; onRead may be nil for
// write-only registers.
type IORegion struct {
	Start   uint64
	End     uint64
	OnRead  func(addr uint64, width int) uint64
	OnWrite func(addr uint64, width int, value uint64)
}

type PagedMemory struct {
	mutex sync.RWMutex
	pages map[uint64]*[PageSize]byte
	io    map[uint64][]IORegion
}

func NewPagedMemory() *PagedMemory {
	return &PagedMemory{
		pages: make(map[uint64]*[PageSize]byte),
		io:    make(map[uint64][]IORegion),
	}
}

// Map backs [addr, addr+size) with zeroed pages. Pages already mapped are kept.
func (m *PagedMemory) Map(addr, size uint64) {
	if size == 0 {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	first := addr & pageMask
	last := (addr + size - 1) & pageMask
	for page := first; ; page += PageSize {
		if _, ok := m.pages[page]; !ok {
			m.pages[page] = new([PageSize]byte)
		}
		if page == last {
			break
		}
	}
}

// Unmap drops every page touching [addr, addr+size).
func (m *PagedMemory) Unmap(addr, size uint64) {
	if size == 0 {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	first := addr & pageMask
	last := (addr + size - 1) & pageMask
	for page := first; ; page += PageSize {
		delete(m.pages, page)
		if page == last {
			break
		}
	}
}

// Mapped reports whether every byte of [addr, addr+size) is backed.
func (m *PagedMemory) Mapped(addr, size uint64) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for i := uint64(0); i < size; i++ {
		if _, ok := m.pages[(addr+i)&pageMask]; !ok {
			return false
		}
	}
	return true
}

// MapIO registers an I/O region. The region must lie in mapped pages for
// writes to be mirrored into backing storage; unmapped regions are pure I/O.
func (m *PagedMemory) MapIO(region IORegion) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	first := region.Start & pageMask
	last := region.End & pageMask
	for page := first; ; page += PageSize {
		m.io[page] = append(m.io[page], region)
		if page == last {
			break
		}
	}
}

// Load copies data into memory, mapping pages as needed.
func (m *PagedMemory) Load(addr uint64, data []byte) {
	m.Map(addr, uint64(len(data)))
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for i, b := range data {
		a := addr + uint64(i)
		m.pages[a&pageMask][a&(PageSize-1)] = b
	}
}

// Dump copies size bytes out of memory.
func (m *PagedMemory) Dump(addr, size uint64) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make([]byte, size)
	if err := m.readBytes(addr, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *PagedMemory) ioRegion(addr uint64) (IORegion, bool) {
	for _, r := range m.io[addr&pageMask] {
		if addr >= r.Start && addr <= r.End {
			return r, true
		}
	}
	return IORegion{}, false
}

// readBytes fills buf from backing pages. The caller holds the lock.
func (m *PagedMemory) readBytes(addr uint64, buf []byte) error {
	for i := range buf {
		a := addr + uint64(i)
		p, ok := m.pages[a&pageMask]
		if !ok {
			return &MemoryFault{Addr: a, Width: len(buf), Kind: FaultUnmapped}
		}
		buf[i] = p[a&(PageSize-1)]
	}
	return nil
}

// writeBytes checks every page before storing anything so a faulting write
// leaves memory untouched. The caller holds the lock.
func (m *PagedMemory) writeBytes(addr uint64, buf []byte) error {
	for i := range buf {
		a := addr + uint64(i)
		if _, ok := m.pages[a&pageMask]; !ok {
			return &MemoryFault{Addr: a, Width: len(buf), Write: true, Kind: FaultUnmapped}
		}
	}
	for i, b := range buf {
		a := addr + uint64(i)
		m.pages[a&pageMask][a&(PageSize-1)] = b
	}
	return nil
}

func (m *PagedMemory) read(addr uint64, width int) (uint64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if r, ok := m.ioRegion(addr); ok && r.OnRead != nil {
		return r.OnRead(addr, width), nil
	}
	var buf [8]byte
	if err := m.readBytes(addr, buf[:width]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (m *PagedMemory) write(addr uint64, width int, v uint64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if r, ok := m.ioRegion(addr); ok && r.OnWrite != nil {
		r.OnWrite(addr, width, v)
		if _, mapped := m.pages[addr&pageMask]; !mapped {
			return nil
		}
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return m.writeBytes(addr, buf[:width])
}

func (m *PagedMemory) Read8(addr uint64) (uint8, error) {
	v, err := m.read(addr, 1)
	return uint8(v), err
}

func (m *PagedMemory) Read16(addr uint64) (uint16, error) {
	v, err := m.read(addr, 2)
	return uint16(v), err
}

func (m *PagedMemory) Read32(addr uint64) (uint32, error) {
	v, err := m.read(addr, 4)
	return uint32(v), err
}

func (m *PagedMemory) Read64(addr uint64) (uint64, error) {
	return m.read(addr, 8)
}

func (m *PagedMemory) Read128(addr uint64) (vec.Vector128, error) {
	var v vec.Vector128
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	err := m.readBytes(addr, v[:])
	return v, err
}

func (m *PagedMemory) Write8(addr uint64, v uint8) error   { return m.write(addr, 1, uint64(v)) }
func (m *PagedMemory) Write16(addr uint64, v uint16) error { return m.write(addr, 2, uint64(v)) }
func (m *PagedMemory) Write32(addr uint64, v uint32) error { return m.write(addr, 4, uint64(v)) }
func (m *PagedMemory) Write64(addr uint64, v uint64) error { return m.write(addr, 8, v) }

func (m *PagedMemory) Write128(addr uint64, v vec.Vector128) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.writeBytes(addr, v[:])
}

// Reset drops every page and I/O region.
func (m *PagedMemory) Reset() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.pages = make(map[uint64]*[PageSize]byte)
	m.io = make(map[uint64][]IORegion)
}

// nullMemory backs a State with no memory attached.
type nullMemory struct{}

func fault(addr uint64, width int, write bool) error {
	return &MemoryFault{Addr: addr, Width: width, Write: write, Kind: FaultUnmapped}
}

func (nullMemory) Read8(a uint64) (uint8, error)   { return 0, fault(a, 1, false) }
func (nullMemory) Read16(a uint64) (uint16, error) { return 0, fault(a, 2, false) }
func (nullMemory) Read32(a uint64) (uint32, error) { return 0, fault(a, 4, false) }
func (nullMemory) Read64(a uint64) (uint64, error) { return 0, fault(a, 8, false) }
func (nullMemory) Read128(a uint64) (vec.Vector128, error) {
	return vec.Vector128{}, fault(a, 16, false)
}
func (nullMemory) Write8(a uint64, _ uint8) error           { return fault(a, 1, true) }
func (nullMemory) Write16(a uint64, _ uint16) error         { return fault(a, 2, true) }
func (nullMemory) Write32(a uint64, _ uint32) error         { return fault(a, 4, true) }
func (nullMemory) Write64(a uint64, _ uint64) error         { return fault(a, 8, true) }
func (nullMemory) Write128(a uint64, _ vec.Vector128) error { return fault(a, 16, true) }
