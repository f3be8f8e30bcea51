package cpu

import (
	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/intuitionamiga/amd64core/vec"
)

var _ = Describe("Memory access", func() {
	var (
		mockCtrl *gomock.Controller
		mem      *MockMemory
		s        *State
	)

	run := func(m string, ops ...Operand) (uint64, error) {
		u, err := New(m, 0x1000, []byte{0x90, 0x90, 0x90}, ops...)
		Expect(err).NotTo(HaveOccurred())
		return u.Execute(s)
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mem = NewMockMemory(mockCtrl)
		s = NewState(mem)
		s.Set(RSP, 0x8000)
		s.Set(RBX, 0x4000)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("fault propagation", func() {
		It("should leave RSP unchanged when RET cannot load", func() {
			fault := &MemoryFault{Addr: 0x8000, Width: 8, Kind: FaultUnmapped}
			mem.EXPECT().Read64(uint64(0x8000)).Return(uint64(0), fault)

			_, err := run("ret")

			Expect(err).To(BeIdenticalTo(fault))
			Expect(s.Get(RSP)).To(Equal(uint64(0x8000)))
		})

		It("should leave RSP unchanged when PUSH cannot store", func() {
			fault := &MemoryFault{Addr: 0x7ff8, Width: 8, Write: true, Kind: FaultUnmapped}
			mem.EXPECT().Write64(uint64(0x7ff8), uint64(0x4000)).Return(fault)

			_, err := run("push", Reg(RBX))

			Expect(err).To(MatchError(ErrUnmapped))
			Expect(s.Get(RSP)).To(Equal(uint64(0x8000)))
		})

		It("should leave RBP and RSP unchanged when LEAVE cannot load", func() {
			s.Set(RBP, 0x9000)
			mem.EXPECT().Read64(uint64(0x9000)).Return(uint64(0), &MemoryFault{Addr: 0x9000, Width: 8})

			_, err := run("leave")

			Expect(err).To(HaveOccurred())
			Expect(s.Get(RBP)).To(Equal(uint64(0x9000)))
			Expect(s.Get(RSP)).To(Equal(uint64(0x8000)))
		})
	})

	Context("access width", func() {
		It("should read one byte for MOVZX from memory", func() {
			mem.EXPECT().Read8(uint64(0x4010)).Return(uint8(0xF0), nil)

			_, err := run("movzx", Reg(EAX), Mem(RBX, 0x10, 8))

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Get(RAX)).To(Equal(uint64(0xF0)))
		})

		It("should read sixteen bytes for MOVDQU", func() {
			v := vec.FromU64s(1, 2)
			mem.EXPECT().Read128(uint64(0x4000)).Return(v, nil)

			_, err := run("movdqu", XMM(3), Mem(RBX, 0, 128))

			Expect(err).NotTo(HaveOccurred())
			Expect(s.XMM(3)).To(Equal(v))
		})

		It("should read eight bytes for CVTDQ2PD from memory", func() {
			mem.EXPECT().Read64(uint64(0x4000)).Return(uint64(0xFFFFFFFF00000002), nil)

			_, err := run("cvtdq2pd", XMM(0), Mem(RBX, 0, 64))

			Expect(err).NotTo(HaveOccurred())
			Expect(s.XMM(0)).To(Equal(vec.FromF64s([2]float64{2, -1})))
		})

		It("should store two bytes for PEXTRW to memory", func() {
			s.SetXMM(1, vec.FromI16s([8]int16{0, 0x1234}))
			mem.EXPECT().Write16(uint64(0x4002), uint16(0x1234)).Return(nil)

			_, err := run("pextrw", Mem(RBX, 2, 16), XMM(1), Imm(1, 8))

			Expect(err).NotTo(HaveOccurred())
		})

		It("should not touch memory for LEA", func() {
			_, err := run("lea", Reg(RCX), Mem(RBX, 0x20, 64))

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Get(RCX)).To(Equal(uint64(0x4020)))
		})

		It("should follow the base register across executions", func() {
			gomock.InOrder(
				mem.EXPECT().Read32(uint64(0x4000)).Return(uint32(1), nil),
				mem.EXPECT().Read32(uint64(0x5000)).Return(uint32(2), nil),
			)
			u, err := New("add", 0x1000, []byte{0x03, 0x03}, Reg(EAX), Mem(RBX, 0, 32))
			Expect(err).NotTo(HaveOccurred())

			_, err = u.Execute(s)
			Expect(err).NotTo(HaveOccurred())
			s.Set(RBX, 0x5000)
			_, err = u.Execute(s)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Get(RAX)).To(Equal(uint64(3)))
		})
	})

	Context("stubs", func() {
		It("should not read memory for PREFETCH", func() {
			_, err := run("prefetcht0", Mem(RBX, 0, 8))

			Expect(err).NotTo(HaveOccurred())
		})

		It("should store the MXCSR reset value for STMXCSR", func() {
			mem.EXPECT().Write32(uint64(0x4000), uint32(MXCSRReset)).Return(nil)

			_, err := run("stmxcsr", Mem(RBX, 0, 32))

			Expect(err).NotTo(HaveOccurred())
		})

		It("should store the x87 control word reset value for FNSTCW", func() {
			mem.EXPECT().Write16(uint64(0x4008), uint16(FCWReset)).Return(nil)

			_, err := run("fnstcw", Mem(RBX, 8, 16))

			Expect(err).NotTo(HaveOccurred())
		})

		It("should read the operand for LDMXCSR and FLDCW", func() {
			mem.EXPECT().Read32(uint64(0x4000)).Return(uint32(0x1F80), nil)
			mem.EXPECT().Read16(uint64(0x4004)).Return(uint16(0x037F), nil)

			_, err := run("ldmxcsr", Mem(RBX, 0, 32))
			Expect(err).NotTo(HaveOccurred())
			_, err = run("fldcw", Mem(RBX, 4, 16))
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
