package frontend_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

const base = 0x400000

var _ = Describe("Decode", func() {
	decode := func(code ...byte) cpu.Instruction {
		u, err := frontend.Decode(code, base)
		Expect(err).NotTo(HaveOccurred())
		return u
	}

	DescribeTable("maps encodings onto catalog units",
		func(code []byte, want string, length int) {
			u, err := frontend.Decode(code, base)
			Expect(err).NotTo(HaveOccurred())
			Expect(cpu.FormatDisassembly(u)).To(Equal(want))
			Expect(u.Len()).To(Equal(length))
			Expect(u.PC()).To(Equal(uint64(base)))
			Expect(u.Bytes()).To(Equal(code[:length]))
		},
		Entry("xor r64", []byte{0x48, 0x31, 0xc0}, "xor\trax,rax", 3),
		Entry("cdq", []byte{0x99}, "cdq", 1),
		Entry("cqo", []byte{0x48, 0x99}, "cqo", 2),
		Entry("ret", []byte{0xc3, 0x90}, "ret", 1),
		Entry("mov r32, imm32", []byte{0xb8, 0x05, 0x00, 0x00, 0x00}, "mov\teax,0x5", 5),
		Entry("add r64, imm8", []byte{0x48, 0x83, 0xc0, 0xf8}, "add\trax,-0x8", 4),
		Entry("bswap r32", []byte{0x0f, 0xc8}, "bswap\teax", 2),
		Entry("bswap r64", []byte{0x48, 0x0f, 0xc8}, "bswap\trax", 3),
		Entry("sib addressing", []byte{0x8b, 0x4c, 0xb3, 0x10}, "mov\tecx,[rbx+rsi*4+0x10]", 4),
		Entry("pshufd", []byte{0x66, 0x0f, 0x70, 0xc1, 0x1b}, "pshufd\txmm0,xmm1,0x1b", 5),
		Entry("pextrw", []byte{0x66, 0x0f, 0xc5, 0xc1, 0x03}, "pextrw\teax,xmm1,0x3", 5),
		Entry("pmovmskb", []byte{0x66, 0x0f, 0xd7, 0xc1}, "pmovmskb\teax,xmm1", 4),
		Entry("sse scalar move", []byte{0xf2, 0x0f, 0x10, 0xc1}, "movsd\txmm0,xmm1", 4),
		Entry("leave", []byte{0xc9}, "leave", 1),
		Entry("lahf", []byte{0x9f}, "lahf", 1),
		Entry("push r64", []byte{0x55}, "push\trbp", 1),
		Entry("fs segment", []byte{0x64, 0x48, 0x8b, 0x04, 0x25, 0x28, 0x00, 0x00, 0x00}, "mov\trax,fs:[0x28]", 9),
		Entry("shl r64, cl", []byte{0x48, 0xd3, 0xe0}, "shl\trax,cl", 3),
		Entry("shrd r32, r32, imm8", []byte{0x0f, 0xac, 0xd0, 0x04}, "shrd\teax,edx,0x4", 4),
		Entry("div r64", []byte{0x48, 0xf7, 0xf1}, "div\trcx", 3),
		Entry("imul r64, r/m64", []byte{0x48, 0x0f, 0xaf, 0xc1}, "imul\trax,rcx", 4),
		Entry("bts r32, imm8", []byte{0x0f, 0xba, 0xe8, 0x05}, "bts\teax,0x5", 4),
		Entry("tzcnt", []byte{0xf3, 0x48, 0x0f, 0xbc, 0xc1}, "tzcnt\trax,rcx", 5),
		Entry("lock xadd", []byte{0xf0, 0x48, 0x0f, 0xc1, 0x07}, "xadd\t[rdi],rax", 5),
		Entry("cmpxchg", []byte{0x48, 0x0f, 0xb1, 0x0f}, "cmpxchg\t[rdi],rcx", 4),
		Entry("string move", []byte{0xa5}, "movsd", 1),
		Entry("rep stosq", []byte{0xf3, 0x48, 0xab}, "rep stosq", 3),
		Entry("rep movsb", []byte{0xf3, 0xa4}, "rep movsb", 2),
		Entry("repe cmpsb", []byte{0xf3, 0xa6}, "repe cmpsb", 2),
		Entry("repne scasb", []byte{0xf2, 0xae}, "repne scasb", 2),
		Entry("sse scalar compare", []byte{0xf2, 0x0f, 0xc2, 0xc1, 0x01}, "cmpsd\txmm0,xmm1,0x1", 5),
		Entry("string compare", []byte{0xa7}, "cmpsd", 1),
		Entry("pcmpgtd", []byte{0x66, 0x0f, 0x66, 0xc1}, "pcmpgtd\txmm0,xmm1", 4),
		Entry("psrlq imm", []byte{0x66, 0x0f, 0x73, 0xd0, 0x04}, "psrlq\txmm0,0x4", 5),
		Entry("shufps", []byte{0x0f, 0xc6, 0xc1, 0x44}, "shufps\txmm0,xmm1,0x44", 4),
		Entry("movhps load", []byte{0x0f, 0x16, 0x07}, "movhps\txmm0,[rdi]", 3),
		Entry("cpuid", []byte{0x0f, 0xa2}, "cpuid", 2),
		Entry("rdtsc", []byte{0x0f, 0x31}, "rdtsc", 2),
	)

	Context("relative targets", func() {
		It("should resolve a short jump to an absolute address", func() {
			u := decode(0xeb, 0xfe)

			Expect(u.IsControlFlow()).To(BeTrue())
			Expect(u.BranchTargets()).To(Equal([]uint64{base}))
			Expect(cpu.FormatDisassembly(u)).To(Equal("jmp\t0x400000"))
		})

		It("should resolve a near call past itself", func() {
			u := decode(0xe8, 0x01, 0x00, 0x00, 0x00)

			Expect(u.BranchTargets()).To(Equal([]uint64{base + 6}))
		})

		It("should report the taken and fall-through targets of a conditional jump", func() {
			u := decode(0x75, 0xfa)

			Expect(u.BranchTargets()).To(Equal([]uint64{base - 4, base + 2}))
		})

		It("should anchor RIP-relative addressing on the next instruction", func() {
			u := decode(0x48, 0x8d, 0x05, 0xf9, 0xff, 0xff, 0xff)
			s := cpu.NewState(nil)

			_, err := u.Execute(s)

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Get(cpu.RAX)).To(Equal(uint64(base)))
		})
	})

	Context("CET hint space", func() {
		It("should decode ENDBR64 and ENDBR32 as implemented no-ops", func() {
			for _, code := range [][]byte{{0xf3, 0x0f, 0x1e, 0xfa}, {0xf3, 0x0f, 0x1e, 0xfb}} {
				u := decode(code...)
				Expect(u.Len()).To(Equal(4))
				Expect(u.Capability()).To(Equal(cpu.Implemented))
			}
			Expect(cpu.FormatDisassembly(decode(0xf3, 0x0f, 0x1e, 0xfa))).To(Equal("endbr64"))
		})

		It("should decode RDSSPQ with REX.W and RDSSPD without", func() {
			q := decode(0xf3, 0x48, 0x0f, 0x1e, 0xc8)
			Expect(cpu.FormatDisassembly(q)).To(Equal("rdsspq\trax"))
			Expect(q.Len()).To(Equal(5))
			Expect(q.Capability()).To(Equal(cpu.Stub))

			d := decode(0xf3, 0x0f, 0x1e, 0xc9)
			Expect(cpu.FormatDisassembly(d)).To(Equal("rdsspd\tecx"))
		})

		It("should take the extended register from REX.B", func() {
			u := decode(0xf3, 0x49, 0x0f, 0x1e, 0xc8)
			Expect(cpu.FormatDisassembly(u)).To(Equal("rdsspq\tr8"))
		})
	})

	Context("failures", func() {
		It("should reject an empty buffer", func() {
			_, err := frontend.Decode(nil, base)
			Expect(err).To(MatchError(frontend.ErrDecode))
		})

		It("should report truncated bytes as a decode error", func() {
			_, err := frontend.Decode([]byte{0x0f}, base)
			Expect(err).To(MatchError(frontend.ErrDecode))
		})

		It("should report instructions missing from the catalog", func() {
			_, err := frontend.Decode([]byte{0x0f, 0x05}, base)

			var ue *frontend.UnsupportedError
			Expect(errors.As(err, &ue)).To(BeTrue())
			Expect(ue.Op).To(Equal("syscall"))
			Expect(ue.PC).To(Equal(uint64(base)))
			Expect(ue.Len).To(Equal(2))
			Expect(err.Error()).To(Equal("unsupported instruction syscall at 0x0000000000400000"))
		})

		It("should reject a LOCK prefix on a register destination", func() {
			_, err := frontend.Decode([]byte{0xf0, 0x48, 0x01, 0xc0}, base)
			Expect(err).To(MatchError(frontend.ErrDecode))
		})

		It("should not run string instructions with 32-bit addressing", func() {
			_, err := frontend.Decode([]byte{0x67, 0xf3, 0xaa}, base)

			var ue *frontend.UnsupportedError
			Expect(errors.As(err, &ue)).To(BeTrue())
			Expect(ue.Op).To(Equal("stosb"))
		})
	})
})
