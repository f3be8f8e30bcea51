package frontend_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/intuitionamiga/amd64core/cpu"
	"github.com/intuitionamiga/amd64core/frontend"
)

// sum 10..1 into EAX
var sumLoop = []byte{
	0x31, 0xc0, // xor eax,eax
	0xb9, 0x0a, 0x00, 0x00, 0x00, // mov ecx,10
	0x01, 0xc8, // add eax,ecx
	0xff, 0xc9, // dec ecx
	0x75, 0xfa, // jne -6
	0xc3, // ret
}

// call a framed leaf that returns the value it pushed
var framedCall = []byte{
	0xe8, 0x01, 0x00, 0x00, 0x00, // call +1
	0xc3,             // ret
	0x55,             // push rbp
	0x48, 0x89, 0xe5, // mov rbp,rsp
	0xbb, 0x07, 0x00, 0x00, 0x00, // mov ebx,7
	0x53,                   // push rbx
	0x48, 0x8b, 0x45, 0xf8, // mov rax,[rbp-8]
	0xc9, // leave
	0xc3, // ret
}

var _ = Describe("Runner", func() {
	var (
		r   *frontend.Runner
		cfg frontend.Config
		ctx context.Context
	)

	BeforeEach(func() {
		cfg = frontend.DefaultConfig()
		r = frontend.NewRunner(cfg)
		ctx = context.Background()
	})

	Context("loading", func() {
		It("should reject an empty image", func() {
			Expect(r.Load(nil)).To(MatchError(frontend.ErrNoCode))
			Expect(r.Halted()).To(BeTrue())
		})

		It("should set up the entry point and the sentinel return address", func() {
			Expect(r.Load([]byte{0xc3})).To(Succeed())

			s := r.State()
			Expect(s.RIP()).To(Equal(cfg.LoadAddr))
			Expect(s.Get(cpu.RSP)).To(Equal(cfg.StackTop - 8))
			ret, err := r.Memory().Read64(cfg.StackTop - 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(ret).To(Equal(uint64(frontend.HaltAddress)))
			Expect(r.Halted()).To(BeFalse())
		})

		It("should fill unset layout fields from the defaults", func() {
			r = frontend.NewRunner(frontend.Config{})
			Expect(r.Config().LoadAddr).To(Equal(cfg.LoadAddr))
			Expect(r.Config().StackTop).To(Equal(cfg.StackTop))
			Expect(r.Config().MaxSteps).To(BeZero())
		})
	})

	Context("running", func() {
		It("should halt when the entry point returns", func() {
			Expect(r.Load([]byte{0x48, 0xc7, 0xc0, 0x2a, 0x00, 0x00, 0x00, 0xc3})).To(Succeed())

			n, err := r.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(uint64(2)))
			Expect(r.Halted()).To(BeTrue())
			Expect(r.State().Get(cpu.RAX)).To(Equal(uint64(42)))
			Expect(r.State().Get(cpu.RSP)).To(Equal(cfg.StackTop))
			Expect(r.State().RIP()).To(Equal(uint64(frontend.HaltAddress)))
		})

		It("should decode each address once across loop iterations", func() {
			Expect(r.Load(sumLoop)).To(Succeed())

			n, err := r.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.State().Get(cpu.RAX)).To(Equal(uint64(55)))
			Expect(n).To(Equal(uint64(33)))
			Expect(r.InstructionCount).To(Equal(uint64(33)))
			Expect(r.CacheMisses).To(Equal(uint64(6)))
			Expect(r.State().Flag(cpu.FlagZF)).To(BeTrue())
		})

		It("should run calls through a stack frame", func() {
			Expect(r.Load(framedCall)).To(Succeed())

			n, err := r.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(uint64(9)))
			s := r.State()
			Expect(s.Get(cpu.RAX)).To(Equal(uint64(7)))
			Expect(s.Get(cpu.RBP)).To(BeZero())
			Expect(s.Get(cpu.RSP)).To(Equal(cfg.StackTop))
		})

		It("should count stubs separately", func() {
			Expect(r.Load([]byte{0x0f, 0xae, 0xf0, 0xc3})).To(Succeed())

			_, err := r.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.StubCount).To(Equal(uint64(1)))
			Expect(r.InstructionCount).To(Equal(uint64(2)))
		})

		It("should run an instruction outside the catalog as a stub", func() {
			Expect(r.Load([]byte{0x90, 0x0f, 0x05, 0xc3})).To(Succeed())

			_, err := r.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.StubCount).To(Equal(uint64(1)))
			Expect(r.InstructionCount).To(Equal(uint64(3)))
			u, err := r.Decode(cfg.LoadAddr + 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.Capability()).To(Equal(cpu.Stub))
			Expect(cpu.FormatDisassembly(u)).To(Equal("syscall"))
			Expect(u.Len()).To(Equal(2))
		})

		It("should feed RDTSC from the instruction count", func() {
			Expect(r.Load([]byte{0x90, 0x90, 0x0f, 0x31, 0xc3})).To(Succeed())

			_, err := r.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(r.State().Get(cpu.RAX)).To(Equal(uint64(2)))
			Expect(r.State().Get(cpu.RDX)).To(BeZero())
		})

		It("should stop at the step limit", func() {
			Expect(r.Load([]byte{0xeb, 0xfe})).To(Succeed())

			n, err := r.Run(ctx, 100)

			Expect(err).To(MatchError(frontend.ErrStepLimit))
			Expect(n).To(Equal(uint64(100)))
			Expect(r.Halted()).To(BeFalse())
		})

		It("should stop when the context is done", func() {
			Expect(r.Load([]byte{0xeb, 0xfe})).To(Succeed())
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			n, err := r.Run(cctx, 0)

			Expect(err).To(MatchError(context.Canceled))
			Expect(n).To(BeZero())
		})

		It("should refuse to step once halted", func() {
			Expect(r.Load([]byte{0xc3})).To(Succeed())
			Expect(r.Step()).To(Succeed())

			Expect(r.Step()).To(MatchError(frontend.ErrHalted))
		})
	})

	Context("failures", func() {
		It("should wrap memory faults with the faulting instruction", func() {
			Expect(r.Load([]byte{0x48, 0x8b, 0x04, 0x25, 0x00, 0x00, 0x00, 0x00})).To(Succeed())

			_, err := r.Run(ctx, 0)

			Expect(err).To(MatchError(cpu.ErrUnmapped))
			var xe *frontend.ExecError
			Expect(errors.As(err, &xe)).To(BeTrue())
			Expect(xe.PC).To(Equal(cfg.LoadAddr))
			Expect(xe.Inst).To(Equal("mov\trax,[0x0]"))
			Expect(r.Halted()).To(BeTrue())
			Expect(r.State().Get(cpu.RAX)).To(BeZero())
		})

		It("should stop on an instruction outside the catalog when decoding strictly", func() {
			cfg.StrictDecode = true
			r = frontend.NewRunner(cfg)
			Expect(r.Load([]byte{0x90, 0x0f, 0x05, 0xc3})).To(Succeed())

			n, err := r.Run(ctx, 0)

			var ue *frontend.UnsupportedError
			Expect(errors.As(err, &ue)).To(BeTrue())
			Expect(ue.PC).To(Equal(cfg.LoadAddr + 1))
			Expect(n).To(Equal(uint64(1)))
		})

		It("should fault when execution leaves mapped memory", func() {
			cfg.LoadAddr = 0x400FFF
			r = frontend.NewRunner(cfg)
			Expect(r.Load([]byte{0x90})).To(Succeed())
			Expect(r.Step()).To(Succeed())

			err := r.Step()

			Expect(err).To(MatchError(cpu.ErrUnmapped))
			var xe *frontend.ExecError
			Expect(errors.As(err, &xe)).To(BeTrue())
			Expect(xe.PC).To(Equal(uint64(0x401000)))
		})

		It("should report the fetch fault when an instruction runs off mapped memory", func() {
			cfg.LoadAddr = 0x400FFE
			r = frontend.NewRunner(cfg)
			Expect(r.Load([]byte{0x48, 0x8b})).To(Succeed())

			err := r.Step()

			Expect(err).To(MatchError(cpu.ErrUnmapped))
			var xe *frontend.ExecError
			Expect(errors.As(err, &xe)).To(BeTrue())
			Expect(xe.Inst).To(Equal("fetch"))
			Expect(xe.PC).To(Equal(cfg.LoadAddr))
		})

		It("should fault a misaligned access only while AC is set", func() {
			cfg.CheckAlignment = true
			r = frontend.NewRunner(cfg)
			// mov rax,[rsp+1]
			Expect(r.Load([]byte{0x48, 0x8b, 0x44, 0x24, 0x01, 0xc3})).To(Succeed())
			Expect(r.Step()).To(Succeed())

			Expect(r.Reset()).To(Succeed())
			r.State().SetRFLAGS(r.State().RFLAGS() | uint64(cpu.FlagAC))
			Expect(r.Step()).To(MatchError(cpu.ErrUnaligned))
		})
	})

	Context("instruction cache", func() {
		It("should keep executing the cached unit until invalidated", func() {
			Expect(r.Load([]byte{0x90, 0xc3})).To(Succeed())
			Expect(r.Step()).To(Succeed())
			Expect(r.Cached(cfg.LoadAddr)).To(BeTrue())

			Expect(r.Memory().Write8(cfg.LoadAddr, 0xc3)).To(Succeed())
			r.State().SetRIP(cfg.LoadAddr)
			Expect(r.Step()).To(Succeed())
			Expect(r.State().RIP()).To(Equal(cfg.LoadAddr + 1))

			r.Invalidate()
			Expect(r.Cached(cfg.LoadAddr)).To(BeFalse())
			r.State().SetRIP(cfg.LoadAddr)
			Expect(r.Step()).To(Succeed())
			Expect(r.Halted()).To(BeTrue())
		})

		It("should restore the image and counters on reset", func() {
			Expect(r.Load(sumLoop)).To(Succeed())
			_, err := r.Run(ctx, 0)
			Expect(err).NotTo(HaveOccurred())

			Expect(r.Reset()).To(Succeed())

			Expect(r.InstructionCount).To(BeZero())
			Expect(r.CacheMisses).To(BeZero())
			Expect(r.State().Get(cpu.RAX)).To(BeZero())
			Expect(r.Halted()).To(BeFalse())
		})
	})

	Context("background execution", func() {
		It("should stop a program that never returns", func() {
			r = frontend.NewRunner(frontend.Config{})
			Expect(r.Load([]byte{0xeb, 0xfe})).To(Succeed())

			r.StartExecution(ctx)
			r.Stop()

			Expect(r.Wait()).To(Succeed())
			Expect(r.IsRunning()).To(BeFalse())
			Expect(r.Halted()).To(BeTrue())
		})

		It("should report the result of a finished run", func() {
			Expect(r.Load(sumLoop)).To(Succeed())

			r.StartExecution(ctx)

			Expect(r.Wait()).To(Succeed())
			Expect(r.State().Get(cpu.RAX)).To(Equal(uint64(55)))
		})
	})
})
