package fuzz_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/fuzz"
)

var _ = Describe("Fuzzer", func() {
	var fz *fuzz.Fuzzer

	BeforeEach(func() {
		fz = fuzz.NewFuzzer(42)
		fz.Tests = 200
	})

	Describe("program generation", func() {
		It("should generate between 1 and MaxInstructions words", func() {
			fz.MaxInstructions = 5
			for range 100 {
				program := fz.Program()
				Expect(len(program)).To(BeNumerically(">=", 1))
				Expect(len(program)).To(BeNumerically("<=", 5))
			}
		})

		It("should replay the same programs for the same seed", func() {
			other := fuzz.NewFuzzer(42)
			for range 10 {
				Expect(fz.Program()).To(Equal(other.Program()))
			}
		})

		It("should differ for another seed", func() {
			other := fuzz.NewFuzzer(43)
			Expect(fz.Program()).ToNot(Equal(other.Program()))
		})
	})

	Describe("a paged session", func() {
		It("should classify every test", func() {
			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Tests).To(Equal(200))

			halts := 0
			for _, count := range res.Halts {
				halts += count
			}
			Expect(halts).To(Equal(200))

			faults := 0
			for _, count := range res.Faults {
				faults += count
			}
			Expect(faults).To(Equal(res.Halts[cpu.HALT_FAULT]))
		})

		It("should never panic", func() {
			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Vulnerabilities()).To(BeEmpty())
		})

		It("should record one finding per fault kind", func() {
			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Findings).ToNot(BeEmpty())

			seen := map[cpu.FaultKind]bool{}
			for _, finding := range res.Findings {
				Expect(finding.Report.Fault).ToNot(BeNil())
				Expect(seen[finding.Report.Fault.Kind]).To(BeFalse())
				seen[finding.Report.Fault.Kind] = true
				Expect(res.Faults[finding.Report.Fault.Kind]).To(BeNumerically(">=", 1))
				Expect(finding.Program).ToNot(BeEmpty())
			}
		})

		It("should stop at the first finding", func() {
			fz.StopAtFirst = true
			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Findings).To(HaveLen(1))
			Expect(res.Tests).To(Equal(res.Findings[0].Test + 1))
		})

		It("should render a histogram", func() {
			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())

			text := res.Histogram(80)
			Expect(text).To(ContainSubstring("200 tests"))
			Expect(text).To(ContainSubstring("budget exhausted"))
			for _, kind := range cpu.FaultKinds {
				Expect(text).To(ContainSubstring(kind.String()))
			}
		})
	})

	Describe("a flat session", func() {
		It("should run without a setup", func() {
			fz = fuzz.NewFuzzer(7, cpu.WithFlat())
			fz.Tests = 50
			fz.Setup = nil

			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Tests).To(Equal(50))
			Expect(res.Vulnerabilities()).To(BeEmpty())
		})
	})

	Describe("execution", func() {
		It("should recover a panic as a vulnerability", func() {
			fz.Setup = func(*cpu.Cpu) error {
				panic("boom")
			}

			finding, err := fz.Execute(3, []uint32{0})
			Expect(err).ToNot(HaveOccurred())
			Expect(finding.Vulnerable()).To(BeTrue())
			Expect(finding.Panic).To(Equal("boom"))
			Expect(finding.Test).To(Equal(3))
			Expect(finding.String()).To(ContainSubstring("panic: boom"))

			fz.Tests = 2
			res, err := fz.Run()
			Expect(err).ToNot(HaveOccurred())
			Expect(res.Vulnerabilities()).To(HaveLen(2))
		})

		It("should return setup errors", func() {
			broken := errors.New("broken")
			fz.Setup = func(*cpu.Cpu) error {
				return broken
			}

			_, err := fz.Run()
			Expect(err).To(MatchError(broken))
		})

		It("should report a faulting program", func() {
			program := []uint32{uint32(cpu.MakeCode(cpu.OP_RET, 0, 0, 0))}
			finding, err := fz.Execute(0, program)
			Expect(err).ToNot(HaveOccurred())
			Expect(finding.Vulnerable()).To(BeFalse())
			Expect(finding.Report.Reason).To(Equal(cpu.HALT_FAULT))
			Expect(errors.Is(finding.Report.Err, cpu.ErrStackUnderflow)).To(BeTrue())
		})

		It("should report a looping program", func() {
			program := []uint32{uint32(cpu.MakeCode(cpu.OP_JUMP, 0, 0, 0))}
			finding, err := fz.Execute(0, program)
			Expect(err).ToNot(HaveOccurred())
			Expect(finding.Report.Reason).To(Equal(cpu.HALT_BUDGET))
			Expect(finding.Report.Executed).To(Equal(cpu.MAX_INSTRUCTIONS))
		})
	})
})
