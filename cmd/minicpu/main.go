// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"slices"

	"golang.org/x/term"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/emulator"
	"github.com/ezrec/minicpu/exploit"
	"github.com/ezrec/minicpu/fuzz"
	"github.com/ezrec/minicpu/internal"
	"github.com/ezrec/minicpu/io"
	"github.com/ezrec/minicpu/translate"
)

func termWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 80
	}

	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 80
	}

	return width
}

func loadRules(path string) (rules []exploit.Rule) {
	rules = exploit.DefaultRules
	if len(path) == 0 {
		return
	}

	inf, err := os.Open(path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}
	defer inf.Close()

	loaded, err := exploit.LoadRules(inf, path)
	if err != nil {
		log.Fatalf("%v: %v", path, err)
	}

	rules = slices.Collect(internal.IterSeqConcat(
		slices.Values(exploit.DefaultRules),
		slices.Values(loaded),
	))
	return
}

func main() {
	var compile string
	var hex string
	var rom string
	var save bool
	var input string
	var output string
	var budget int
	var flat bool
	var stack_limit int
	var verbose bool
	var exploits bool
	var rules_file string
	var tests int
	var seed uint64
	var stop bool
	var lang string

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&hex, "x", "", "hex program file to load")
	flag.StringVar(&rom, "rom", "", "hex file with the ROM contents")
	flag.BoolVar(&save, "s", false, "Write the program as hex, do not execute")
	flag.StringVar(&input, "i", "-", "Tape input")
	flag.StringVar(&output, "o", "-", "Tape output")
	flag.IntVar(&budget, "n", cpu.MAX_INSTRUCTIONS, "Instruction budget")
	flag.BoolVar(&flat, "flat", false, "Use flat address translation")
	flag.IntVar(&stack_limit, "stack", cpu.STACK_LIMIT, "Operand stack depth limit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&exploits, "e", false, "Check exploit rules after the run")
	flag.StringVar(&rules_file, "r", "", ".star file with additional exploit rules")
	flag.IntVar(&tests, "fuzz", 0, "Fuzz this many random programs instead of running")
	flag.Uint64Var(&seed, "seed", 1, "Fuzzer random seed")
	flag.BoolVar(&stop, "stop", false, "Stop fuzzing at the first finding")
	flag.StringVar(&lang, "lang", "", "Message language, ie 'en-US'")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(lang) != 0 {
		err := translate.SetLanguage(lang)
		if err != nil {
			log.Fatalf("%v: %v", lang, err)
		}
	}

	opts := []cpu.Option{
		cpu.WithStackLimit(stack_limit),
		cpu.WithVerbose(verbose),
		cpu.WithSysOutput(os.Stdout),
	}
	if flat {
		opts = append(opts, cpu.WithFlat())
	}

	rules := loadRules(rules_file)

	if tests > 0 {
		fz := fuzz.NewFuzzer(seed, opts...)
		fz.Tests = tests
		fz.StopAtFirst = stop
		fz.Verbose = verbose

		res, err := fz.Run()
		if err != nil {
			log.Fatal(err)
		}

		for _, finding := range res.Findings {
			fmt.Println(finding.String())
		}
		fmt.Print(res.Histogram(termWidth()))

		if len(res.Vulnerabilities()) != 0 {
			os.Exit(1)
		}
		return
	}

	emu := emulator.NewEmulator(opts...)
	emu.Verbose = verbose

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		err = emu.Assemble(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else if len(hex) != 0 {
		inf, err := os.Open(hex)
		if err != nil {
			log.Fatalf("%v: %v", hex, err)
		}
		defer inf.Close()

		_, err = emu.LoadHex(inf)
		if err != nil {
			log.Fatalf("%v: %v", hex, err)
		}
	}

	if save {
		err := io.WriteHex(os.Stdout, emu.Program.Binary())
		if err != nil {
			log.Fatal(err)
		}
		return
	}

	if len(rom) != 0 {
		inf, err := os.Open(rom)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
		defer inf.Close()

		emu.Rom.Data, _, err = io.ReadHex(inf)
		if err != nil {
			log.Fatalf("%v: %v", rom, err)
		}
	}

	if input == "-" {
		emu.Tape.Input = os.Stdin
	} else {
		inf, err := os.Open(input)
		if err != nil {
			log.Fatalf("%v: %v", input, err)
		}
		defer inf.Close()
		emu.Tape.Input = inf
	}

	if output == "-" {
		emu.Tape.Output = os.Stdout
	} else {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()
		emu.Tape.Output = ouf
	}

	err := emu.Reset()
	if err != nil {
		log.Fatal(err)
	}

	report := emu.Run(budget)
	fmt.Fprintln(os.Stderr, report.String())

	if exploits {
		ck := exploit.NewChecker(rules...)
		ck.Verbose = verbose

		found, err := ck.Check(emu.State(), &report)
		if err != nil {
			log.Print(err)
		}
		for _, rule := range found {
			fmt.Println(rule.String())
		}
	}

	if report.Reason == cpu.HALT_FAULT {
		os.Exit(1)
	}
}
