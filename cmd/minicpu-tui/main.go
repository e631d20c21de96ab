// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/minicpu/cpu"
	"github.com/ezrec/minicpu/emulator"
	"github.com/ezrec/minicpu/exploit"
	"github.com/ezrec/minicpu/io"
	"github.com/ezrec/minicpu/translate"
)

var f = translate.From

const (
	MEMORY_WORDS = 64 // Words shown in the memory view.
)

// session is the state shared by the views and key bindings.
type session struct {
	emu     *emulator.Emulator
	checker *exploit.Checker
	budget  int
	report  *cpu.Report
	status  string
}

func (s *session) reset() {
	s.report = nil
	err := s.emu.Reset()
	if err != nil {
		s.status = err.Error()
		return
	}
	s.status = f("%d words loaded", len(s.emu.Program.Binary()))
}

// enter appends the hex words typed on the input line to the program.
// Fields that are not hex words are skipped.
func (s *session) enter(g *gocui.Gui, v *gocui.View) error {
	words, skipped := io.ParseHexFields(v.Buffer())
	words = append(s.emu.Program.Binary(), words...)

	v.Clear()
	v.SetCursor(0, 0)
	v.SetOrigin(0, 0)

	s.emu.Program = cpu.ProgramOf(words)
	s.reset()
	if len(skipped) != 0 {
		s.status = f("%v, skipped %v", s.status, strings.Join(skipped, " "))
	}
	return nil
}

func (s *session) run(g *gocui.Gui, v *gocui.View) error {
	s.reset()
	report := s.emu.Run(s.budget)
	s.report = &report
	s.status = report.String()
	return nil
}

func (s *session) step(g *gocui.Gui, v *gocui.View) error {
	done, err := s.emu.Tick()
	switch {
	case err != nil:
		s.status = err.Error()
	case done:
		s.status = cpu.HALT_PC_RANGE.String()
	default:
		s.status = f("line %d", s.emu.LineNo())
	}
	return nil
}

func (s *session) clear(g *gocui.Gui, v *gocui.View) error {
	s.emu.Program = &cpu.Program{}
	s.emu.ClearMemory()
	s.reset()
	return nil
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}

func (s *session) drawProgram(v *gocui.View) {
	v.Clear()
	line := s.emu.LineNo()
	for _, ln := range s.emu.Program.Lines {
		mark := " "
		if ln.LineNo == line {
			mark = ">"
		}
		codes := make([]string, len(ln.Codes))
		for i, code := range ln.Codes {
			codes[i] = fmt.Sprintf("%08x", uint32(code))
		}
		fmt.Fprintf(v, "%s%4d %-20s %s\n", mark, ln.LineNo, strings.Join(codes, " "), strings.Join(ln.Words, " "))
	}
}

func (s *session) drawRegisters(v *gocui.View) {
	v.Clear()
	for n, reg := range s.emu.Registers() {
		fmt.Fprintf(v, "r%d=%08x ", n, reg)
		if n%4 == 3 {
			fmt.Fprintln(v)
		}
	}
	fmt.Fprintf(v, "pc=%08x mode=%v count=%d stack=%d ras=%d\n",
		s.emu.Pc(), s.emu.Mode(), s.emu.InstructionCount(),
		s.emu.StackDepth(), s.emu.ReturnMismatches())
}

func (s *session) drawMemory(v *gocui.View) {
	v.Clear()
	mem := s.emu.Memory()
	for n := range min(len(mem), MEMORY_WORDS) {
		if n%8 == 0 {
			fmt.Fprintf(v, "%04x:", n)
		}
		fmt.Fprintf(v, " %08x", mem[n])
		if n%8 == 7 {
			fmt.Fprintln(v)
		}
	}
}

func (s *session) drawExploits(v *gocui.View) {
	v.Clear()
	found, err := s.checker.Check(s.emu.State(), s.report)
	if err != nil {
		fmt.Fprintln(v, err)
	}
	for _, rule := range found {
		fmt.Fprintln(v, rule.String())
	}
}

func (s *session) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	split := maxX / 2

	// left -> program listing
	if v, err := g.SetView("program", 0, 0, split-1, maxY-7); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = f("Program")
	}

	// right -> registers, memory and exploits
	if v, err := g.SetView("registers", split, 0, maxX-1, 6); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = f("Registers")
	}
	if v, err := g.SetView("memory", split, 7, maxX-1, maxY-13); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = f("Memory")
	}
	if v, err := g.SetView("exploits", split, maxY-12, maxX-1, maxY-7); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = f("Exploits")
	}

	// down -> input and status
	if v, err := g.SetView("input", 0, maxY-6, maxX-1, maxY-4); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = f("Hex words (Enter: append, ^R: run, ^T: step, ^L: clear, ^C: quit)")
		v.Editable = true
		if _, err := g.SetCurrentView("input"); err != nil {
			return err
		}
	}
	if v, err := g.SetView("status", 0, maxY-3, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = f("Status")
	}

	for name, draw := range map[string]func(*gocui.View){
		"program":   s.drawProgram,
		"registers": s.drawRegisters,
		"memory":    s.drawMemory,
		"exploits":  s.drawExploits,
	} {
		v, err := g.View(name)
		if err != nil {
			return err
		}
		draw(v)
	}

	v, err := g.View("status")
	if err != nil {
		return err
	}
	v.Clear()
	fmt.Fprint(v, s.status)

	return nil
}

func main() {
	var compile string
	var hex string
	var budget int
	var flat bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&hex, "x", "", "hex program file to load")
	flag.IntVar(&budget, "n", cpu.MAX_INSTRUCTIONS, "Instruction budget")
	flag.BoolVar(&flat, "flat", false, "Use flat address translation")

	flag.Parse()

	var opts []cpu.Option
	if flat {
		opts = append(opts, cpu.WithFlat())
	}

	s := &session{
		emu:     emulator.NewEmulator(opts...),
		checker: exploit.NewChecker(),
		budget:  budget,
	}

	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		err = s.emu.Assemble(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else if len(hex) != 0 {
		inf, err := os.Open(hex)
		if err != nil {
			log.Fatalf("%v: %v", hex, err)
		}
		_, err = s.emu.LoadHex(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", hex, err)
		}
	}

	s.reset()

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln("Couldn't create gui!")
	}
	defer g.Close()

	g.Cursor = true
	g.SetManagerFunc(s.layout)

	bindings := []struct {
		view    string
		key     gocui.Key
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{"", gocui.KeyCtrlC, quit},
		{"", gocui.KeyCtrlR, s.run},
		{"", gocui.KeyCtrlT, s.step},
		{"", gocui.KeyCtrlL, s.clear},
		{"input", gocui.KeyEnter, s.enter},
	}
	for _, bind := range bindings {
		if err := g.SetKeybinding(bind.view, bind.key, gocui.ModNone, bind.handler); err != nil {
			log.Panicln(err)
		}
	}

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}
