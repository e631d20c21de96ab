package cpu

import (
	"io"
)

// Config sizes every structure of a CPU. All capacities are fixed at
// construction.
type Config struct {
	Registers     int  // Register file size.
	MemorySize    int  // Physical memory, in words.
	Paged         bool // Page table translation, else flat with protection bits.
	Pages         int  // Virtual pages, when paged.
	PageSize      int  // Words per page, when paged.
	StackLimit    int  // Operand stack depth limit.
	PredictorSize int  // Predictor and BTB slots.

	SysOutput io.Writer // Destination of SYS reports. nil discards.
	Verbose   bool      // Log every instruction.
}

// PagedConfig is the richer configuration: 16 registers, 2048 words of
// physical memory behind a 256 entry page table.
var PagedConfig = Config{
	Registers:     16,
	MemorySize:    2048,
	Paged:         true,
	Pages:         PAGE_COUNT,
	PageSize:      PAGE_SIZE,
	StackLimit:    STACK_LIMIT,
	PredictorSize: PREDICTOR_SIZE,
}

// FlatConfig is the simple configuration: 8 registers, 1024 words
// identity mapped with a protection bit per word.
var FlatConfig = Config{
	Registers:     8,
	MemorySize:    1024,
	StackLimit:    STACK_LIMIT,
	PredictorSize: PREDICTOR_SIZE,
}

// Option adjusts a Config before the CPU is built.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(config Config) Option {
	return func(c *Config) {
		*c = config
	}
}

// WithFlat selects the FlatConfig memory layout. Other settings are kept,
// in any option order.
func WithFlat() Option {
	return func(c *Config) {
		c.Registers = FlatConfig.Registers
		c.MemorySize = FlatConfig.MemorySize
		c.Paged = false
		c.Pages = 0
		c.PageSize = 0
	}
}

// WithStackLimit sets the operand stack depth limit.
func WithStackLimit(limit int) Option {
	return func(c *Config) {
		c.StackLimit = limit
	}
}

// WithPageSize sets the words per page.
func WithPageSize(size int) Option {
	return func(c *Config) {
		c.PageSize = size
	}
}

// WithPredictorSize sets the predictor and BTB slot count.
func WithPredictorSize(size int) Option {
	return func(c *Config) {
		c.PredictorSize = size
	}
}

// WithSysOutput sets the destination of SYS reports.
func WithSysOutput(w io.Writer) Option {
	return func(c *Config) {
		c.SysOutput = w
	}
}

// WithVerbose enables instruction logging.
func WithVerbose(verbose bool) Option {
	return func(c *Config) {
		c.Verbose = verbose
	}
}
