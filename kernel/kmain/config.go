package kmain

import (
	"strconv"
	"strings"

	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
	"rvos/kernel/mm/reclaim"
)

// ErrInvalidCmdLine is returned when a boot option carries a malformed value.
var ErrInvalidCmdLine = &kernel.Error{Module: "kmain", Message: "invalid boot command line"}

// SchedulerKind selects the scheduling algorithm.
type SchedulerKind uint8

const (
	// SchedRoundRobin selects sched.RoundRobin.
	SchedRoundRobin SchedulerKind = iota

	// SchedStride selects sched.Stride.
	SchedStride
)

// String implements fmt.Stringer for SchedulerKind.
func (k SchedulerKind) String() string {
	switch k {
	case SchedRoundRobin:
		return "rr"
	case SchedStride:
		return "stride"
	default:
		return "unknown"
	}
}

// Config holds the kernel configuration selected on the boot command line.
type Config struct {
	Scheduler SchedulerKind

	// TimeSlice is the round-robin quantum in ticks.
	TimeSlice uint32

	Replace   reclaim.Kind
	Allocator pmm.Strategy

	// FrameStart and FrameEnd delimit the managed frames [start, end).
	FrameStart mm.Frame
	FrameEnd   mm.Frame

	MaxThreads int
	Debug      bool

	// framesSet is true when the frame range came from the command line.
	framesSet bool
}

// DefaultConfig returns the configuration used for options missing from the
// command line. The frame range covers the 128 MiB of RAM of the QEMU virt
// machine.
func DefaultConfig() Config {
	return Config{
		Scheduler:  SchedRoundRobin,
		TimeSlice:  1,
		Replace:    reclaim.KindFIFO,
		Allocator:  pmm.SegmentTree,
		FrameStart: mm.FrameFromAddress(mm.KernelBase),
		FrameEnd:   mm.FrameFromAddress(mm.PhysicalMemoryEnd),
		MaxThreads: 100,
	}
}

// ParseCmdLine parses a whitespace separated list of key=value options on
// top of DefaultConfig. Flags without a value, such as "debug", are treated as
// "debug=debug". Unknown options are logged and ignored.
func ParseCmdLine(cmdLine string) (Config, *kernel.Error) {
	cfg := DefaultConfig()

	for _, pair := range strings.Fields(cmdLine) {
		var key, value string
		kv := strings.SplitN(pair, "=", 2)
		switch len(kv) {
		case 2: // foo=bar
			key, value = kv[0], kv[1]
		case 1: // foo
			key, value = kv[0], kv[0]
		}

		if err := cfg.set(key, value); err != nil {
			kfmt.Printf("[kmain] bad value for boot option %s: %s\n", key, value)
			return cfg, err
		}
	}

	return cfg, nil
}

func (cfg *Config) set(key, value string) *kernel.Error {
	switch key {
	case "sched":
		switch value {
		case "rr":
			cfg.Scheduler = SchedRoundRobin
		case "stride":
			cfg.Scheduler = SchedStride
		default:
			return ErrInvalidCmdLine
		}
	case "slice":
		slice, err := parseNumber(value, 32)
		if err != nil || slice == 0 {
			return ErrInvalidCmdLine
		}
		cfg.TimeSlice = uint32(slice)
	case "replace":
		switch value {
		case "fifo":
			cfg.Replace = reclaim.KindFIFO
		case "clock":
			cfg.Replace = reclaim.KindClock
		default:
			return ErrInvalidCmdLine
		}
	case "alloc":
		switch value {
		case "segtree":
			cfg.Allocator = pmm.SegmentTree
		case "firstfit":
			cfg.Allocator = pmm.FirstFit
		default:
			return ErrInvalidCmdLine
		}
	case "frames":
		bounds := strings.Split(value, ":")
		if len(bounds) != 2 {
			return ErrInvalidCmdLine
		}
		start, err1 := parseNumber(bounds[0], 64)
		end, err2 := parseNumber(bounds[1], 64)
		if err1 != nil || err2 != nil || start >= end {
			return ErrInvalidCmdLine
		}
		cfg.FrameStart, cfg.FrameEnd = mm.Frame(start), mm.Frame(end)
		cfg.framesSet = true
	case "threads":
		threads, err := parseNumber(value, 31)
		if err != nil || threads == 0 {
			return ErrInvalidCmdLine
		}
		cfg.MaxThreads = int(threads)
	case "debug":
		cfg.Debug = true
	default:
		kfmt.Printf("[kmain] ignoring unknown boot option %s\n", key)
	}

	return nil
}

// parseNumber accepts decimal values and hex values prefixed with 0x.
func parseNumber(value string, bitSize int) (uint64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseUint(value[2:], 16, bitSize)
	}
	return strconv.ParseUint(value, 10, bitSize)
}
