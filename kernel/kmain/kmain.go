// Package kmain wires the kernel subsystems together according to the boot
// command line and hosts the kernel entry point.
package kmain

import (
	"rvos/kernel"
	"rvos/kernel/kfmt"
	"rvos/kernel/mm"
	"rvos/kernel/mm/pmm"
	"rvos/kernel/mm/reclaim"
	"rvos/kernel/proc"
	"rvos/kernel/sched"
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// panicFn and initThreadFn are mocked by tests.
	panicFn      = kfmt.Panic
	initThreadFn = initThread
)

// Kernel bundles the subsystems created by Init.
type Kernel struct {
	Config    Config
	Frames    *pmm.LockedAllocator
	Memory    *reclaim.Manager
	Processor *proc.Processor
}

// Init brings up the physical memory allocator, the page reclaimer and the
// processor using the supplied configuration.
func Init(cfg Config) (*Kernel, *kernel.Error) {
	kfmt.SetDebug(cfg.Debug)

	frames, err := pmm.Init(cfg.Allocator, cfg.FrameStart, cfg.FrameEnd)
	if err != nil {
		return nil, err
	}

	// pmm.Init registered frames as the kernel-wide allocator
	memory := reclaim.NewManager(mm.RegisteredFrameAllocator(), reclaim.NewPolicy(cfg.Replace))

	var scheduler sched.Scheduler
	switch cfg.Scheduler {
	case SchedStride:
		scheduler = sched.NewStride()
	default:
		scheduler = sched.NewRoundRobin(cfg.TimeSlice)
	}

	processor := proc.NewProcessor(proc.NewThreadPool(scheduler, cfg.MaxThreads))
	processor.AddTickHook(memory.Tick)

	kfmt.Printf("[kmain] scheduler: %s (slice %d), page replacement: %s, max threads: %d\n",
		cfg.Scheduler.String(), cfg.TimeSlice, cfg.Replace.String(), cfg.MaxThreads)

	return &Kernel{
		Config:    cfg,
		Frames:    frames,
		Memory:    memory,
		Processor: processor,
	}, nil
}

// Kmain is the kernel entry point invoked by the boot code with the boot
// command line and the physical address range [freeStart, freeEnd) that is
// available to the frame allocator. A frames= boot option takes precedence
// over the supplied range; if neither is present the default range is used.
//
// Kmain starts the init thread and runs threads until none are left. It is
// not expected to return.
//
//go:noinline
func Kmain(cmdLine string, freeStart, freeEnd uintptr) {
	cfg, err := ParseCmdLine(cmdLine)
	if err != nil {
		panicFn(err)
		return
	}

	if !cfg.framesSet && freeEnd > freeStart {
		cfg.FrameStart = mm.FrameFromAddress(freeStart + mm.PageSize - 1)
		cfg.FrameEnd = mm.FrameFromAddress(freeEnd)
	}

	k, err := Init(cfg)
	if err != nil {
		panicFn(err)
		return
	}

	if _, err = k.Processor.AddThread(func() { initThreadFn(k) }); err != nil {
		panicFn(err)
		return
	}

	if err = k.Processor.Run(); err != nil {
		panicFn(err)
		return
	}

	// Use panicFn instead of returning to prevent the compiler from
	// treating the halt path as dead-code and eliminating it.
	panicFn(errKmainReturned)
}

// initThread is the body of the first kernel thread.
func initThread(k *Kernel) {
	kfmt.Printf("[kmain] init thread %d started\n", int(k.Processor.CurrentTid()))
}
