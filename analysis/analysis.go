// Package analysis discovers functions and basic blocks by walking control
// flow from an image's entry point and call targets, decoding instructions
// through an architecture-agnostic arch.Decoder. Discovery runs on its own
// goroutine behind a single coarse lock, mirroring a GUI-driven disassembler
// that must keep rendering the current state while background analysis
// keeps extending it.
package analysis

import (
	"fmt"
	"time"

	"github.com/mewmew/recon/arch"
	"github.com/mewmew/recon/bin"
	"github.com/mewmew/recon/image"
)

// maxDecodeWindow is a generous upper bound on any supported architecture's
// longest instruction (x86 tops out at 15 bytes; ppc and arm are fixed at
// 4), used so populate can hand every decoder a uniformly sized read.
const maxDecodeWindow = 16

// Analysis walks control flow over img, decoding with decode, and keeps a
// Function table that grows as calls are discovered. It implements
// arch.SymbolLookup: SymbolName and InImage come from the embedded
// image.ImageView, FunctionName from the function table analysis itself
// builds.
type Analysis struct {
	image.ImageView
	decode arch.Decoder
	opts   arch.RenderOptions

	mu              chan struct{} // one-slot mutex; see lock/unlock
	functions       map[bin.Addr]*Function
	queue           []bin.Addr
	status          string
	updateID        uint64
	updateRequested bool
	running         bool
}

// New returns an Analysis over img, decoding instructions with decode. It
// registers itself for write notifications so that patches and manual edits
// re-queue the functions they touch.
func New(img image.ImageView, decode arch.Decoder) *Analysis {
	a := &Analysis{
		ImageView: img,
		decode:    decode,
		mu:        make(chan struct{}, 1),
		functions: make(map[bin.Addr]*Function),
	}
	a.mu <- struct{}{}
	img.AddCallback(a.onDataWrite)
	return a
}

func (a *Analysis) lock()   { <-a.mu }
func (a *Analysis) unlock() { a.mu <- struct{}{} }

// nextUpdateID must only be called with the lock held.
func (a *Analysis) nextUpdateID() uint64 {
	a.updateID++
	return a.updateID
}

// Status returns the current human-readable progress description, empty
// when analysis is idle.
func (a *Analysis) Status() string {
	a.lock()
	defer a.unlock()
	return a.status
}

// Functions returns a snapshot of the discovered function table, keyed by
// entry address.
func (a *Analysis) Functions() map[bin.Addr]*Function {
	a.lock()
	defer a.unlock()
	out := make(map[bin.Addr]*Function, len(a.functions))
	for addr, f := range a.functions {
		out[addr] = f
	}
	return out
}

// FunctionName implements arch.SymbolLookup.
func (a *Analysis) FunctionName(addr bin.Addr) (name string, isPLT bool, ok bool) {
	a.lock()
	defer a.unlock()
	f, ok := a.functions[addr]
	if !ok {
		return "", false, false
	}
	return f.Name, f.IsPLT, true
}

// Run discovers functions starting from the image entry point and then
// drains calls discovered along the way, looping until Stop is called. It
// blocks the calling goroutine; callers typically invoke it with go.
func (a *Analysis) Run() {
	a.lock()
	a.running = true
	if entry, ok := a.ImageView.Entry(); ok {
		a.status = fmt.Sprintf("disassembling function at %v...", entry)
		start := &Function{Entry: entry, Name: "_start"}
		a.functions[entry] = start
		start.findBasicBlocks(a)
		a.queue = append(a.queue, start.findCalls(a)...)
		start.Ready = true
	}
	a.unlock()

	for a.isRunning() {
		for a.isRunning() {
			a.lock()
			if len(a.queue) == 0 {
				a.unlock()
				break
			}
			entry := a.queue[len(a.queue)-1]
			a.queue = a.queue[:len(a.queue)-1]
			a.status = fmt.Sprintf("disassembling function at %v...", entry)

			f, ok := a.functions[entry]
			if !ok {
				name := defaultName(entry)
				if symName, ok := a.ImageView.SymbolName(entry); ok {
					name = symName
				}
				f = &Function{Entry: entry, Name: name}
				a.functions[entry] = f
			}
			f.findBasicBlocks(a)
			for _, call := range f.findCalls(a) {
				if !a.queuedLocked(call) {
					a.queue = append(a.queue, call)
				}
			}
			f.Ready = true
			a.unlock()

			time.Sleep(time.Millisecond)
		}

		a.lock()
		a.updateRequested = false
		for _, f := range a.functions {
			if !a.running {
				break
			}
			a.status = fmt.Sprintf("updating function at %v...", f.Entry)
			f.update(a)
		}
		a.status = ""
		a.unlock()

		for a.isRunning() && !a.hasQueued() && !a.isUpdateRequested() {
			time.Sleep(100 * time.Millisecond)
		}
	}
}

// Stop ends the discovery loop after its current unit of work.
func (a *Analysis) Stop() {
	a.lock()
	a.running = false
	a.unlock()
}

func (a *Analysis) isRunning() bool {
	a.lock()
	defer a.unlock()
	return a.running
}

func (a *Analysis) hasQueued() bool {
	a.lock()
	defer a.unlock()
	return len(a.queue) > 0
}

func (a *Analysis) isUpdateRequested() bool {
	a.lock()
	defer a.unlock()
	return a.updateRequested
}

// queuedLocked reports whether call is already pending or already assigned
// a function; must be called with the lock held.
func (a *Analysis) queuedLocked(call bin.Addr) bool {
	if _, ok := a.functions[call]; ok {
		return true
	}
	return a.inQueueLocked(call)
}

// inQueueLocked reports whether addr is already sitting in the pending
// queue, regardless of whether it is also a known function; used by
// onDataWrite, which re-queues an already-known function and so must not
// be short-circuited by the functions-table check queuedLocked does for
// newly discovered call targets. Must be called with the lock held.
func (a *Analysis) inQueueLocked(addr bin.Addr) bool {
	for _, q := range a.queue {
		if q == addr {
			return true
		}
	}
	return false
}

// FindInstr locates the function and instruction address covering addr.
// With exact set, only a decoded instruction starting exactly at addr
// matches; otherwise the instruction whose byte range contains addr
// matches.
func (a *Analysis) FindInstr(addr bin.Addr, exact bool) (funcEntry, instrAddr bin.Addr, ok bool) {
	a.lock()
	defer a.unlock()
	for _, f := range a.functions {
		for _, block := range f.Blocks {
			for _, inst := range block.Insts {
				if exact {
					if addr == inst.Addr() {
						return f.Entry, inst.Addr(), true
					}
					continue
				}
				if addr >= inst.Addr() && addr < inst.Addr()+bin.Addr(len(inst.Bytes())) {
					return f.Entry, inst.Addr(), true
				}
			}
		}
	}
	return 0, 0, false
}

// CreateSymbol names addr in the underlying image and, if a function
// already starts there, renames it to match; either way a render update is
// requested.
func (a *Analysis) CreateSymbol(addr bin.Addr, name string) {
	a.lock()
	defer a.unlock()
	a.ImageView.CreateSymbol(addr, name)
	if f, ok := a.functions[addr]; ok {
		f.rename(name)
	}
	a.updateRequested = true
}

// DeleteSymbol removes addr's name from the underlying image and, if a
// function starts there, falls back its name to the sub_ default.
func (a *Analysis) DeleteSymbol(addr bin.Addr, name string) {
	a.lock()
	defer a.unlock()
	a.ImageView.DeleteSymbol(addr, name)
	if f, ok := a.functions[addr]; ok {
		f.rename(defaultName(addr))
	}
	a.updateRequested = true
}

// SetAddressColumn toggles the eight-hex-digit address column rendered
// ahead of every instruction.
func (a *Analysis) SetAddressColumn(on bool) {
	a.lock()
	defer a.unlock()
	a.opts.Address = on
	a.updateRequested = true
}

// onDataWrite re-queues every function whose decoded instruction range
// overlaps a write, so a patch or manual edit is reflected the next time
// discovery drains its queue.
func (a *Analysis) onDataWrite(addr bin.Addr, data []byte) {
	a.lock()
	defer a.unlock()
	start := addr
	end := addr + bin.Addr(len(data))
	for _, f := range a.functions {
		if a.inQueueLocked(f.Entry) {
			continue
		}
		for _, block := range f.Blocks {
			added := false
			for _, inst := range block.Insts {
				instEnd := inst.Addr() + bin.Addr(len(inst.Bytes()))
				if end > inst.Addr() && start < instEnd {
					a.queue = append(a.queue, f.Entry)
					added = true
					break
				}
			}
			if added {
				break
			}
		}
	}
}

// pltName reports the imported symbol name if inst resolves to a known
// PLT/IAT slot, either directly (a PPC-style immediate branch target) or
// through a dereferenced memory operand (an x86 jmp/call [rip+disp] or
// jmp dword ptr [addr] trampoline, per Analysis.py's X86Instruction, the
// only original instruction class that ever sets self.plt).
func (a *Analysis) pltName(inst arch.Inst) (string, bool) {
	if target, ok := inst.Target(); ok {
		if name, ok := a.ImageView.PLT()[target]; ok {
			return name, true
		}
	}
	if target, ok := inst.MemTarget(); ok {
		if name, ok := a.ImageView.PLT()[target]; ok {
			return name, true
		}
	}
	return "", false
}
