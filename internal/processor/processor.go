// Package processor runs the decode sweep over a code section and holds
// the resulting address ordered instruction table.
package processor

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"relist/internal/decoder"
	"relist/internal/logging"
	"relist/internal/symbols"
)

// DefaultEntryFallback is the offset from the section base seeded when
// the entry point lies below the section.
const DefaultEntryFallback = 0x1000

// Xref is a resolved reference from an instruction to an address.
// Label is nil when no label covers Target.
type Xref struct {
	Target uint64
	Label  *symbols.Label
	Offset uint64
}

// Result is one table entry: a decoded instruction or a failure.
type Result struct {
	Inst  *decoder.Inst
	Xrefs []Xref
	Err   *decoder.Error
}

// OK reports whether the entry holds an instruction.
func (r Result) OK() bool { return r.Inst != nil }

// Width is the number of bytes the entry covers.
func (r Result) Width() int {
	switch {
	case r.Inst != nil:
		return max(r.Inst.Width, 1)
	case r.Err != nil:
		return r.Err.IncompleteWidth()
	}
	return 1
}

type entry struct {
	addr uint64
	res  Result
}

type options struct {
	follow   bool
	fallback uint64
	logger   *log.Logger
}

// Option configures a Processor.
type Option func(*options)

// WithFollowTargets also enqueues in-window targets of decoded
// instructions.
func WithFollowTargets(follow bool) Option {
	return func(o *options) { o.follow = follow }
}

// WithEntryFallback sets the offset seeded when the entry point
// underflows the section base.
func WithEntryFallback(off uint64) Option {
	return func(o *options) { o.fallback = off }
}

// WithLogger sets the logger used for sweep diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Processor decodes one section with decoder D. The zero value is not
// usable; create it with New.
type Processor[D decoder.Decodable] struct {
	section []byte
	base    uint64
	entry   uint64
	decoder D
	opts    options

	table    []entry
	failures int
}

// New returns a processor over section, which is mapped at base. No
// decoding happens until Recurse.
func New[D decoder.Decodable](section []byte, base, entry uint64, d D, opts ...Option) *Processor[D] {
	o := options{fallback: DefaultEntryFallback}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Default()
	}
	return &Processor[D]{
		section: section,
		base:    base,
		entry:   entry,
		decoder: d,
		opts:    o,
	}
}

// offset returns the window offset of addr.
func (p *Processor[D]) offset(addr uint64) (int, bool) {
	if addr < p.base {
		return 0, false
	}
	off := addr - p.base
	if off >= uint64(len(p.section)) {
		return 0, false
	}
	return int(off), true
}

func advance(addr uint64, width int) (uint64, bool) {
	w := uint64(max(width, 1))
	if addr > math.MaxUint64-w {
		return 0, false
	}
	return addr + w, true
}

// decode runs one decode step. Decoders see untrusted bytes, so a panic
// is turned into a complete one byte failure.
func (p *Processor[D]) decode(addr uint64, off int) (inst decoder.Inst, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = decoder.Invalid(decoder.Unsupported, 1, fmt.Errorf("decoder panic: %v", r))
		}
	}()
	return p.decoder.Decode(decoder.NewReader(p.section[off:]), addr)
}

// Recurse sweeps the section from its base and from the entry point,
// then resolves every instruction's targets against labels, which may
// be nil. Calling it again rebuilds the table.
func (p *Processor[D]) Recurse(labels symbols.Resolver) {
	start := time.Now()

	staged := make(map[uint64]decoder.Inst)
	failed := make(map[uint64]*decoder.Error)
	visited := make(map[uint64]struct{})

	queue := []uint64{p.base}
	if p.entry >= p.base {
		queue = append(queue, p.entry)
	} else {
		seed, ok := addChecked(p.base, p.opts.fallback)
		p.opts.logger.Warn("entry point below section base, using fallback",
			"entry", fmt.Sprintf("%#x", p.entry),
			"base", fmt.Sprintf("%#x", p.base),
			"fallback", fmt.Sprintf("%#x", seed))
		if ok {
			queue = append(queue, seed)
		}
	}

	for head := 0; head < len(queue); head++ {
		addr := queue[head]
		if _, seen := visited[addr]; seen {
			continue
		}
		off, ok := p.offset(addr)
		if !ok {
			continue
		}
		visited[addr] = struct{}{}

		inst, err := p.decode(addr, off)
		if err != nil {
			de := decoder.AsError(err)
			if !de.Complete {
				continue
			}
			failed[addr] = de
			if next, ok := advance(addr, de.IncompleteWidth()); ok {
				queue = append(queue, next)
			}
			continue
		}

		inst.Width = max(inst.Width, 1)
		staged[addr] = inst
		if next, ok := advance(addr, inst.Width); ok {
			queue = append(queue, next)
		}
		if p.opts.follow {
			for _, t := range inst.Targets {
				if _, ok := p.offset(t); ok {
					queue = append(queue, t)
				}
			}
		}
	}

	table := make([]entry, 0, len(staged)+len(failed))
	for addr, inst := range staged {
		table = append(table, entry{addr: addr, res: Result{
			Inst:  &inst,
			Xrefs: xrefs(inst.Targets, labels),
		}})
	}
	for addr, de := range failed {
		table = append(table, entry{addr: addr, res: Result{Err: de}})
	}
	slices.SortFunc(table, func(a, b entry) int { return cmp.Compare(a.addr, b.addr) })

	p.table = table
	p.failures = len(failed)

	p.opts.logger.Debug("sweep finished",
		"instructions", len(staged),
		"failures", len(failed),
		"elapsed", time.Since(start))
}

func addChecked(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

func xrefs(targets []uint64, labels symbols.Resolver) []Xref {
	if len(targets) == 0 {
		return nil
	}
	out := make([]Xref, 0, len(targets))
	for _, t := range targets {
		x := Xref{Target: t}
		if labels != nil {
			if l, off, ok := labels.Resolve(t); ok {
				x.Label, x.Offset = l, off
			}
		}
		out = append(out, x)
	}
	return out
}
