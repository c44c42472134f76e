package processor

import (
	"iter"
	"sort"

	"relist/internal/decoder"
)

// InspectProcessor is the architecture independent, read-only view of
// a finished Processor.
type InspectProcessor interface {
	Iter() Span
	InRange(start, end Bound) Span
	InstructionCount() int
	FailureCount() int
	BaseAddr() uint64
	Section() []byte
	MaxWidth() int
	Bytes(r Result, addr uint64) string
	Lookup(addr uint64) (Result, bool)
	Index(addr uint64) int
}

var _ InspectProcessor = (*Processor[decoder.Decodable])(nil)

type boundKind uint8

const (
	unbounded boundKind = iota
	included
	excluded
)

// Bound is one end of an address range.
type Bound struct {
	kind boundKind
	addr uint64
}

// Included is a bound that contains addr.
func Included(addr uint64) Bound { return Bound{kind: included, addr: addr} }

// Excluded is a bound that stops just short of addr.
func Excluded(addr uint64) Bound { return Bound{kind: excluded, addr: addr} }

// Unbounded is an open end of a range.
func Unbounded() Bound { return Bound{} }

// Span is a contiguous, address ordered run of table entries.
type Span struct {
	entries []entry
}

// Len is the number of entries in the span.
func (s Span) Len() int { return len(s.entries) }

// At returns the i-th entry of the span.
func (s Span) At(i int) (uint64, Result) {
	e := s.entries[i]
	return e.addr, e.res
}

// First returns the lowest addressed entry, or false if the span is empty.
func (s Span) First() (uint64, Result, bool) {
	if len(s.entries) == 0 {
		return 0, Result{}, false
	}
	addr, r := s.At(0)
	return addr, r, true
}

// Last returns the highest addressed entry, or false if the span is empty.
func (s Span) Last() (uint64, Result, bool) {
	if len(s.entries) == 0 {
		return 0, Result{}, false
	}
	addr, r := s.At(len(s.entries) - 1)
	return addr, r, true
}

// Head returns the first n entries, or the whole span when n is out of
// range.
func (s Span) Head(n int) Span {
	if n < 0 || n >= len(s.entries) {
		return s
	}
	return Span{entries: s.entries[:n]}
}

// All yields the entries in ascending address order.
func (s Span) All() iter.Seq2[uint64, Result] {
	return func(yield func(uint64, Result) bool) {
		for _, e := range s.entries {
			if !yield(e.addr, e.res) {
				return
			}
		}
	}
}

// Backward yields the entries in descending address order.
func (s Span) Backward() iter.Seq2[uint64, Result] {
	return func(yield func(uint64, Result) bool) {
		for i := len(s.entries) - 1; i >= 0; i-- {
			if !yield(s.entries[i].addr, s.entries[i].res) {
				return
			}
		}
	}
}

// Iter returns the whole table.
func (p *Processor[D]) Iter() Span { return Span{entries: p.table} }

// InRange returns the entries between start and end.
func (p *Processor[D]) InRange(start, end Bound) Span {
	lo := 0
	switch start.kind {
	case included:
		lo = p.search(func(a uint64) bool { return a >= start.addr })
	case excluded:
		lo = p.search(func(a uint64) bool { return a > start.addr })
	}
	hi := len(p.table)
	switch end.kind {
	case included:
		hi = p.search(func(a uint64) bool { return a > end.addr })
	case excluded:
		hi = p.search(func(a uint64) bool { return a >= end.addr })
	}
	if lo >= hi {
		return Span{}
	}
	return Span{entries: p.table[lo:hi]}
}

func (p *Processor[D]) search(pred func(uint64) bool) int {
	return sort.Search(len(p.table), func(i int) bool { return pred(p.table[i].addr) })
}

// InstructionCount is the number of table entries, decoded instructions and
// recorded failures alike.
func (p *Processor[D]) InstructionCount() int { return len(p.table) }

// FailureCount is the number of table entries that hold a decode failure.
func (p *Processor[D]) FailureCount() int { return p.failures }

func (p *Processor[D]) BaseAddr() uint64 { return p.base }

func (p *Processor[D]) Section() []byte { return p.section }

func (p *Processor[D]) MaxWidth() int { return p.decoder.MaxWidth() }

// Bytes renders the bytes covered by r at addr as hex, truncated to fit
// the widest instruction. Addresses outside the section yield "".
func (p *Processor[D]) Bytes(r Result, addr uint64) string {
	off, ok := p.offset(addr)
	if !ok {
		return ""
	}
	end := min(off+r.Width(), len(p.section))
	return decoder.EncodeHexBytesTruncated(p.section[off:end], p.MaxWidth()*3+1)
}

// Lookup returns the entry at exactly addr.
func (p *Processor[D]) Lookup(addr uint64) (Result, bool) {
	i := p.Index(addr)
	if i < len(p.table) && p.table[i].addr == addr {
		return p.table[i].res, true
	}
	return Result{}, false
}

// Index returns the position of the first entry at or above addr.
func (p *Processor[D]) Index(addr uint64) int {
	return p.search(func(a uint64) bool { return a >= addr })
}
