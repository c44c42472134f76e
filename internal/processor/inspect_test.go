package processor

import (
	"slices"
	"testing"

	"relist/internal/decoder"
)

func nops(n int) *Processor[*fakeDecoder] {
	section := make([]byte, n)
	for i := range section {
		section[i] = 0x90
	}
	p := New(section, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(nil)
	return p
}

func TestInRange(t *testing.T) {
	p := nops(5)

	tests := []struct {
		name       string
		start, end Bound
		want       []uint64
	}{
		{"unbounded", Unbounded(), Unbounded(), []uint64{0x1000, 0x1001, 0x1002, 0x1003, 0x1004}},
		{"included excluded", Included(0x1001), Excluded(0x1003), []uint64{0x1001, 0x1002}},
		{"excluded included", Excluded(0x1001), Included(0x1003), []uint64{0x1002, 0x1003}},
		{"open start", Unbounded(), Excluded(0x1002), []uint64{0x1000, 0x1001}},
		{"open end", Included(0x1003), Unbounded(), []uint64{0x1003, 0x1004}},
		{"between entries", Included(0x0fff), Included(0x1000), []uint64{0x1000}},
		{"reversed", Included(0x1003), Included(0x1001), nil},
		{"empty", Excluded(0x1002), Excluded(0x1003), nil},
		{"past end", Included(0x2000), Unbounded(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := addrs(p.InRange(tt.start, tt.end)); !slices.Equal(got, tt.want) {
				t.Errorf("InRange() = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestSpan(t *testing.T) {
	p := nops(3)
	s := p.Iter()

	var back []uint64
	for addr := range s.Backward() {
		back = append(back, addr)
	}
	if !slices.Equal(back, []uint64{0x1002, 0x1001, 0x1000}) {
		t.Errorf("Backward() = %#x", back)
	}

	if addr, _, ok := s.First(); !ok || addr != 0x1000 {
		t.Errorf("First() = %#x, %v", addr, ok)
	}
	if addr, _, ok := s.Last(); !ok || addr != 0x1002 {
		t.Errorf("Last() = %#x, %v", addr, ok)
	}
	if addr, r := s.At(1); addr != 0x1001 || !r.OK() {
		t.Errorf("At(1) = %#x, %+v", addr, r)
	}

	// early exit
	n := 0
	for range s.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("All() did not stop")
	}

	if got := s.Head(2).Len(); got != 2 {
		t.Errorf("Head(2).Len() = %d", got)
	}
	if got := s.Head(10).Len(); got != 3 {
		t.Errorf("Head(10).Len() = %d", got)
	}
	if got := s.Head(-1).Len(); got != 3 {
		t.Errorf("Head(-1).Len() = %d", got)
	}

	var empty Span
	if _, _, ok := empty.First(); ok {
		t.Errorf("First() on empty span = ok")
	}
	if _, _, ok := empty.Last(); ok {
		t.Errorf("Last() on empty span = ok")
	}
}

func TestLookupAndIndex(t *testing.T) {
	p := New([]byte{0xe8, 0x00, 0x90}, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(nil)

	if _, ok := p.Lookup(0x1001); ok {
		t.Errorf("Lookup() inside an instruction succeeded")
	}
	if r, ok := p.Lookup(0x1002); !ok || r.Inst.Mnemonic != "nop" {
		t.Errorf("Lookup(0x1002) = %+v, %v", r, ok)
	}

	tests := []struct {
		addr uint64
		want int
	}{
		{0x0, 0},
		{0x1000, 0},
		{0x1001, 1},
		{0x1002, 1},
		{0x1003, 2},
	}
	for _, tt := range tests {
		if got := p.Index(tt.addr); got != tt.want {
			t.Errorf("Index(%#x) = %d, want %d", tt.addr, got, tt.want)
		}
	}
}

func TestAccessors(t *testing.T) {
	p := New([]byte{0xe8, 0x00, 0x90}, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(nil)

	if p.BaseAddr() != 0x1000 {
		t.Errorf("BaseAddr() = %#x", p.BaseAddr())
	}
	if len(p.Section()) != 3 {
		t.Errorf("Section() len = %d", len(p.Section()))
	}
	if p.MaxWidth() != 3 {
		t.Errorf("MaxWidth() = %d", p.MaxWidth())
	}

	r, _ := p.Lookup(0x1000)
	if got := p.Bytes(r, 0x1000); got != "e8 00     " {
		t.Errorf("Bytes() = %q", got)
	}
	if got := p.Bytes(r, 0x5000); got != "" {
		t.Errorf("Bytes() out of window = %q", got)
	}
	if got := p.Bytes(r, 0x10); got != "" {
		t.Errorf("Bytes() below base = %q", got)
	}

	// a width running past the end is clamped
	wide := Result{Inst: &decoder.Inst{Width: 10}}
	if got := p.Bytes(wide, 0x1002); got != "90        " {
		t.Errorf("Bytes() clamped = %q", got)
	}
}
