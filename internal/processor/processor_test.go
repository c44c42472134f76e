package processor

import (
	"bytes"
	"errors"
	"io"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"relist/internal/decoder"
	"relist/internal/symbols"
	"relist/internal/tokens"
)

// fakeDecoder understands a tiny instruction set:
//
//	90        nop
//	e8 rel8   call, target = next + rel8
//	fe        invalid, spans 3 bytes
//	cc        makes the decoder panic
//	anything  invalid, spans 1 byte
type fakeDecoder struct {
	calls map[uint64]int
}

func newFake() *fakeDecoder { return &fakeDecoder{calls: map[uint64]int{}} }

func (f *fakeDecoder) MaxWidth() int { return 3 }

func (f *fakeDecoder) Decode(r *decoder.Reader, addr uint64) (decoder.Inst, error) {
	f.calls[addr]++
	b := r.Peek(2)
	if len(b) == 0 {
		return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
	}
	switch b[0] {
	case 0x90:
		return inst(1, "nop", nil), nil
	case 0xe8:
		if len(b) < 2 {
			return decoder.Inst{}, decoder.Truncated(decoder.ErrShort)
		}
		target := addr + 2 + uint64(int64(int8(b[1])))
		return inst(2, "call", []uint64{target}), nil
	case 0xfe:
		return decoder.Inst{}, decoder.Invalid(decoder.InvalidOperand, 3, nil)
	case 0xcc:
		panic("boom")
	}
	return decoder.Inst{}, errors.New("unknown opcode")
}

func inst(width int, mnemonic string, targets []uint64) decoder.Inst {
	return decoder.Inst{
		Width:    width,
		Mnemonic: mnemonic,
		Text:     mnemonic,
		Tokens:   tokens.FromString(mnemonic, tokens.Mnemonic),
		Targets:  targets,
	}
}

func quiet() Option { return WithLogger(log.New(io.Discard)) }

func addrs(s Span) []uint64 {
	var out []uint64
	for addr := range s.All() {
		out = append(out, addr)
	}
	return out
}

func TestRecurse(t *testing.T) {
	tests := []struct {
		name     string
		section  []byte
		entry    uint64
		opts     []Option
		want     []uint64
		failures int
	}{
		{"empty", nil, 0x1000, nil, nil, 0},
		{"linear", []byte{0x90, 0x90, 0xe8, 0x00, 0x90}, 0x1000, nil, []uint64{0x1000, 0x1001, 0x1002, 0x1004}, 0},
		{"entry inside instruction", []byte{0xe8, 0x90, 0x90}, 0x1001, nil, []uint64{0x1000, 0x1001, 0x1002}, 0},
		{"entry outside window", []byte{0x90}, 0x9000, nil, []uint64{0x1000}, 0},
		{"truncated tail", []byte{0x90, 0xe8}, 0x1000, nil, []uint64{0x1000}, 0},
		{"complete failures", []byte{0xff, 0xfe, 0x90, 0x90, 0x90}, 0x1000, nil, []uint64{0x1000, 0x1001, 0x1004}, 2},
		{"failure inside window", []byte{0x90, 0xfe, 0x00, 0x00, 0x90}, 0x1000, nil, []uint64{0x1000, 0x1001, 0x1004}, 1},
		{"panic", []byte{0xcc, 0x90}, 0x1000, nil, []uint64{0x1000, 0x1001}, 1},
		{"no follow", []byte{0xe8, 0x01, 0xfe, 0x90, 0x90}, 0x1000, nil, []uint64{0x1000, 0x1002}, 1},
		{
			"follow targets",
			[]byte{0xe8, 0x01, 0xfe, 0x90, 0x90},
			0x1000,
			[]Option{WithFollowTargets(true)},
			[]uint64{0x1000, 0x1002, 0x1003, 0x1004},
			1,
		},
		{
			"follow ignores out of window",
			[]byte{0xe8, 0x7f, 0x90},
			0x1000,
			[]Option{WithFollowTargets(true)},
			[]uint64{0x1000, 0x1002},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			p := New(tt.section, 0x1000, tt.entry, f, append(tt.opts, quiet())...)
			p.Recurse(nil)

			if got := addrs(p.Iter()); !slices.Equal(got, tt.want) {
				t.Errorf("addresses = %#x, want %#x", got, tt.want)
			}
			if p.InstructionCount() != len(tt.want) {
				t.Errorf("InstructionCount() = %d, want %d", p.InstructionCount(), len(tt.want))
			}
			if p.FailureCount() != tt.failures {
				t.Errorf("FailureCount() = %d, want %d", p.FailureCount(), tt.failures)
			}
			for addr, n := range f.calls {
				if n != 1 {
					t.Errorf("address %#x decoded %d times", addr, n)
				}
			}
		})
	}
}

func TestRecurseFailureEntries(t *testing.T) {
	p := New([]byte{0xff, 0xfe, 0x90, 0x90, 0x90}, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(nil)

	r, ok := p.Lookup(0x1001)
	if !ok {
		t.Fatalf("Lookup(0x1001) missing")
	}
	if r.OK() || r.Err == nil || r.Err.Kind != decoder.InvalidOperand || !r.Err.Complete {
		t.Errorf("Lookup(0x1001) = %+v", r)
	}
	if r.Width() != 3 {
		t.Errorf("Width() = %d, want 3", r.Width())
	}
	if got := p.Bytes(r, 0x1001); got != "fe 90 90  " {
		t.Errorf("Bytes() = %q", got)
	}

	r, _ = p.Lookup(0x1000)
	if r.Err == nil || r.Err.Kind != decoder.InvalidOpcode {
		t.Errorf("foreign error not converted: %+v", r)
	}
}

func TestEntryFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)

	p := New([]byte{0xe8, 0x90, 0x90, 0x90}, 0x2000, 0x10, newFake(),
		WithEntryFallback(1), WithLogger(logger))
	p.Recurse(nil)

	want := []uint64{0x2000, 0x2001, 0x2002, 0x2003}
	if got := addrs(p.Iter()); !slices.Equal(got, want) {
		t.Errorf("addresses = %#x, want %#x", got, want)
	}
	if !strings.Contains(buf.String(), "fallback") {
		t.Errorf("no fallback warning logged: %q", buf.String())
	}
}

func TestDefaultEntryFallbackOutOfWindow(t *testing.T) {
	p := New([]byte{0x90}, 0x2000, 0x10, newFake(), quiet())
	p.Recurse(nil)
	if p.Iter().Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Iter().Len())
	}
}

func TestRecurseOverflow(t *testing.T) {
	base := uint64(math.MaxUint64 - 1)
	p := New([]byte{0x90, 0x90}, base, base, newFake(), quiet())
	p.Recurse(nil)

	want := []uint64{base, math.MaxUint64}
	if got := addrs(p.Iter()); !slices.Equal(got, want) {
		t.Errorf("addresses = %#x, want %#x", got, want)
	}
}

func TestRecurseAllInvalid(t *testing.T) {
	section := bytes.Repeat([]byte{0xff}, 1000)
	p := New(section, 0, 0, newFake(), quiet())
	p.Recurse(nil)
	if p.Iter().Len() != 1000 {
		t.Errorf("Len() = %d, want 1000", p.Iter().Len())
	}
	if p.InstructionCount() != 1000 || p.FailureCount() != 1000 {
		t.Errorf("InstructionCount() = %d, FailureCount() = %d, want 1000 each",
			p.InstructionCount(), p.FailureCount())
	}
}

func TestRecurseTwice(t *testing.T) {
	p := New([]byte{0x90, 0x90, 0x90}, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(nil)
	p.Recurse(nil)
	if p.Iter().Len() != 3 {
		t.Errorf("Len() = %d, want 3", p.Iter().Len())
	}
}

func TestXrefs(t *testing.T) {
	labels := symbols.New()
	labels.Insert(symbols.NewLabel(0x1004, 4, "target", symbols.Function))

	// call 0x1005, call 0x1004, nop, nop, nop
	section := []byte{0xe8, 0x03, 0xe8, 0x00, 0x90, 0x90, 0x90}
	p := New(section, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(labels)

	r, _ := p.Lookup(0x1000)
	if len(r.Xrefs) != 1 || r.Xrefs[0].Target != 0x1005 {
		t.Fatalf("Xrefs = %+v", r.Xrefs)
	}
	if x := r.Xrefs[0]; x.Label == nil || x.Label.Name != "target" || x.Offset != 1 {
		t.Errorf("xref = %+v", x)
	}

	r, _ = p.Lookup(0x1002)
	if x := r.Xrefs[0]; x.Label == nil || x.Offset != 0 {
		t.Errorf("xref = %+v", x)
	}

	r, _ = p.Lookup(0x1004)
	if r.Xrefs != nil {
		t.Errorf("nop has xrefs: %+v", r.Xrefs)
	}
}

func TestXrefUnresolved(t *testing.T) {
	p := New([]byte{0xe8, 0x10}, 0x1000, 0x1000, newFake(), quiet())
	p.Recurse(symbols.New())
	r, _ := p.Lookup(0x1000)
	if len(r.Xrefs) != 1 || r.Xrefs[0].Label != nil || r.Xrefs[0].Target != 0x1012 {
		t.Errorf("Xrefs = %+v", r.Xrefs)
	}
}
