package symbols

import (
	"errors"
	"slices"
	"testing"

	"relist/internal/demangle"
	"relist/internal/image"
)

type fakeSource struct {
	syms    []image.Symbol
	imports []image.Import
	err     error
}

func (f fakeSource) Symbols() ([]image.Symbol, error) { return f.syms, f.err }
func (f fakeSource) Imports() ([]image.Import, error) { return f.imports, f.err }

func TestInsertKeepsFirst(t *testing.T) {
	x := New()
	if !x.Insert(NewLabel(0x1000, 0x10, "first", Function)) {
		t.Fatalf("first Insert() = false")
	}
	if x.Insert(NewLabel(0x1000, 0x20, "second", Function)) {
		t.Errorf("second Insert() at the same address = true")
	}
	l, ok := x.Get(0x1000)
	if !ok || l.Name != "first" {
		t.Errorf("Get(0x1000) = %v, %v", l, ok)
	}
	if x.Len() != 1 {
		t.Errorf("Len() = %d, want 1", x.Len())
	}
}

func TestResolve(t *testing.T) {
	x := New()
	x.Insert(NewLabel(0x1000, 0x10, "f", Function))
	x.Insert(NewLabel(0x2000, 0, "g", Import))

	tests := []struct {
		name   string
		addr   uint64
		label  string
		offset uint64
		ok     bool
	}{
		{"below all", 0x10, "", 0, false},
		{"start", 0x1000, "f", 0, true},
		{"inside", 0x1008, "f", 8, true},
		{"past size", 0x1010, "", 0, false},
		{"sizeless exact", 0x2000, "g", 0, true},
		{"sizeless after", 0x2001, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, off, ok := x.Resolve(tt.addr)
			if ok != tt.ok {
				t.Fatalf("Resolve(%#x) ok = %v, want %v", tt.addr, ok, tt.ok)
			}
			if !ok {
				return
			}
			if l.Name != tt.label || off != tt.offset {
				t.Errorf("Resolve(%#x) = %s+%#x, want %s+%#x", tt.addr, l.Name, off, tt.label, tt.offset)
			}
		})
	}
}

func TestAllOrdered(t *testing.T) {
	x := New()
	for _, addr := range []uint64{0x30, 0x10, 0x20} {
		x.Insert(NewLabel(addr, 0, "l", Object))
	}
	var got []uint64
	for l := range x.All() {
		got = append(got, l.Addr)
	}
	if !slices.Equal(got, []uint64{0x10, 0x20, 0x30}) {
		t.Errorf("All() order = %#x", got)
	}
}

func TestLabelDemangles(t *testing.T) {
	l := NewLabel(0x10, 0, "_RNvC4bite6decode", Function)
	if l.String() != "bite::decode" {
		t.Errorf("String() = %q", l.String())
	}
	if l.Scheme != demangle.RustV0 {
		t.Errorf("Scheme = %v", l.Scheme)
	}
	if l.Name != "_RNvC4bite6decode" {
		t.Errorf("Name = %q, want the mangled name", l.Name)
	}
}

func TestParseDebugAndImports(t *testing.T) {
	src := fakeSource{
		syms: []image.Symbol{
			{Name: "main", Addr: 0x1000, Size: 8, Func: true},
			{Name: "table", Addr: 0x3000, Size: 64},
		},
		imports: []image.Import{
			{Name: "puts", Addr: 0x2010, Slot: 0x4000},
			// debug symbols win over imports at the same address
			{Name: "shadow", Addr: 0x1000},
		},
	}

	x := New()
	if err := x.ParseDebug(src); err != nil {
		t.Fatalf("ParseDebug() error: %v", err)
	}
	if err := x.ParseImports(src); err != nil {
		t.Fatalf("ParseImports() error: %v", err)
	}

	if x.Len() != 4 {
		t.Errorf("Len() = %d, want 4", x.Len())
	}
	if l, _ := x.Get(0x1000); l.Name != "main" || l.Kind != Function {
		t.Errorf("Get(0x1000) = %+v", l)
	}
	if l, _ := x.Get(0x3000); l.Kind != Object {
		t.Errorf("Get(0x3000).Kind = %v", l.Kind)
	}
	for _, addr := range []uint64{0x2010, 0x4000} {
		l, ok := x.Get(addr)
		if !ok || l.Name != "puts" || l.Kind != Import {
			t.Errorf("Get(%#x) = %+v, %v", addr, l, ok)
		}
	}
}

func TestParseErrorsKeepPartial(t *testing.T) {
	boom := errors.New("boom")
	src := fakeSource{
		syms: []image.Symbol{{Name: "a", Addr: 0x10}},
		err:  boom,
	}
	x := New()
	if err := x.ParseDebug(src); !errors.Is(err, boom) {
		t.Errorf("ParseDebug() error = %v, want boom", err)
	}
	if x.Len() != 1 {
		t.Errorf("Len() = %d, want 1", x.Len())
	}
}

func TestCache(t *testing.T) {
	if err := SetCacheSize(2); err != nil {
		t.Fatalf("SetCacheSize() error: %v", err)
	}
	defer SetCacheSize(DefaultCacheSize)

	a, _ := Demangle("_RNvC4bite6decode")
	b, _ := Demangle("_RNvC4bite6decode")
	if a != b {
		t.Errorf("cached stream not reused")
	}
	Demangle("x")
	Demangle("y")
	if CacheLen() != 2 {
		t.Errorf("CacheLen() = %d, want 2", CacheLen())
	}

	if err := SetCacheSize(0); err != nil {
		t.Fatalf("SetCacheSize(0) error: %v", err)
	}
	if toks, scheme := Demangle("main"); toks.String() != "main" || scheme != demangle.Raw {
		t.Errorf("uncached Demangle(main) = %q, %v", toks.String(), scheme)
	}
	if CacheLen() != 0 {
		t.Errorf("CacheLen() with caching disabled = %d", CacheLen())
	}
}
