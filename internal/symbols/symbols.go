// Package symbols keeps the address ordered label index consulted by
// the cross-reference pass and the listing renderer.
package symbols

import (
	"fmt"
	"iter"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"relist/internal/demangle"
	"relist/internal/image"
	"relist/internal/tokens"
)

// Kind tells where a label came from.
type Kind uint8

const (
	Function Kind = iota
	Object
	Import
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Object:
		return "object"
	case Import:
		return "import"
	}
	return "unknown"
}

// Label names an address. A zero Size covers the address only.
type Label struct {
	Addr   uint64
	Size   uint64
	Name   string
	Tokens *tokens.Stream
	Scheme demangle.Scheme
	Kind   Kind
}

// NewLabel demangles name and returns a label for it.
func NewLabel(addr, size uint64, name string, kind Kind) *Label {
	toks, scheme := Demangle(name)
	return &Label{
		Addr:   addr,
		Size:   size,
		Name:   name,
		Tokens: toks,
		Scheme: scheme,
		Kind:   kind,
	}
}

// String returns the display name.
func (l *Label) String() string {
	if l.Tokens.Len() == 0 {
		return l.Name
	}
	return l.Tokens.String()
}

// Contains reports whether addr lies in the label's extent.
func (l *Label) Contains(addr uint64) bool {
	if addr < l.Addr {
		return false
	}
	if l.Size == 0 {
		return addr == l.Addr
	}
	return addr-l.Addr < l.Size
}

// Resolver finds the label covering an address and the offset into it.
type Resolver interface {
	Resolve(addr uint64) (*Label, uint64, bool)
}

// Index is an address ordered set of labels. It is not safe for
// concurrent mutation.
type Index struct {
	tree *treemap.Map
}

func New() *Index {
	return &Index{tree: treemap.NewWith(utils.UInt64Comparator)}
}

// Insert adds l unless its address is already labelled. It reports
// whether l was stored.
func (x *Index) Insert(l *Label) bool {
	if _, found := x.tree.Get(l.Addr); found {
		return false
	}
	x.tree.Put(l.Addr, l)
	return true
}

// Get returns the label starting exactly at addr.
func (x *Index) Get(addr uint64) (*Label, bool) {
	v, found := x.tree.Get(addr)
	if !found {
		return nil, false
	}
	return v.(*Label), true
}

// Resolve returns the closest label at or below addr whose extent
// contains it.
func (x *Index) Resolve(addr uint64) (*Label, uint64, bool) {
	_, v := x.tree.Floor(addr)
	if v == nil {
		return nil, 0, false
	}
	l := v.(*Label)
	if !l.Contains(addr) {
		return nil, 0, false
	}
	return l, addr - l.Addr, true
}

// All yields labels in address order.
func (x *Index) All() iter.Seq[*Label] {
	return func(yield func(*Label) bool) {
		it := x.tree.Iterator()
		for it.Next() {
			if !yield(it.Value().(*Label)) {
				return
			}
		}
	}
}

func (x *Index) Len() int { return x.tree.Size() }

// Source is the part of an image the index is populated from.
type Source interface {
	Symbols() ([]image.Symbol, error)
	Imports() ([]image.Import, error)
}

// ParseDebug inserts the image's debug symbols. Symbols read before an
// error are kept.
func (x *Index) ParseDebug(src Source) error {
	syms, err := src.Symbols()
	for _, s := range syms {
		kind := Object
		if s.Func {
			kind = Function
		}
		x.Insert(NewLabel(s.Addr, s.Size, s.Name, kind))
	}
	if err != nil {
		return fmt.Errorf("debug symbols: %w", err)
	}
	return nil
}

// ParseImports labels import stubs and their pointer slots.
func (x *Index) ParseImports(src Source) error {
	imports, err := src.Imports()
	for _, imp := range imports {
		if imp.Addr != 0 {
			x.Insert(NewLabel(imp.Addr, 0, imp.Name, Import))
		}
		if imp.Slot != 0 {
			x.Insert(NewLabel(imp.Slot, 0, imp.Name, Import))
		}
	}
	if err != nil {
		return fmt.Errorf("imports: %w", err)
	}
	return nil
}
