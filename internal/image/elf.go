package image

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

func parseELF(r io.ReaderAt) (*Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("open elf: %w", err)
	}

	im := &Image{
		Format: ELF,
		Arch:   elfArch(f),
		Entry:  f.Entry,
	}

	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS || s.Size == 0 {
			continue
		}
		im.Sections = append(im.Sections, Section{
			Name: s.Name,
			Addr: s.Addr,
			Size: s.Size,
			Exec: s.Flags&elf.SHF_EXECINSTR != 0,
			data: s.Data,
		})
	}

	// Fallback for images without section headers.
	if len(im.Sections) == 0 {
		for _, p := range f.Progs {
			if p.Type != elf.PT_LOAD || p.Filesz == 0 {
				continue
			}
			name := "LOAD(ro)"
			if p.Flags&elf.PF_X != 0 {
				name = "LOAD(exec)"
			}
			im.Sections = append(im.Sections, Section{
				Name: name,
				Addr: p.Vaddr,
				Size: p.Filesz,
				Exec: p.Flags&elf.PF_X != 0,
				data: readAll(p.Open()),
			})
		}
	}

	e := &elfImage{f: f, im: im}
	im.symbols = e.symbols
	im.imports = e.imports
	return im, nil
}

func readAll(r io.Reader) func() ([]byte, error) {
	return func() ([]byte, error) { return io.ReadAll(r) }
}

func elfArch(f *elf.File) Arch {
	switch f.Machine {
	case elf.EM_386:
		return X86
	case elf.EM_X86_64:
		return X86_64
	case elf.EM_ARM:
		return ARM
	case elf.EM_AARCH64:
		return ARM64
	case elf.EM_RISCV:
		if f.Class == elf.ELFCLASS32 {
			return RISCV32
		}
		return RISCV64
	case elf.EM_PPC64:
		if f.Data == elf.ELFDATA2LSB {
			return PPC64LE
		}
		return PPC64
	case elf.EM_MIPS:
		return MIPS
	}
	return ArchUnknown
}

type elfImage struct {
	f  *elf.File
	im *Image
}

// symbols loads .symtab and the defined part of .dynsym. Undefined and
// section or file symbols are skipped.
func (e *elfImage) symbols() ([]Symbol, error) {
	var out []Symbol
	for _, load := range []func() ([]elf.Symbol, error){e.f.Symbols, e.f.DynamicSymbols} {
		syms, err := load()
		if errors.Is(err, elf.ErrNoSymbols) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("read elf symbols: %w", err)
		}
		for _, sym := range syms {
			if sym.Name == "" || sym.Section == elf.SHN_UNDEF || sym.Value == 0 {
				continue
			}
			typ := elf.ST_TYPE(sym.Info)
			if typ == elf.STT_SECTION || typ == elf.STT_FILE {
				continue
			}
			out = append(out, Symbol{
				Name: sym.Name,
				Addr: sym.Value,
				Size: sym.Size,
				Func: typ == elf.STT_FUNC,
			})
		}
	}
	return out, nil
}

// pltRel is one parsed .rela.plt or .rel.plt entry.
type pltRel struct {
	offset   uint64
	symIndex uint32
}

// imports maps the PLT relocations to their stubs.
func (e *elfImage) imports() ([]Import, error) {
	rels, err := e.pltRelocations()
	if err != nil || len(rels) == 0 {
		return nil, err
	}

	dynsyms, err := e.f.DynamicSymbols()
	if err != nil {
		return nil, fmt.Errorf("read elf dynamic symbols: %w", err)
	}

	stubs := e.pltStubs(len(rels))
	out := make([]Import, 0, len(rels))
	for i, rel := range rels {
		// relocation symbol indices are 1-based, DynamicSymbols skips entry 0
		if rel.symIndex == 0 || int(rel.symIndex) > len(dynsyms) {
			continue
		}
		sym := dynsyms[rel.symIndex-1]
		name := strings.TrimSuffix(sym.Name, "@plt")
		if name == "" {
			continue
		}
		imp := Import{Name: name, Library: sym.Library, Slot: rel.offset}
		if addr, ok := stubs[rel.offset]; ok {
			imp.Addr = addr
		} else if addr, ok := e.stubAt(i); ok {
			imp.Addr = addr
		}
		out = append(out, imp)
	}
	return out, nil
}

func (e *elfImage) pltRelocations() ([]pltRel, error) {
	rela := true
	section := e.f.Section(".rela.plt")
	if section == nil {
		rela = false
		section = e.f.Section(".rel.plt")
	}
	if section == nil {
		return nil, nil
	}

	data, err := section.Data()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", section.Name, err)
	}

	order := e.f.ByteOrder
	is64 := e.f.Class == elf.ELFCLASS64

	var size int
	switch {
	case is64 && rela:
		size = 24
	case is64:
		size = 16
	case rela:
		size = 12
	default:
		size = 8
	}
	if len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %s size %d is not a multiple of %d", ErrMalformed, section.Name, len(data), size)
	}

	rels := make([]pltRel, 0, len(data)/size)
	for off := 0; off < len(data); off += size {
		entry := data[off : off+size]
		if is64 {
			rels = append(rels, pltRel{
				offset:   order.Uint64(entry),
				symIndex: uint32(order.Uint64(entry[8:]) >> 32),
			})
			continue
		}
		rels = append(rels, pltRel{
			offset:   uint64(order.Uint32(entry)),
			symIndex: order.Uint32(entry[4:]) >> 8,
		})
	}
	return rels, nil
}

// pltStubs scans an AArch64 .plt for adrp/ldr stubs and maps each GOT
// slot to the stub loading it. Other architectures use fixed layouts.
func (e *elfImage) pltStubs(n int) map[uint64]uint64 {
	out := make(map[uint64]uint64, n)
	if e.im.Arch != ARM64 {
		return out
	}
	plt := e.f.Section(".plt")
	if plt == nil {
		return out
	}
	data, err := plt.Data()
	if err != nil {
		return out
	}

	// PLT[0] is the resolver, function stubs follow at 16 byte strides.
	const stubSize = 16
	for off := uint64(stubSize); off+stubSize <= uint64(len(data)); off += stubSize {
		addr := plt.Addr + off
		if got, ok := parseARM64Stub(data[off:off+stubSize], addr); ok {
			out[got] = addr
		}
	}
	return out
}

// stubAt returns the address of the i-th function stub for layouts
// with a fixed header and stride.
func (e *elfImage) stubAt(i int) (uint64, bool) {
	if sec := e.f.Section(".plt.sec"); sec != nil && (e.im.Arch == X86_64 || e.im.Arch == X86) {
		return sec.Addr + uint64(i)*16, true
	}
	plt := e.f.Section(".plt")
	if plt == nil {
		return 0, false
	}

	var header, stride uint64
	switch e.im.Arch {
	case X86, X86_64:
		header, stride = 16, 16
	case ARM:
		header, stride = 20, 12
	default:
		return 0, false
	}
	addr := plt.Addr + header + uint64(i)*stride
	if addr+stride > plt.Addr+plt.Size {
		return 0, false
	}
	return addr, true
}

// parseARM64Stub decodes the GOT slot of a standard AArch64 PLT stub:
//
//	adrp x16, <page>
//	ldr  x17, [x16, #offset]
//	add  x16, x16, #offset
//	br   x17
func parseARM64Stub(stub []byte, addr uint64) (uint64, bool) {
	if len(stub) < 8 {
		return 0, false
	}

	adrp := binary.LittleEndian.Uint32(stub)
	if adrp&0x9f00001f != 0x90000010 {
		return 0, false
	}
	immLo := (adrp >> 29) & 3
	immHi := (adrp >> 5) & 0x7ffff
	page := int64((immHi << 2) | immLo)
	if page&(1<<20) != 0 {
		page |= ^((1 << 21) - 1)
	}
	base := int64(addr&^0xfff) + page<<12

	ldr := binary.LittleEndian.Uint32(stub[4:])
	if ldr&0xffc003ff != 0xf9400211 {
		return 0, false
	}
	offset := ((ldr >> 10) & 0xfff) << 3

	return uint64(base) + uint64(offset), true
}
