package image

import (
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	lcMain = 0x80000028

	machoAttrPureInstructions = 0x80000000
	machoAttrSomeInstructions = 0x00000400

	machoNonLazyPointers = 0x6
	machoLazyPointers    = 0x7
	machoSymbolStubs     = 0x8

	indirectLocal = 0x80000000
	indirectAbs   = 0x40000000
)

func parseMachO(r io.ReaderAt, magic []byte) (*Image, error) {
	var f *macho.File
	if binary.BigEndian.Uint32(magic) == 0xcafebabe {
		ff, err := macho.NewFatFile(r)
		if err != nil {
			return nil, fmt.Errorf("open fat mach-o: %w", err)
		}
		if len(ff.Arches) == 0 {
			return nil, fmt.Errorf("%w: fat mach-o without architectures", ErrMalformed)
		}
		f = ff.Arches[0].File
	} else {
		var err error
		f, err = macho.NewFile(r)
		if err != nil {
			return nil, fmt.Errorf("open mach-o: %w", err)
		}
	}

	im := &Image{
		Format: MachO,
		Arch:   machoArch(f.Cpu),
	}
	for _, s := range f.Sections {
		if s.Size == 0 || s.Offset == 0 {
			continue
		}
		im.Sections = append(im.Sections, Section{
			Name: s.Seg + "," + s.Name,
			Addr: s.Addr,
			Size: s.Size,
			Exec: s.Flags&(machoAttrPureInstructions|machoAttrSomeInstructions) != 0,
			data: s.Data,
		})
	}
	im.Entry = machoEntry(f)

	m := &machoImage{f: f, im: im}
	im.symbols = m.symbols
	im.imports = m.imports
	return im, nil
}

func machoArch(cpu macho.Cpu) Arch {
	switch cpu {
	case macho.Cpu386:
		return X86
	case macho.CpuAmd64:
		return X86_64
	case macho.CpuArm:
		return ARM
	case macho.CpuArm64:
		return ARM64
	case macho.CpuPpc64:
		return PPC64
	}
	return ArchUnknown
}

// machoEntry reads LC_MAIN. Images without it start at __text.
func machoEntry(f *macho.File) uint64 {
	var text uint64
	if seg := f.Segment("__TEXT"); seg != nil {
		text = seg.Addr
	}
	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) >= 16 && f.ByteOrder.Uint32(raw) == lcMain {
			return text + f.ByteOrder.Uint64(raw[8:])
		}
	}
	if s := f.Section("__text"); s != nil {
		return s.Addr
	}
	return 0
}

type machoImage struct {
	f  *macho.File
	im *Image
}

func (m *machoImage) symbols() ([]Symbol, error) {
	if m.f.Symtab == nil {
		return nil, nil
	}
	var out []Symbol
	for _, sym := range m.f.Symtab.Syms {
		// skip debugger entries and anything not defined in a section
		if sym.Type&0xe0 != 0 || sym.Type&0x0e != 0x0e || sym.Sect == 0 || sym.Name == "" {
			continue
		}
		s := Symbol{Name: sym.Name, Addr: sym.Value}
		if int(sym.Sect) <= len(m.f.Sections) {
			sec := m.f.Sections[sym.Sect-1]
			s.Func = sec.Flags&(machoAttrPureInstructions|machoAttrSomeInstructions) != 0
		}
		out = append(out, s)
	}
	return out, nil
}

// sectionHeader holds the fields debug/macho does not expose.
type sectionHeader struct {
	name      string
	addr      uint64
	size      uint64
	flags     uint32
	reserved1 uint32
	reserved2 uint32
}

// rawSections re-reads the section headers from the segment load
// commands.
func (m *machoImage) rawSections() ([]sectionHeader, error) {
	order := m.f.ByteOrder
	var out []sectionHeader
	for _, l := range m.f.Loads {
		seg, ok := l.(*macho.Segment)
		if !ok {
			continue
		}
		raw := seg.Raw()

		var hdr, size int
		switch seg.Cmd {
		case macho.LoadCmdSegment64:
			hdr, size = 72, 80
		case macho.LoadCmdSegment:
			hdr, size = 56, 68
		default:
			continue
		}
		for i := 0; i < int(seg.Nsect); i++ {
			off := hdr + i*size
			if off+size > len(raw) {
				return out, fmt.Errorf("%w: truncated section headers in %s", ErrMalformed, seg.Name)
			}
			b := raw[off : off+size]
			sh := sectionHeader{name: cstr16(b)}
			if size == 80 {
				sh.addr = order.Uint64(b[32:])
				sh.size = order.Uint64(b[40:])
				sh.flags = order.Uint32(b[64:])
				sh.reserved1 = order.Uint32(b[68:])
				sh.reserved2 = order.Uint32(b[72:])
			} else {
				sh.addr = uint64(order.Uint32(b[32:]))
				sh.size = uint64(order.Uint32(b[36:]))
				sh.flags = order.Uint32(b[56:])
				sh.reserved1 = order.Uint32(b[60:])
				sh.reserved2 = order.Uint32(b[64:])
			}
			out = append(out, sh)
		}
	}
	return out, nil
}

func cstr16(b []byte) string {
	name, ok := cstring(b[:16], 0)
	if !ok {
		return string(b[:16])
	}
	return name
}

// imports resolves symbol stubs and lazy/non-lazy pointers through the
// indirect symbol table.
func (m *machoImage) imports() ([]Import, error) {
	if m.f.Dysymtab == nil || m.f.Symtab == nil {
		return nil, nil
	}
	sections, err := m.rawSections()
	if err != nil {
		return nil, err
	}

	ptrSize := uint64(4)
	if m.f.Magic == macho.Magic64 {
		ptrSize = 8
	}

	var out []Import
	var errs []error
	for _, sh := range sections {
		var stride uint64
		stub := false
		switch sh.flags & 0xff {
		case machoSymbolStubs:
			stride, stub = uint64(sh.reserved2), true
		case machoLazyPointers, machoNonLazyPointers:
			stride = ptrSize
		default:
			continue
		}
		if stride == 0 {
			continue
		}

		for i := uint64(0); i < sh.size/stride; i++ {
			idx := uint64(sh.reserved1) + i
			if idx >= uint64(len(m.f.Dysymtab.IndirectSyms)) {
				errs = append(errs, fmt.Errorf("%w: indirect symbol %d out of range in %s", ErrMalformed, idx, sh.name))
				break
			}
			sym := m.f.Dysymtab.IndirectSyms[idx]
			if sym&(indirectLocal|indirectAbs) != 0 || int(sym) >= len(m.f.Symtab.Syms) {
				continue
			}
			imp := Import{Name: m.f.Symtab.Syms[sym].Name}
			if stub {
				imp.Addr = sh.addr + i*stride
			} else {
				imp.Slot = sh.addr + i*stride
			}
			out = append(out, imp)
		}
	}
	return out, errors.Join(errs...)
}
