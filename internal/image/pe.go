package image

import (
	"debug/pe"
	"encoding/binary"
	"fmt"
	"io"
)

func parsePE(r io.ReaderAt) (*Image, error) {
	f, err := pe.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("open pe: %w", err)
	}

	var base, entry uint64
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		base, entry = oh.ImageBase, uint64(oh.AddressOfEntryPoint)
	case *pe.OptionalHeader32:
		base, entry = uint64(oh.ImageBase), uint64(oh.AddressOfEntryPoint)
	default:
		return nil, fmt.Errorf("%w: pe without optional header", ErrMalformed)
	}

	im := &Image{
		Format: PE,
		Arch:   peArch(f.Machine),
		Entry:  base + entry,
	}
	for _, s := range f.Sections {
		size := uint64(s.VirtualSize)
		if size == 0 {
			size = uint64(s.Size)
		}
		if size == 0 {
			continue
		}
		im.Sections = append(im.Sections, Section{
			Name: s.Name,
			Addr: base + uint64(s.VirtualAddress),
			Size: size,
			Exec: s.Characteristics&(pe.IMAGE_SCN_MEM_EXECUTE|pe.IMAGE_SCN_CNT_CODE) != 0,
			data: s.Data,
		})
	}

	p := &peImage{f: f, base: base}
	im.symbols = p.symbols
	im.imports = p.imports
	return im, nil
}

func peArch(m uint16) Arch {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386:
		return X86
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return X86_64
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return ARM
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return ARM64
	case pe.IMAGE_FILE_MACHINE_RISCV32:
		return RISCV32
	case pe.IMAGE_FILE_MACHINE_RISCV64:
		return RISCV64
	}
	return ArchUnknown
}

type peImage struct {
	f    *pe.File
	base uint64
}

// symbols returns the COFF symbols that belong to a section. Linked
// images usually carry none.
func (p *peImage) symbols() ([]Symbol, error) {
	var out []Symbol
	for _, sym := range p.f.Symbols {
		if sym.SectionNumber <= 0 || int(sym.SectionNumber) > len(p.f.Sections) || sym.Name == "" {
			continue
		}
		sec := p.f.Sections[sym.SectionNumber-1]
		out = append(out, Symbol{
			Name: sym.Name,
			Addr: p.base + uint64(sec.VirtualAddress) + uint64(sym.Value),
			// complex type function
			Func: sym.Type&0xf0 == 0x20,
		})
	}
	return out, nil
}

// rva returns the bytes of the section containing rva, starting at rva.
func (p *peImage) rva(rva uint32) ([]byte, error) {
	for _, s := range p.f.Sections {
		size := s.VirtualSize
		if s.Size > size {
			size = s.Size
		}
		if rva < s.VirtualAddress || rva-s.VirtualAddress >= size {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, err
		}
		off := rva - s.VirtualAddress
		if off >= uint32(len(data)) {
			return nil, fmt.Errorf("%w: rva %#x beyond raw data of %s", ErrMalformed, rva, s.Name)
		}
		return data[off:], nil
	}
	return nil, fmt.Errorf("%w: rva %#x not in any section", ErrMalformed, rva)
}

// imports walks the import directory. Each import is labelled at its
// import address table slot.
func (p *peImage) imports() ([]Import, error) {
	var dir pe.DataDirectory
	thunkSize := uint32(4)
	switch oh := p.f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_IMPORT {
			return nil, nil
		}
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT]
		thunkSize = 8
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes <= pe.IMAGE_DIRECTORY_ENTRY_IMPORT {
			return nil, nil
		}
		dir = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_IMPORT]
	}
	if dir.VirtualAddress == 0 {
		return nil, nil
	}

	descs, err := p.rva(dir.VirtualAddress)
	if err != nil {
		return nil, fmt.Errorf("read import directory: %w", err)
	}

	var out []Import
	for off := 0; off+20 <= len(descs); off += 20 {
		d := descs[off : off+20]
		lookup := binary.LittleEndian.Uint32(d[0:])
		nameRVA := binary.LittleEndian.Uint32(d[12:])
		iat := binary.LittleEndian.Uint32(d[16:])
		if lookup == 0 && nameRVA == 0 && iat == 0 {
			break
		}
		if lookup == 0 {
			lookup = iat
		}

		lib := ""
		if b, err := p.rva(nameRVA); err == nil {
			lib, _ = cstring(b, 0)
		}

		thunks, err := p.rva(lookup)
		if err != nil {
			return out, fmt.Errorf("read thunks of %s: %w", lib, err)
		}
		for i := uint32(0); (i+1)*thunkSize <= uint32(len(thunks)); i++ {
			var v uint64
			var ordinal bool
			if thunkSize == 8 {
				v = binary.LittleEndian.Uint64(thunks[i*8:])
				ordinal = v&(1<<63) != 0
			} else {
				v = uint64(binary.LittleEndian.Uint32(thunks[i*4:]))
				ordinal = v&(1<<31) != 0
			}
			if v == 0 {
				break
			}

			var name string
			if ordinal {
				name = fmt.Sprintf("%s#%d", lib, v&0xffff)
			} else {
				hint, err := p.rva(uint32(v))
				if err != nil {
					return out, fmt.Errorf("read import name: %w", err)
				}
				// skip the two byte hint
				name, _ = cstring(hint, 2)
			}
			if name == "" {
				continue
			}
			out = append(out, Import{
				Name:    name,
				Library: lib,
				Slot:    p.base + uint64(iat) + uint64(i*thunkSize),
			})
		}
	}
	return out, nil
}
