// Package imagetest builds small executables in memory for tests.
package imagetest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Sym is a symbol placed in the .text section.
type Sym struct {
	Name  string
	Value uint64
	Size  uint64
	Func  bool
}

// ELF describes a little-endian ELF64 executable with one .text
// section, an optional symbol table and optional x86-64 style PLT
// imports.
type ELF struct {
	Machine  elf.Machine
	Entry    uint64
	TextAddr uint64
	Text     []byte
	Syms     []Sym

	// Imports get one .plt stub each after the 16 byte resolver and
	// one 8 byte GOT slot each starting at GOTAddr.
	Imports []string
	PLTAddr uint64
	GOTAddr uint64
}

type section struct {
	name    string
	typ     elf.SectionType
	flags   elf.SectionFlag
	addr    uint64
	data    []byte
	link    string
	info    uint32
	entsize uint64
}

// Bytes serializes the executable.
func (e ELF) Bytes() []byte {
	sections := []section{{
		name:  ".text",
		typ:   elf.SHT_PROGBITS,
		flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
		addr:  e.TextAddr,
		data:  e.Text,
	}}

	if len(e.Syms) > 0 {
		symtab, strtab := symbols(e.Syms, func(s Sym) (uint64, uint64, bool, uint16) {
			return s.Value, s.Size, s.Func, 1
		})
		sections = append(sections,
			section{name: ".symtab", typ: elf.SHT_SYMTAB, data: symtab, link: ".strtab", info: 1, entsize: 24},
			section{name: ".strtab", typ: elf.SHT_STRTAB, data: strtab},
		)
	}

	if len(e.Imports) > 0 {
		imports := make([]Sym, len(e.Imports))
		for i, name := range e.Imports {
			imports[i] = Sym{Name: name, Func: true}
		}
		dynsym, dynstr := symbols(imports, func(s Sym) (uint64, uint64, bool, uint16) {
			return 0, 0, true, 0
		})

		var rela bytes.Buffer
		for i := range e.Imports {
			binary.Write(&rela, binary.LittleEndian, uint64(e.GOTAddr+uint64(i)*8))
			binary.Write(&rela, binary.LittleEndian, uint64(i+1)<<32|uint64(elf.R_X86_64_JMP_SLOT))
			binary.Write(&rela, binary.LittleEndian, int64(0))
		}

		sections = append(sections,
			section{
				name:  ".plt",
				typ:   elf.SHT_PROGBITS,
				flags: elf.SHF_ALLOC | elf.SHF_EXECINSTR,
				addr:  e.PLTAddr,
				data:  make([]byte, 16*(len(e.Imports)+1)),
			},
			section{name: ".dynsym", typ: elf.SHT_DYNSYM, flags: elf.SHF_ALLOC, data: dynsym, link: ".dynstr", info: 1, entsize: 24},
			section{name: ".dynstr", typ: elf.SHT_STRTAB, flags: elf.SHF_ALLOC, data: dynstr},
			section{name: ".rela.plt", typ: elf.SHT_RELA, flags: elf.SHF_ALLOC, data: rela.Bytes(), link: ".dynsym", entsize: 24},
		)
	}

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	names := make(map[string]uint32)
	for _, s := range append(sections, section{name: ".shstrtab"}) {
		names[s.name] = uint32(shstrtab.Len())
		shstrtab.WriteString(s.name)
		shstrtab.WriteByte(0)
	}
	sections = append(sections, section{name: ".shstrtab", typ: elf.SHT_STRTAB, data: shstrtab.Bytes()})

	index := make(map[string]uint32)
	for i, s := range sections {
		index[s.name] = uint32(i + 1)
	}

	const ehsize = 64
	var body bytes.Buffer
	offsets := make([]uint64, len(sections))
	for i, s := range sections {
		pad(&body, ehsize, 8)
		offsets[i] = uint64(ehsize + body.Len())
		body.Write(s.data)
	}
	pad(&body, ehsize, 8)
	shoff := uint64(ehsize + body.Len())

	var out bytes.Buffer
	out.Write([]byte{0x7f, 'E', 'L', 'F', byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), byte(elf.EV_CURRENT)})
	out.Write(make([]byte, 9))
	le := binary.LittleEndian
	binary.Write(&out, le, uint16(elf.ET_EXEC))
	binary.Write(&out, le, uint16(e.Machine))
	binary.Write(&out, le, uint32(elf.EV_CURRENT))
	binary.Write(&out, le, e.Entry)
	binary.Write(&out, le, uint64(0)) // phoff
	binary.Write(&out, le, shoff)
	binary.Write(&out, le, uint32(0)) // flags
	binary.Write(&out, le, uint16(ehsize))
	binary.Write(&out, le, uint16(56)) // phentsize
	binary.Write(&out, le, uint16(0))  // phnum
	binary.Write(&out, le, uint16(64)) // shentsize
	binary.Write(&out, le, uint16(len(sections)+1))
	binary.Write(&out, le, uint16(len(sections))) // shstrndx is the last section

	out.Write(body.Bytes())

	out.Write(make([]byte, 64)) // null section header
	for i, s := range sections {
		binary.Write(&out, le, names[s.name])
		binary.Write(&out, le, uint32(s.typ))
		binary.Write(&out, le, uint64(s.flags))
		binary.Write(&out, le, s.addr)
		binary.Write(&out, le, offsets[i])
		binary.Write(&out, le, uint64(len(s.data)))
		binary.Write(&out, le, index[s.link])
		binary.Write(&out, le, s.info)
		binary.Write(&out, le, uint64(8))
		binary.Write(&out, le, s.entsize)
	}
	return out.Bytes()
}

func pad(b *bytes.Buffer, base, align int) {
	for (base+b.Len())%align != 0 {
		b.WriteByte(0)
	}
}

// symbols encodes a symbol table and its string table. The first entry
// is the null symbol.
func symbols(syms []Sym, attrs func(Sym) (value, size uint64, fn bool, shndx uint16)) ([]byte, []byte) {
	var tab, str bytes.Buffer
	str.WriteByte(0)
	tab.Write(make([]byte, 24))

	le := binary.LittleEndian
	for _, s := range syms {
		value, size, fn, shndx := attrs(s)
		typ := elf.STT_OBJECT
		if fn {
			typ = elf.STT_FUNC
		}
		binary.Write(&tab, le, uint32(str.Len()))
		tab.WriteByte(byte(elf.ST_INFO(elf.STB_GLOBAL, typ)))
		tab.WriteByte(0)
		binary.Write(&tab, le, shndx)
		binary.Write(&tab, le, value)
		binary.Write(&tab, le, size)

		str.WriteString(s.Name)
		str.WriteByte(0)
	}
	return tab.Bytes(), str.Bytes()
}
