// Package image opens executable containers (ELF, PE and Mach-O) and
// exposes the parts a listing needs: architecture, entry point, sections,
// debug symbols and import tables.
package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrFormat    = errors.New("image: unrecognized object format")
	ErrMalformed = errors.New("image: malformed object")
	ErrNoSection = errors.New("image: no executable section contains address")
)

// Format is the container format of an image.
type Format uint8

const (
	FormatUnknown Format = iota
	ELF
	PE
	MachO
)

func (f Format) String() string {
	switch f {
	case ELF:
		return "elf"
	case PE:
		return "pe"
	case MachO:
		return "mach-o"
	}
	return "unknown"
}

// Arch is the instruction set an image was built for.
type Arch uint8

const (
	ArchUnknown Arch = iota
	X86
	X86_64
	ARM
	ARM64
	RISCV32
	RISCV64
	PPC64
	PPC64LE
	MIPS
)

var archNames = [...]string{
	ArchUnknown: "unknown",
	X86:         "x86",
	X86_64:      "x86_64",
	ARM:         "arm",
	ARM64:       "arm64",
	RISCV32:     "riscv32",
	RISCV64:     "riscv64",
	PPC64:       "ppc64",
	PPC64LE:     "ppc64le",
	MIPS:        "mips",
}

func (a Arch) String() string {
	if int(a) < len(archNames) {
		return archNames[a]
	}
	return "unknown"
}

// Section is a named, addressed region of the image.
type Section struct {
	Name string
	Addr uint64
	Size uint64
	Exec bool

	data func() ([]byte, error)
}

// Data returns the section contents, decompressed when the container
// stores them compressed. The slice is owned by the caller.
func (s Section) Data() ([]byte, error) {
	if s.data == nil {
		return nil, fmt.Errorf("%w: section %s has no data", ErrMalformed, s.Name)
	}
	b, err := s.data()
	if err != nil {
		return nil, fmt.Errorf("section %s: %w", s.Name, err)
	}
	if uint64(len(b)) > s.Size {
		b = b[:s.Size]
	}
	return b, nil
}

// Contains reports whether addr lies inside the section.
func (s Section) Contains(addr uint64) bool {
	return addr >= s.Addr && addr-s.Addr < s.Size
}

// Symbol is a defined symbol from the image's symbol tables.
type Symbol struct {
	Name string
	Addr uint64
	Size uint64
	Func bool
}

// Import is an externally resolved function. Addr is the stub that
// calls it (0 when the format has none) and Slot the pointer the
// loader fills in.
type Import struct {
	Name    string
	Library string
	Addr    uint64
	Slot    uint64
}

// Image is a parsed executable.
type Image struct {
	Path     string
	Format   Format
	Arch     Arch
	Entry    uint64
	Sections []Section

	symbols func() ([]Symbol, error)
	imports func() ([]Import, error)
	closer  io.Closer
}

// Open maps the file at path and parses it.
func Open(path string) (*Image, error) {
	m, err := Map(path)
	if err != nil {
		return nil, err
	}
	img, err := Parse(m.Bytes())
	if err != nil {
		m.Close()
		return nil, err
	}
	img.Path = path
	img.closer = m
	return img, nil
}

// Parse detects the container format of data by its magic and parses
// it. data must stay valid until the image is no longer used.
func Parse(data []byte) (*Image, error) {
	r := bytes.NewReader(data)
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("\x7fELF")):
		return parseELF(r)
	case len(data) >= 2 && data[0] == 'M' && data[1] == 'Z':
		return parsePE(r)
	case len(data) >= 4 && isMachO(data[:4]):
		return parseMachO(r, data[:4])
	}
	return nil, ErrFormat
}

func isMachO(magic []byte) bool {
	switch binary.BigEndian.Uint32(magic) {
	case 0xfeedface, 0xfeedfacf, 0xcefaedfe, 0xcffaedfe, 0xcafebabe:
		return true
	}
	return false
}

// Close releases the mapping behind an image returned by Open.
func (im *Image) Close() error {
	if im.closer == nil {
		return nil
	}
	err := im.closer.Close()
	im.closer = nil
	return err
}

// TextAt returns the executable section containing addr.
func (im *Image) TextAt(addr uint64) (Section, error) {
	for _, s := range im.Sections {
		if s.Exec && s.Contains(addr) {
			return s, nil
		}
	}
	return Section{}, fmt.Errorf("%w: %#x", ErrNoSection, addr)
}

// Section returns the first section called name.
func (im *Image) Section(name string) (Section, bool) {
	for _, s := range im.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Symbols returns the defined symbols of the image. An image without a
// symbol table yields no symbols and no error.
func (im *Image) Symbols() ([]Symbol, error) {
	if im.symbols == nil {
		return nil, nil
	}
	return im.symbols()
}

// Imports returns the image's imported functions.
func (im *Image) Imports() ([]Import, error) {
	if im.imports == nil {
		return nil, nil
	}
	return im.imports()
}

// cstring reads a NUL terminated string at off.
func cstring(b []byte, off uint64) (string, bool) {
	if off >= uint64(len(b)) {
		return "", false
	}
	end := bytes.IndexByte(b[off:], 0)
	if end < 0 {
		return "", false
	}
	return string(b[off : off+uint64(end)]), true
}
