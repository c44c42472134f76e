// Package disassembly opens a binary, picks the decoder for its
// architecture and runs the decode sweep over its entry section.
package disassembly

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"relist/internal/arch/arm"
	"relist/internal/arch/arm64"
	"relist/internal/arch/ppc64"
	"relist/internal/arch/riscv64"
	"relist/internal/arch/x86"
	"relist/internal/decoder"
	"relist/internal/image"
	"relist/internal/logging"
	"relist/internal/processor"
	"relist/internal/symbols"
)

var (
	ErrReadFailed            = errors.New("failed to read binary")
	ErrIncompleteObject      = errors.New("failed to parse object")
	ErrNoEntrypoint          = errors.New("no executable section contains the entry point")
	ErrDecompressionFailed   = errors.New("failed to read section contents")
	ErrIncompleteSymbolTable = errors.New("failed to read symbol table")
	ErrIncompleteImportTable = errors.New("failed to read import table")
	ErrUnknownArchitecture   = errors.New("unknown architecture")
)

// Options tune a run.
type Options struct {
	FollowTargets bool
	// EntryFallback is the section offset decoded when the entry point
	// lies below the section. Zero selects processor.DefaultEntryFallback.
	EntryFallback uint64
	Logger        *log.Logger
}

func (o Options) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Default()
}

func (o Options) processorOptions() []processor.Option {
	opts := []processor.Option{
		processor.WithFollowTargets(o.FollowTargets),
		processor.WithLogger(o.logger()),
	}
	if o.EntryFallback != 0 {
		opts = append(opts, processor.WithEntryFallback(o.EntryFallback))
	}
	return opts
}

// Disassembly is a decoded binary.
type Disassembly struct {
	Path    string
	Image   *image.Image
	Section image.Section
	Symbols *symbols.Index
	Proc    processor.InspectProcessor

	mapping *image.Mapping
}

// Open decodes the executable section holding the entry point of the
// binary at path. The returned Disassembly must be closed.
func Open(ctx context.Context, path string, opts Options) (*Disassembly, error) {
	start := time.Now()
	logger := opts.logger()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := image.Map(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	d, err := open(ctx, m.Bytes(), opts)
	if err != nil {
		m.Close()
		return nil, err
	}
	d.Path = path
	d.Image.Path = path
	d.mapping = m

	logger.Debug("opened binary",
		"path", path,
		"format", d.Image.Format,
		"arch", d.Image.Arch,
		"instructions", d.Proc.InstructionCount(),
		"labels", d.Symbols.Len(),
		"elapsed", time.Since(start))
	return d, nil
}

// Load is Open over an in-memory binary.
func Load(ctx context.Context, data []byte, opts Options) (*Disassembly, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return open(ctx, data, opts)
}

func open(ctx context.Context, data []byte, opts Options) (*Disassembly, error) {
	img, err := image.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteObject, err)
	}

	sec, err := img.TextAt(img.Entry)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoEntrypoint, err)
	}
	code, err := sec.Data()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompressionFailed, err)
	}

	labels := symbols.New()
	if err := labels.ParseDebug(img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteSymbolTable, err)
	}
	if err := labels.ParseImports(img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIncompleteImportTable, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proc, err := dispatch(img.Arch, code, sec.Addr, img.Entry, labels, opts)
	if err != nil {
		return nil, err
	}
	return &Disassembly{
		Image:   img,
		Section: sec,
		Symbols: labels,
		Proc:    proc,
	}, nil
}

// dispatch selects the decoder for a.
func dispatch(a image.Arch, section []byte, base, entry uint64, labels *symbols.Index, opts Options) (processor.InspectProcessor, error) {
	switch a {
	case image.X86:
		return run(section, base, entry, x86.Decoder{Bits: 32}, labels, opts), nil
	case image.X86_64:
		return run(section, base, entry, x86.Decoder{Bits: 64}, labels, opts), nil
	case image.ARM:
		return run(section, base, entry, arm.Decoder{}, labels, opts), nil
	case image.ARM64:
		return run(section, base, entry, arm64.Decoder{}, labels, opts), nil
	case image.RISCV64:
		return run(section, base, entry, riscv64.Decoder{}, labels, opts), nil
	case image.PPC64:
		return run(section, base, entry, ppc64.Decoder{Order: binary.BigEndian}, labels, opts), nil
	case image.PPC64LE:
		return run(section, base, entry, ppc64.Decoder{Order: binary.LittleEndian}, labels, opts), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownArchitecture, a)
}

func run[D decoder.Decodable](section []byte, base, entry uint64, d D, labels *symbols.Index, opts Options) processor.InspectProcessor {
	p := processor.New(section, base, entry, d, opts.processorOptions()...)
	p.Recurse(labels)
	return p
}

// Close releases the file mapping.
func (d *Disassembly) Close() error {
	if d.mapping == nil {
		return nil
	}
	err := d.mapping.Close()
	d.mapping = nil
	return err
}
