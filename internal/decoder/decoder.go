// Package decoder defines the common instruction representation used
// across architecture-specific disassemblers, and the contract each of
// them implements.
package decoder

import (
	"errors"
	"fmt"

	"relist/internal/tokens"
)

// Inst is a decoded instruction.
type Inst struct {
	Width    int            // encoded length in bytes, always >= 1
	Mnemonic string         // lowercase mnemonic
	Text     string         // formatted disassembly
	Tokens   *tokens.Stream // coloured rendering of Text
	Targets  []uint64       // absolute addresses referenced by the instruction
}

// Decodable decodes one instruction at a time for a single architecture.
type Decodable interface {
	// Decode reads one instruction from r. addr is the absolute address of
	// the first byte and is used for pc-relative operands.
	Decode(r *Reader, addr uint64) (Inst, error)
	// MaxWidth is the longest encoding the architecture allows.
	MaxWidth() int
}

// Kind classifies a decode failure.
type Kind uint8

const (
	ExhaustedInput Kind = iota
	InvalidOpcode
	InvalidOperand
	InvalidPrefixes
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case ExhaustedInput:
		return "exhausted input"
	case InvalidOpcode:
		return "invalid opcode"
	case InvalidOperand:
		return "invalid operand"
	case InvalidPrefixes:
		return "invalid prefixes"
	case Unsupported:
		return "unsupported"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is a decode failure. Complete reports whether enough bytes were
// available to decide; an incomplete failure happens at the end of the
// window and nothing can follow it.
type Error struct {
	Kind     Kind
	Width    int
	Complete bool
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IncompleteWidth is the number of bytes the failure spans, at least 1.
func (e *Error) IncompleteWidth() int {
	if e.Width < 1 {
		return 1
	}
	return e.Width
}

// Truncated returns an incomplete failure.
func Truncated(err error) *Error {
	return &Error{Kind: ExhaustedInput, Width: 1, Err: err}
}

// Invalid returns a complete failure spanning width bytes.
func Invalid(kind Kind, width int, err error) *Error {
	return &Error{Kind: kind, Width: width, Complete: true, Err: err}
}

// AsError converts any error returned by a Decodable into an *Error.
// Foreign errors are treated as complete one byte failures.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Invalid(InvalidOpcode, 1, err)
}
