package x86

import (
	"testing"

	"relist/internal/decoder"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		bits     int
		src      []byte
		addr     uint64
		width    int
		mnemonic string
		targets  []uint64
	}{
		{"nop", 64, []byte{0x90}, 0x1000, 1, "nop", nil},
		{"ret", 64, []byte{0xc3, 0xcc}, 0x1000, 1, "ret", nil},
		{"call rel32", 64, []byte{0xe8, 0x00, 0x00, 0x00, 0x00}, 0x1000, 5, "call", []uint64{0x1005}},
		{"jmp rel8 back", 64, []byte{0xeb, 0xfe}, 0x2000, 2, "jmp", []uint64{0x2000}},
		{"lea rip", 64, []byte{0x48, 0x8d, 0x05, 0x10, 0x00, 0x00, 0x00}, 0x1000, 7, "lea", []uint64{0x1017}},
		{"push 32", 32, []byte{0x55}, 0x400, 1, "push", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := decoder.NewReader(tt.src)
			inst, err := Decoder{Bits: tt.bits}.Decode(r, tt.addr)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if inst.Width != tt.width {
				t.Errorf("Width = %d, want %d", inst.Width, tt.width)
			}
			if inst.Mnemonic != tt.mnemonic {
				t.Errorf("Mnemonic = %q, want %q (text %q)", inst.Mnemonic, tt.mnemonic, inst.Text)
			}
			if r.Offset() != tt.width {
				t.Errorf("reader advanced %d bytes, want %d", r.Offset(), tt.width)
			}
			if len(inst.Targets) != len(tt.targets) {
				t.Fatalf("Targets = %#x, want %#x", inst.Targets, tt.targets)
			}
			for i := range tt.targets {
				if inst.Targets[i] != tt.targets[i] {
					t.Errorf("Targets[%d] = %#x, want %#x", i, inst.Targets[i], tt.targets[i])
				}
			}
			if inst.Tokens.String() != inst.Text {
				t.Errorf("tokens %q differ from text %q", inst.Tokens.String(), inst.Text)
			}
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{"call rel32", []byte{0xe8, 0x00}},
		{"call opcode only", []byte{0xe8}},
		{"mov imm32", []byte{0xb8, 0x01}},
		{"rex mov imm64", []byte{0x48, 0xb8, 0x01, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := decoder.NewReader(tt.src)
			inst, err := Decoder{Bits: 64}.Decode(r, 0)
			if err == nil {
				t.Fatalf("Decode(% x) = %q, want a truncation failure", tt.src, inst.Text)
			}
			if decoder.AsError(err).Complete {
				t.Errorf("Decode(% x) reported a complete failure: %v", tt.src, err)
			}
			if r.Offset() != 0 {
				t.Errorf("reader advanced %d bytes on failure", r.Offset())
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	_, err := Decoder{}.Decode(decoder.NewReader(nil), 0)
	if decoder.AsError(err).Complete {
		t.Fatal("empty input should be incomplete")
	}
}

func TestMaxWidth(t *testing.T) {
	if (Decoder{}).MaxWidth() != 15 {
		t.Fatal("x86 max width is 15")
	}
}
