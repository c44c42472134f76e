package riscv64

import (
	"testing"

	"relist/internal/decoder"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		src      []byte
		width    int
		mnemonic string
		targets  []uint64
	}{
		{"nop", []byte{0x13, 0x00, 0x00, 0x00}, 4, "nop", nil},
		{"c.nop", []byte{0x01, 0x00}, 2, "nop", nil},
		{"bnez", []byte{0x63, 0x94, 0x02, 0x00}, 4, "bnez", []uint64{0x1008}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := decoder.NewReader(tt.src)
			inst, err := Decoder{}.Decode(r, 0x1000)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if inst.Width != tt.width || r.Offset() != tt.width {
				t.Errorf("Width = %d, advanced %d, want %d", inst.Width, r.Offset(), tt.width)
			}
			if inst.Mnemonic != tt.mnemonic {
				t.Errorf("Mnemonic = %q, want %q", inst.Mnemonic, tt.mnemonic)
			}
			if len(inst.Targets) != len(tt.targets) {
				t.Fatalf("Targets = %#x, want %#x", inst.Targets, tt.targets)
			}
			for i := range tt.targets {
				if inst.Targets[i] != tt.targets[i] {
					t.Errorf("Targets[%d] = %#x, want %#x", i, inst.Targets[i], tt.targets[i])
				}
			}
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	tests := []struct {
		name string
		src  []byte
	}{
		{"one byte", []byte{0x13}},
		{"half of a wide instruction", []byte{0x13, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decoder{}.Decode(decoder.NewReader(tt.src), 0)
			if err == nil || decoder.AsError(err).Complete {
				t.Fatalf("err = %v, want incomplete failure", err)
			}
		})
	}
}

func TestWidth(t *testing.T) {
	if width(0x13) != 4 || width(0x01) != 2 {
		t.Fatal("width from opcode bits")
	}
}
