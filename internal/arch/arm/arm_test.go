package arm

import (
	"strings"
	"testing"

	"relist/internal/decoder"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		src      []byte
		mnemonic string
		targets  []uint64
	}{
		{"add", []byte{0x02, 0x00, 0x81, 0xe0}, "add", nil},
		{"bx lr", []byte{0x1e, 0xff, 0x2f, 0xe1}, "bx", nil},
		{"bl", []byte{0x00, 0x00, 0x00, 0xeb}, "bl", []uint64{0x1008}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := Decoder{}.Decode(decoder.NewReader(tt.src), 0x1000)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if inst.Width != 4 {
				t.Errorf("Width = %d", inst.Width)
			}
			if inst.Mnemonic != tt.mnemonic {
				t.Errorf("Mnemonic = %q, want %q (text %q)", inst.Mnemonic, tt.mnemonic, inst.Text)
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

func TestDecodeBranchText(t *testing.T) {
	inst, err := Decoder{}.Decode(decoder.NewReader([]byte{0x00, 0x00, 0x00, 0xeb}), 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(inst.Text, "0x1008") {
		t.Fatalf("Text = %q", inst.Text)
	}
}

func TestDecodeShort(t *testing.T) {
	_, err := Decoder{}.Decode(decoder.NewReader([]byte{0x00}), 0)
	if decoder.AsError(err).Complete {
		t.Fatal("one byte should be an incomplete failure")
	}
}
