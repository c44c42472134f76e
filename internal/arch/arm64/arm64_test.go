package arm64

import (
	"strings"
	"testing"

	"relist/internal/decoder"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		src      []byte
		addr     uint64
		mnemonic string
		targets  []uint64
	}{
		{"nop", []byte{0x1f, 0x20, 0x03, 0xd5}, 0x1000, "nop", nil},
		{"ret", []byte{0xc0, 0x03, 0x5f, 0xd6}, 0x1000, "ret", nil},
		{"bl forward", []byte{0x02, 0x00, 0x00, 0x94}, 0x1000, "bl", []uint64{0x1008}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := decoder.NewReader(tt.src)
			inst, err := Decoder{}.Decode(r, tt.addr)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if inst.Width != 4 || r.Offset() != 4 {
				t.Fatalf("Width = %d, advanced %d", inst.Width, r.Offset())
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

func TestDecodeAbsoluteTargetText(t *testing.T) {
	inst, err := Decoder{}.Decode(decoder.NewReader([]byte{0x02, 0x00, 0x00, 0x94}), 0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(inst.Text, "0x1008") {
		t.Fatalf("Text = %q, want absolute target", inst.Text)
	}
}

func TestDecodeShort(t *testing.T) {
	_, err := Decoder{}.Decode(decoder.NewReader([]byte{0x1f, 0x20}), 0)
	if decoder.AsError(err).Complete {
		t.Fatal("two bytes should be an incomplete failure")
	}
}

func TestDecodeUnknown(t *testing.T) {
	_, err := Decoder{}.Decode(decoder.NewReader([]byte{0x00, 0x00, 0x00, 0x00}), 0)
	if err == nil {
		// udf #0 decodes on some table versions
		return
	}
	de := decoder.AsError(err)
	if !de.Complete || de.IncompleteWidth() != 4 {
		t.Fatalf("err = %+v, want complete width 4", de)
	}
}
