package arch

import (
	"testing"

	"relist/internal/ui/colorize"
)

func TestBuild(t *testing.T) {
	inst := Build(colorize.Intel, 5, "CALL 0x1005", []uint64{0x1005})
	if inst.Mnemonic != "call" {
		t.Errorf("Mnemonic = %q", inst.Mnemonic)
	}
	if inst.Tokens.String() != "CALL 0x1005" {
		t.Errorf("Tokens = %q", inst.Tokens.String())
	}
	if inst.Width != 5 || len(inst.Targets) != 1 {
		t.Errorf("inst = %+v", inst)
	}
}

func TestRel(t *testing.T) {
	if Rel(0x1000, -0x10) != 0xff0 {
		t.Fatal("negative offset")
	}
	if Rel(^uint64(0), 1) != 0 {
		t.Fatal("wrap around")
	}
}
