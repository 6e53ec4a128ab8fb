package isa

import "testing"

func TestRegisterOrdering(t *testing.T) {
	want := []Register{R1, R2, R3, R4, R5, R6, R7, R8, Exit, Input, Error, Print, Int, Stp, Pc, Sbp, Pep, Zf, Sf, Rf, Cf, Of}
	if int(RegisterCount) != len(want) {
		t.Fatalf("RegisterCount = %d, want %d", RegisterCount, len(want))
	}
	for i, r := range want {
		if int(r) != i {
			t.Errorf("register %s has index %d, want %d", r, r, i)
		}
	}
}

func TestRegisterFromName(t *testing.T) {
	for _, name := range []string{"r1", "r8", "int", "sbp", "pep", "of"} {
		if _, ok := RegisterFromName(name); !ok {
			t.Errorf("RegisterFromName(%q) not found", name)
		}
	}
	if _, ok := RegisterFromName("r9"); ok {
		t.Error("RegisterFromName(r9) should not exist")
	}
}

func TestValidSizeTag(t *testing.T) {
	for _, v := range []byte{1, 2, 4, 8} {
		if !ValidSizeTag(v) {
			t.Errorf("ValidSizeTag(%d) = false, want true", v)
		}
	}
	for _, v := range []byte{0, 3, 5, 16} {
		if ValidSizeTag(v) {
			t.Errorf("ValidSizeTag(%d) = true, want false", v)
		}
	}
}

func TestPutGetUintRoundTrip(t *testing.T) {
	for _, size := range []SizeTag{Size1, Size2, Size4, Size8} {
		buf := make([]byte, 8)
		var v uint64 = 0x0102030405060708
		PutUint(buf, size, v)
		got := GetUint(buf, size)
		want := MaskToSize(v, size)
		if got != want {
			t.Errorf("size %d: round trip got %#x want %#x", size, got, want)
		}
	}
}

func TestMaskToSizeZeroesHighBytes(t *testing.T) {
	v := uint64(0xFFFFFFFFFFFFFFFF)
	if got := MaskToSize(v, Size1); got != 0xFF {
		t.Errorf("MaskToSize size1 = %#x", got)
	}
	if got := MaskToSize(v, Size4); got != 0xFFFFFFFF {
		t.Errorf("MaskToSize size4 = %#x", got)
	}
}

func TestOpcodeNamesAreUniqueAndPresent(t *testing.T) {
	seen := make(map[string]Opcode)
	for op := Opcode(0); op < opcodeCount; op++ {
		name := op.String()
		if name == "invalid_opcode" {
			t.Errorf("opcode %d has no name", op)
			continue
		}
		if prev, ok := seen[name]; ok {
			t.Errorf("opcode name %q reused by both %d and %d", name, prev, op)
		}
		seen[name] = op
	}
}

func TestErrorCodeString(t *testing.T) {
	if NoError.String() != "no error" {
		t.Errorf("NoError.String() = %q", NoError.String())
	}
	if GenericError.String() != "generic error" {
		t.Errorf("GenericError.String() = %q", GenericError.String())
	}
}
