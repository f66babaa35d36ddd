package vm

import "testing"

func sampleProgram() *Program {
	return &Program{
		Code: []Instruction{
			Push(2),
			Store(Address{Offset: 0x100, Width: WidthInt}),
			Jump(OpJmp, 3),
			Simple(OpHalt),
		},
		Entry: 0,
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	b, err := Fingerprint(sampleProgram())
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("fingerprints differ: %x vs %x", a, b)
	}
}

func TestFingerprintSensitiveToCode(t *testing.T) {
	base, _ := Fingerprint(sampleProgram())

	changed := sampleProgram()
	changed.Code[0] = Push(3)
	other, _ := Fingerprint(changed)
	if base == other {
		t.Error("changing an immediate should change the fingerprint")
	}

	moved := sampleProgram()
	moved.Entry = 1
	other, _ = Fingerprint(moved)
	if base == other {
		t.Error("changing the entry should change the fingerprint")
	}
}

func TestFingerprintIgnoresUnusedOperands(t *testing.T) {
	base, _ := Fingerprint(sampleProgram())

	noisy := sampleProgram()
	noisy.Code[3].Imm = 99 // HALT does not read Imm
	noisy.Code[0].Target = 7
	other, _ := Fingerprint(noisy)
	if base != other {
		t.Error("operand fields the opcode ignores should not affect the fingerprint")
	}
}
