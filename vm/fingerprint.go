package vm

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so equal programs encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireInstruction struct {
	_      struct{} `cbor:",toarray"`
	Op     uint8
	Imm    int32
	Offset int
	Width  uint8
	Target int
}

type wireProgram struct {
	Entry int               `cbor:"1,keyasint"`
	Code  []wireInstruction `cbor:"2,keyasint"`
}

// encodeProgram produces the canonical CBOR form of p. Operand fields that
// the opcode does not read are zeroed so they cannot perturb the encoding.
func encodeProgram(p *Program) ([]byte, error) {
	w := wireProgram{Entry: p.Entry, Code: make([]wireInstruction, len(p.Code))}
	for i, in := range p.Code {
		wi := wireInstruction{Op: uint8(in.Op)}
		info, _ := in.Op.Info()
		switch info.Operand {
		case OperandImm:
			wi.Imm = in.Imm
		case OperandAddr:
			wi.Offset = in.Addr.Offset
			wi.Width = uint8(in.Addr.Width)
		case OperandTarget:
			wi.Target = in.Target
		}
		w.Code[i] = wi
	}
	return cborEncMode.Marshal(&w)
}

// Fingerprint returns the SHA-256 of the program's canonical encoding. Two
// builds of the same source produce the same fingerprint.
func Fingerprint(p *Program) ([32]byte, error) {
	data, err := encodeProgram(p)
	if err != nil {
		return [32]byte{}, fmt.Errorf("vm: encode program: %w", err)
	}
	return sha256.Sum256(data), nil
}
