package tape

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

const (
	imageFormat  = "tapescript/bytecode"
	imageVersion = 1
)

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("tape: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

type image struct {
	Format  string             `cbor:"1,keyasint"`
	Version int                `cbor:"2,keyasint"`
	Code    []imageInstruction `cbor:"3,keyasint"`
}

type imageInstruction struct {
	_      struct{} `cbor:",toarray"`
	Op     uint8
	Arg    int
	Line   int
	Column int
}

// MarshalProgram serializes a resolved Program to a CBOR bytecode image.
// Source positions are kept so runtime errors can still name a location.
func MarshalProgram(p *Program) ([]byte, error) {
	img := image{
		Format:  imageFormat,
		Version: imageVersion,
		Code:    make([]imageInstruction, len(p.insts)),
	}
	for i, in := range p.insts {
		img.Code[i] = imageInstruction{Op: uint8(in.Op), Arg: in.Arg, Line: in.Pos.Line, Column: in.Pos.Column}
	}
	return imageEncMode.Marshal(img)
}

// UnmarshalProgram decodes a bytecode image and validates it. An image
// whose instructions break the bracket pairing or run length invariants
// is rejected with an error wrapping ErrMalformedProgram.
func UnmarshalProgram(data []byte) (*Program, error) {
	var img image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("tape: unmarshal image: %w", err)
	}
	if img.Format != imageFormat {
		return nil, fmt.Errorf("tape: unmarshal image: unexpected format %q", img.Format)
	}
	if img.Version != imageVersion {
		return nil, fmt.Errorf("tape: unmarshal image: unsupported version %d", img.Version)
	}
	insts := make([]Instruction, len(img.Code))
	for i, c := range img.Code {
		insts[i] = Instruction{Op: Op(c.Op), Arg: c.Arg, Pos: Position{Line: c.Line, Column: c.Column}}
	}
	prog := &Program{insts: insts}
	if err := prog.Validate(); err != nil {
		return nil, fmt.Errorf("tape: unmarshal image: %w", err)
	}
	return prog, nil
}
