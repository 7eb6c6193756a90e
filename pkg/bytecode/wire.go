package bytecode

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode is the canonical encoding mode shared by all artifact
// serialization. Canonical ordering makes compilation output byte-stable.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: invalid cbor options: %v", err))
	}
}

// artifact header: magic, big-endian format version, flags byte.
const headerLen = len(BytecodeMagic) + 2 + 1

// EncodeProgram serializes a program to the artifact format: a fixed header
// followed by a canonical CBOR body.
func EncodeProgram(program *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(program)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}
	out := make([]byte, 0, headerLen+len(body))
	out = append(out, BytecodeMagic...)
	out = append(out, byte(program.Version>>8), byte(program.Version))
	out = append(out, byte(program.Flags))
	out = append(out, body...)
	return out, nil
}

// DecodeProgram parses an artifact produced by EncodeProgram, rejecting
// foreign files and unsupported format versions.
func DecodeProgram(data []byte) (*Program, error) {
	if len(data) < headerLen || !bytes.HasPrefix(data, []byte(BytecodeMagic)) {
		return nil, fmt.Errorf("bytecode: not a hissy bytecode artifact")
	}
	version := uint16(data[4])<<8 | uint16(data[5])
	if version > FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d (newest known is %d)", version, FormatVersion)
	}
	flags := ProgramFlags(data[6])

	var program Program
	if err := cbor.Unmarshal(data[headerLen:], &program); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	program.Version = version
	program.Flags = flags
	if len(program.Protos) == 0 {
		return nil, fmt.Errorf("bytecode: artifact has no prototypes")
	}
	return &program, nil
}
