package bytecode

import (
	"bytes"
	"testing"
)

func TestWireRoundTrip(t *testing.T) {
	src := "let greet(name: String) -> String:\n" +
		"\treturn \"hello \" + name\n" +
		"log greet(\"world\")\n"
	program := compileSrc(t, src)

	data, err := EncodeProgram(program)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte(BytecodeMagic)) {
		t.Fatal("artifact does not start with the magic")
	}

	decoded, err := DecodeProgram(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Version != program.Version || decoded.Flags != program.Flags {
		t.Errorf("header = {%d %d}, want {%d %d}",
			decoded.Version, decoded.Flags, program.Version, program.Flags)
	}
	if len(decoded.Protos) != len(program.Protos) {
		t.Fatalf("prototypes = %d, want %d", len(decoded.Protos), len(program.Protos))
	}
	for i, p := range program.Protos {
		q := decoded.Protos[i]
		if q.Name != p.Name || q.Arity != p.Arity || q.LocalCount != p.LocalCount {
			t.Errorf("proto %d header differs: %+v vs %+v", i, q, p)
		}
		if !bytes.Equal(q.Code, p.Code) {
			t.Errorf("proto %d code differs", i)
		}
		if len(q.Constants) != len(p.Constants) {
			t.Errorf("proto %d constants differ", i)
		}
		if len(q.SourceMap) != len(p.SourceMap) {
			t.Errorf("proto %d source map differs", i)
		}
	}
}

func TestDecodedProgramRuns(t *testing.T) {
	program := compileSrc(t, "let double(n: Int) -> Int:\n\treturn n * 2\nreturn double(21)\n")
	data, err := EncodeProgram(program)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeProgram(data)
	if err != nil {
		t.Fatal(err)
	}
	v, err := NewVM(decoded).Run()
	if err != nil {
		t.Fatal(err)
	}
	if v.Int() != 42 {
		t.Errorf("result = %s, want 42", v.Repr())
	}
}

func TestDecodeRejectsForeignData(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("HSY"),
		[]byte("ELF\x00\x00\x00\x00\x00"),
		[]byte("HSYC\x00\x01"),
	}
	for _, data := range cases {
		if _, err := DecodeProgram(data); err == nil {
			t.Errorf("DecodeProgram(%q) succeeded, want error", data)
		}
	}
}

func TestDecodeRejectsNewerVersion(t *testing.T) {
	program := compileSrc(t, "log 1\n")
	data, err := EncodeProgram(program)
	if err != nil {
		t.Fatal(err)
	}
	data[4] = 0xFF // future version
	if _, err := DecodeProgram(data); err == nil {
		t.Fatal("future format version accepted")
	}
}

func TestDecodeRejectsEmptyProgram(t *testing.T) {
	data, err := EncodeProgram(&Program{Version: FormatVersion})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecodeProgram(data); err == nil {
		t.Fatal("artifact without prototypes accepted")
	}
}
