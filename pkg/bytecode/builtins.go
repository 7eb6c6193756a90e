package bytecode

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Luapix/hissy/compiler"
)

// Stdlib returns the default global environment: the natives every program
// can reach without declaring them.
func Stdlib() map[string]Value {
	return map[string]Value{
		"log":  NativeValue(logNative),
		"size": NativeValue(sizeNative),
		"add":  NativeValue(addNative),
	}
}

// StdlibTypes returns the static types of the default globals, used by the
// compiler for arity and type checking.
func StdlibTypes() map[string]compiler.Type {
	nilT := compiler.Type{Kind: compiler.TypeNil}
	intT := compiler.Type{Kind: compiler.TypeInt}
	anyT := compiler.AnyType
	return map[string]compiler.Type{
		// log is variadic, so its parameter list stays unknown.
		"log": {Kind: compiler.TypeFunction, Elem: &nilT},
		"size": {Kind: compiler.TypeFunction, Elem: &intT,
			Params: []compiler.Type{anyT}},
		"add": {Kind: compiler.TypeFunction, Elem: &nilT,
			Params: []compiler.Type{{Kind: compiler.TypeList, Elem: &anyT}, anyT}},
	}
}

// logOutput is where the log native writes; tests redirect it.
var logOutput io.Writer = os.Stdout

var logNative = &NativeFunction{
	Name:     "log",
	Variadic: true,
	Fn: func(args []Value) (Value, error) {
		parts := make([]string, len(args))
		for i, v := range args {
			parts[i] = v.Repr()
		}
		fmt.Fprintln(logOutput, strings.Join(parts, " "))
		return Nil, nil
	},
}

var sizeNative = &NativeFunction{
	Name:  "size",
	Arity: 1,
	Fn: func(args []Value) (Value, error) {
		switch args[0].Kind() {
		case KindList:
			return IntValue(int64(len(args[0].ListRef().Elems))), nil
		case KindString:
			return IntValue(int64(len(args[0].Str()))), nil
		}
		return Nil, &RuntimeError{
			Kind: RuntimeTypeMismatch,
			Msg:  fmt.Sprintf("size expects a List or String, found %s", args[0].Kind()),
		}
	},
}

var addNative = &NativeFunction{
	Name:  "add",
	Arity: 2,
	Fn: func(args []Value) (Value, error) {
		if args[0].Kind() != KindList {
			return Nil, &RuntimeError{
				Kind: RuntimeTypeMismatch,
				Msg:  fmt.Sprintf("add expects a List, found %s", args[0].Kind()),
			}
		}
		l := args[0].ListRef()
		l.Elems = append(l.Elems, args[1])
		return Nil, nil
	},
}
