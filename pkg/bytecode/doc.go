// Package bytecode contains the back half of the Hissy toolchain: the
// compiler that lowers a parsed program to stack-machine instructions, the
// serialized artifact format, and the virtual machine that executes it.
//
// A compiled Program is an ordered table of function prototypes; Protos[0]
// is the top-level script. Each Prototype carries its instruction stream,
// a deduplicated constant pool, upvalue capture descriptors, and (unless
// compiled with strip) a source map and variable names for diagnostics.
//
// The VM keeps function locals directly on the operand stack. Variables
// captured by closures are boxed into Upvalue cells that stay attached to
// their stack slot while the defining frame is live and close over the
// final value when it returns.
package bytecode
