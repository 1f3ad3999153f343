package compiler

// CompilerSpec carries the per-compiler-family knowledge the argument
// parser needs: which prefixes introduce a response file, and which
// introduce a dependency-file path. Everything else (-I, -c, -o) is
// recognized universally by hard-coded two-character prefix, per spec §4.3.
type CompilerSpec struct {
	Name             string
	RespFilePrefixes []string
	DepFilePrefixes  []string
}

// gccFamily covers gcc, g++ and the tricore cross-compiler variants: a
// single response-file prefix ("@") and a single dependency-file flag
// ("-MF"), per spec §6's table.
var gccFamily = CompilerSpec{
	Name:             "gcc",
	RespFilePrefixes: []string{"@"},
	DepFilePrefixes:  []string{"-MF"},
}

// taskingFamily covers the Tasking cctc compiler: two response-file
// prefixes and one dependency-file flag, per spec §6's table.
var taskingFamily = CompilerSpec{
	Name:             "tasking",
	RespFilePrefixes: []string{"--option-file=", "-f"},
	DepFilePrefixes:  []string{"--dep-file="},
}

// SpecForExeName maps a wrapped executable's base name (as it's invoked
// under, e.g. "gcc", "g++", "cctc") to its CompilerSpec. Reports false for
// any name outside the closed set spec §6 names.
func SpecForExeName(name string) (CompilerSpec, bool) {
	switch name {
	case "gcc", "g++", "tricore-gcc", "tricore-g++":
		return gccFamily, true
	case "cctc":
		return taskingFamily, true
	default:
		return CompilerSpec{}, false
	}
}
