package compiler

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParsedArgs is the normalized argument vector (response files inlined,
// recognized path flags rewritten in glued form such as "-omain.o",
// base-directory prefixes stripped) together with the three semantic
// paths the compile handler needs: the file being compiled, the object
// destination, and the dependency-file destination.
type ParsedArgs struct {
	Args       []string
	SourceFile string
	OutFile    string
	DepFile    string
}

// ParseArgs flattens args (expanding any response files recursively) and
// extracts source_file/out_file/dep_file per spec §4.3. baseDir, if
// non-empty, is stripped from every output argument after flattening.
//
// Failures — a missing or unreadable response file, or a recognized prefix
// with no following argument — are fatal per spec §4.3/§7: the wrapper
// cannot safely proceed with incomplete arguments.
func ParseArgs(spec CompilerSpec, args []string, baseDir string) (ParsedArgs, error) {
	parsed, err := parseArgsInner(spec, args)
	if err != nil {
		return ParsedArgs{}, err
	}

	if baseDir != "" {
		for i, arg := range parsed.Args {
			parsed.Args[i] = strings.ReplaceAll(arg, baseDir, "")
		}
	}

	return parsed, nil
}

func parseArgsInner(spec CompilerSpec, args []string) (ParsedArgs, error) {
	var out ParsedArgs
	out.Args = make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if respFile, consumed, ok, err := matchPrefix(spec.RespFilePrefixes, args, i); err != nil {
			return ParsedArgs{}, err
		} else if ok {
			i += consumed

			innerArgs, err := readResponseFile(respFile)
			if err != nil {
				return ParsedArgs{}, err
			}

			innerParsed, err := parseArgsInner(spec, innerArgs)
			if err != nil {
				return ParsedArgs{}, err
			}

			out.Args = append(out.Args, innerParsed.Args...)
			if out.DepFile == "" {
				out.DepFile = innerParsed.DepFile
			}
			if out.OutFile == "" {
				out.OutFile = innerParsed.OutFile
			}
			if out.SourceFile == "" {
				out.SourceFile = innerParsed.SourceFile
			}
			continue
		}

		if path, consumed, ok, err := matchPrefix(spec.DepFilePrefixes, args, i); err != nil {
			return ParsedArgs{}, err
		} else if ok {
			i += consumed
			prefix := matchedPrefixOf(spec.DepFilePrefixes, arg)
			out.Args = append(out.Args, prefix+path)
			out.DepFile = path
			continue
		}

		if strings.HasPrefix(arg, "-I") || strings.HasPrefix(arg, "-c") || strings.HasPrefix(arg, "-o") {
			prefix := arg[:2]
			path, consumed, ok, err := matchPrefix([]string{prefix}, args, i)
			if err != nil {
				return ParsedArgs{}, err
			}
			if ok {
				i += consumed
				out.Args = append(out.Args, prefix+path)
				switch prefix {
				case "-c":
					out.SourceFile = path
				case "-o":
					out.OutFile = path
				}
				continue
			}
		}

		out.Args = append(out.Args, arg)
	}

	return out, nil
}

// matchPrefix checks whether args[i] matches one of the given prefixes. If
// args[i] equals the prefix exactly, the next argument is consumed as the
// path. If args[i] starts with the prefix, the remainder is the path.
// Returns ok=false (no error) when args[i] matches none of the prefixes.
func matchPrefix(prefixes []string, args []string, i int) (path string, consumed int, ok bool, err error) {
	arg := args[i]
	for _, prefix := range prefixes {
		if arg == prefix {
			if i+1 >= len(args) {
				return "", 0, false, fmt.Errorf("compiler args: no argument following %q", prefix)
			}
			return args[i+1], 1, true, nil
		}
		if strings.HasPrefix(arg, prefix) {
			return arg[len(prefix):], 0, true, nil
		}
	}
	return "", 0, false, nil
}

func matchedPrefixOf(prefixes []string, arg string) string {
	for _, prefix := range prefixes {
		if arg == prefix || strings.HasPrefix(arg, prefix) {
			return prefix
		}
	}
	return ""
}

// readResponseFile reads a response file line-by-line: each line is one
// argument, no further quoting, per spec §4.3.
func readResponseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("compiler args: reading response file %q: %w", path, err)
	}
	defer f.Close()

	var args []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		args = append(args, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("compiler args: reading response file %q: %w", path, err)
	}
	return args, nil
}
