package resolver

import (
	"regexp"
	"strings"
)

// importBinding records one name an import statement binds in the file,
// the module Resource it refers to, and the 1-based line of the statement.
type importBinding struct {
	name   string
	module string
	line   int
}

func importedBinding(imports []importBinding, name string) (string, bool) {
	for _, imp := range imports {
		if imp.name == name {
			return imp.module, true
		}
	}
	return "", false
}

var pyImportPattern = regexp.MustCompile(`^\s*import\s+(.+)$`)
var pyFromPattern = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\s+(.+)$`)
var pyItemPattern = regexp.MustCompile(`^([\w.]+)(?:\s+as\s+(\w+))?$`)

var goSingleImportPattern = regexp.MustCompile(`^\s*import\s+(?:(\w+)\s+)?"([^"]+)"`)
var goBlockEntryPattern = regexp.MustCompile(`^\s*(?:(\w+)\s+)?"([^"]+)"`)

var jsImportPattern = regexp.MustCompile(`^\s*import\s+(?:(\w+)|\{([^}]*)\}|\*\s+as\s+(\w+))\s+from\s+['"]([^'"]+)['"]`)
var jsRequirePattern = regexp.MustCompile(`(?:const|let|var)\s+(\w+)\s*=\s*require\(\s*['"]([^'"]+)['"]`)

// scanImports finds every import statement in the file and returns the
// names they bind. Lexical, line-oriented; multi-line python imports and
// exotic forms are not tracked.
func scanImports(lines []string, language string) []importBinding {
	switch language {
	case "python":
		return scanPythonImports(lines)
	case "go":
		return scanGoImports(lines)
	case "javascript":
		return scanJavaScriptImports(lines)
	default:
		return nil
	}
}

func scanPythonImports(lines []string) []importBinding {
	var out []importBinding
	for i, line := range lines {
		lineNo := i + 1

		if m := pyFromPattern.FindStringSubmatch(line); m != nil {
			module := m[1]
			for _, item := range strings.Split(m[2], ",") {
				im := pyItemPattern.FindStringSubmatch(strings.TrimSpace(item))
				if im == nil {
					continue
				}
				name := im[1]
				if im[2] != "" {
					name = im[2]
				}
				out = append(out, importBinding{name: name, module: module, line: lineNo})
			}
			continue
		}

		if m := pyImportPattern.FindStringSubmatch(line); m != nil {
			for _, item := range strings.Split(m[1], ",") {
				im := pyItemPattern.FindStringSubmatch(strings.TrimSpace(item))
				if im == nil {
					continue
				}
				module := im[1]
				// import a.b binds a; import a.b as c binds c.
				name := strings.SplitN(module, ".", 2)[0]
				if im[2] != "" {
					name = im[2]
				}
				out = append(out, importBinding{name: name, module: module, line: lineNo})
			}
		}
	}
	return out
}

func scanGoImports(lines []string) []importBinding {
	var out []importBinding
	inBlock := false
	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if inBlock {
			if trimmed == ")" {
				inBlock = false
				continue
			}
			if m := goBlockEntryPattern.FindStringSubmatch(line); m != nil {
				out = append(out, goBinding(m[1], m[2], lineNo))
			}
			continue
		}

		if trimmed == "import (" {
			inBlock = true
			continue
		}
		if m := goSingleImportPattern.FindStringSubmatch(line); m != nil {
			out = append(out, goBinding(m[1], m[2], lineNo))
		}
	}
	return out
}

func goBinding(alias, path string, line int) importBinding {
	name := alias
	if name == "" {
		if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
			name = path[idx+1:]
		} else {
			name = path
		}
	}
	return importBinding{name: name, module: path, line: line}
}

func scanJavaScriptImports(lines []string) []importBinding {
	var out []importBinding
	for i, line := range lines {
		lineNo := i + 1

		if m := jsImportPattern.FindStringSubmatch(line); m != nil {
			module := m[4]
			switch {
			case m[1] != "": // default import
				out = append(out, importBinding{name: m[1], module: module, line: lineNo})
			case m[3] != "": // namespace import
				out = append(out, importBinding{name: m[3], module: module, line: lineNo})
			default: // named imports
				for _, item := range strings.Split(m[2], ",") {
					item = strings.TrimSpace(item)
					if item == "" {
						continue
					}
					// "orig as alias" binds the alias.
					if parts := strings.Fields(item); len(parts) == 3 && parts[1] == "as" {
						item = parts[2]
					}
					out = append(out, importBinding{name: item, module: module, line: lineNo})
				}
			}
			continue
		}

		for _, m := range jsRequirePattern.FindAllStringSubmatch(line, -1) {
			out = append(out, importBinding{name: m[1], module: m[2], line: lineNo})
		}
	}
	return out
}

func keywordsFor(language string) map[string]bool {
	switch language {
	case "python":
		return pythonKeywords
	case "go":
		return goKeywords
	case "javascript":
		return javascriptKeywords
	default:
		return nil
	}
}

// Keywords and ubiquitous builtins are never reference candidates; edges
// to them would only be noise.
var pythonKeywords = wordSet(
	"if", "elif", "else", "for", "while", "return", "import", "from", "as",
	"with", "try", "except", "finally", "raise", "lambda", "not", "and",
	"or", "in", "is", "pass", "yield", "assert", "del", "global",
	"nonlocal", "def", "class", "True", "False", "None", "print", "len",
	"range", "str", "int", "float", "bool", "list", "dict", "set", "tuple",
	"type", "isinstance", "enumerate", "zip", "open", "super",
)

var goKeywords = wordSet(
	"if", "else", "for", "range", "return", "func", "type", "var", "const",
	"switch", "case", "default", "select", "go", "defer", "chan", "map",
	"struct", "interface", "package", "import", "break", "continue",
	"fallthrough", "goto", "make", "new", "len", "cap", "append", "copy",
	"delete", "close", "panic", "recover", "string", "int", "int32",
	"int64", "uint", "float32", "float64", "bool", "byte", "rune", "error",
	"any", "nil", "true", "false",
)

var javascriptKeywords = wordSet(
	"if", "else", "for", "while", "do", "return", "function", "const",
	"let", "var", "class", "new", "typeof", "instanceof", "switch", "case",
	"default", "try", "catch", "finally", "throw", "async", "await",
	"import", "from", "export", "require", "delete", "void", "in", "of",
	"yield", "this", "super", "null", "undefined", "true", "false",
	"console", "Promise", "Object", "Array", "String", "Number", "Boolean",
	"JSON", "Math",
)

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
