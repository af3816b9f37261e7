package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semindex/pkg/types"
)

func parseAndExtract(t *testing.T, source, language, filePath string) []types.Symbol {
	t.Helper()

	p := New()
	tree, err := p.Parse([]byte(source), language)
	require.NoError(t, err)
	defer tree.Close()

	symbols, err := p.ExtractSymbols(tree, filePath)
	require.NoError(t, err)
	return symbols
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("pkg/auth.py"))
	assert.Equal(t, "go", DetectLanguage("main.go"))
	assert.Equal(t, "javascript", DetectLanguage("app.js"))
	assert.Equal(t, "javascript", DetectLanguage("app.mjs"))
	assert.Equal(t, "", DetectLanguage("README.md"))
	assert.Equal(t, "", DetectLanguage("Makefile"))
}

func TestParseUnsupportedLanguage(t *testing.T) {
	p := New()
	_, err := p.Parse([]byte("x = 1"), "cobol")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnsupportedLanguage))
}

func TestParseFileUnsupportedExtension(t *testing.T) {
	p := New()
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	_, err := p.ParseFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrUnsupportedLanguage))
}

func TestExtractPythonFunctions(t *testing.T) {
	source := `def login(user):
    """Authenticate a user."""
    return check(user)

def check(user):
    return user.active
`
	symbols := parseAndExtract(t, source, "python", "auth.py")
	require.Len(t, symbols, 2)

	login := symbols[0]
	assert.Equal(t, "login", login.Name)
	assert.Equal(t, types.KindFunction, login.Kind)
	assert.Equal(t, "auth.py", login.FilePath)
	assert.Equal(t, 1, login.StartLine)
	assert.Equal(t, "auth.py:login:1", login.ID)
	assert.Equal(t, "def login(user):", login.Signature)
	assert.Equal(t, "Authenticate a user.", login.Docstring)
	assert.Empty(t, login.EnclosingID)

	check := symbols[1]
	assert.Equal(t, "check", check.Name)
	assert.Equal(t, 5, check.StartLine)
	assert.Empty(t, check.Docstring)
}

func TestExtractPythonClassWithMethods(t *testing.T) {
	source := `class Session:
    """Holds login state."""

    timeout = 300

    def refresh(self):
        token = issue()
        return token
`
	symbols := parseAndExtract(t, source, "python", "session.py")
	require.Len(t, symbols, 3)

	class := symbols[0]
	assert.Equal(t, "Session", class.Name)
	assert.Equal(t, types.KindClass, class.Kind)
	assert.Equal(t, "Holds login state.", class.Docstring)
	assert.Empty(t, class.EnclosingID)

	timeout := symbols[1]
	assert.Equal(t, "timeout", timeout.Name)
	assert.Equal(t, types.KindVariable, timeout.Kind)
	assert.Equal(t, class.ID, timeout.EnclosingID)

	refresh := symbols[2]
	assert.Equal(t, "refresh", refresh.Name)
	assert.Equal(t, types.KindMethod, refresh.Kind)
	assert.Equal(t, class.ID, refresh.EnclosingID)
}

func TestExtractPythonModuleVariables(t *testing.T) {
	source := `LIMIT = 10
a, b = 1, 2

def run():
    local = 3
    return local
`
	symbols := parseAndExtract(t, source, "python", "cfg.py")
	require.Len(t, symbols, 4)

	names := make([]string, 0, len(symbols))
	for _, s := range symbols {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"LIMIT", "a", "b", "run"}, names)

	// The function body local must not leak out as a symbol.
	for _, s := range symbols {
		assert.NotEqual(t, "local", s.Name)
	}
}

func TestExtractPythonNestedFunction(t *testing.T) {
	source := `def outer():
    def inner():
        return 1
    return inner
`
	symbols := parseAndExtract(t, source, "python", "nest.py")
	require.Len(t, symbols, 2)

	assert.Equal(t, "outer", symbols[0].Name)
	assert.Equal(t, types.KindFunction, symbols[0].Kind)
	assert.Equal(t, "inner", symbols[1].Name)
	// Nested in a function, not a class, so it stays a function.
	assert.Equal(t, types.KindFunction, symbols[1].Kind)
	assert.Equal(t, symbols[0].ID, symbols[1].EnclosingID)
}

func TestExtractGoDeclarations(t *testing.T) {
	source := `package server

const retryLimit = 3

var defaultPort, adminPort = 8080, 9090

type Handler struct {
	routes map[string]func()
}

func (h *Handler) Serve() error {
	return nil
}

func NewHandler() *Handler {
	return &Handler{}
}
`
	symbols := parseAndExtract(t, source, "go", "server.go")
	require.Len(t, symbols, 6)

	byName := make(map[string]types.Symbol, len(symbols))
	for _, s := range symbols {
		byName[s.Name] = s
	}

	assert.Equal(t, types.KindVariable, byName["retryLimit"].Kind)
	assert.Equal(t, types.KindVariable, byName["defaultPort"].Kind)
	assert.Equal(t, types.KindVariable, byName["adminPort"].Kind)
	assert.Equal(t, types.KindClass, byName["Handler"].Kind)
	assert.Equal(t, types.KindMethod, byName["Serve"].Kind)
	assert.Equal(t, types.KindFunction, byName["NewHandler"].Kind)

	serve := byName["Serve"]
	assert.Equal(t, "func (h *Handler) Serve() error", serve.Signature)
}

func TestExtractJavaScriptDeclarations(t *testing.T) {
	source := `const MAX_RETRIES = 5;

const fetchUser = async (id) => {
  return api.get(id);
};

function render(user) {
  return user.name;
}

class Widget {
  draw() {
    return this.el;
  }
}
`
	symbols := parseAndExtract(t, source, "javascript", "app.js")
	require.Len(t, symbols, 5)

	byName := make(map[string]types.Symbol, len(symbols))
	for _, s := range symbols {
		byName[s.Name] = s
	}

	assert.Equal(t, types.KindVariable, byName["MAX_RETRIES"].Kind)
	assert.Equal(t, types.KindFunction, byName["fetchUser"].Kind)
	assert.Equal(t, types.KindFunction, byName["render"].Kind)
	assert.Equal(t, types.KindClass, byName["Widget"].Kind)

	draw := byName["draw"]
	assert.Equal(t, types.KindMethod, draw.Kind)
	assert.Equal(t, byName["Widget"].ID, draw.EnclosingID)
}

func TestExtractBestEffortOnSyntaxError(t *testing.T) {
	source := `def good():
    return 1

def broken(:
`
	symbols := parseAndExtract(t, source, "python", "broken.py")
	require.NotEmpty(t, symbols)
	assert.Equal(t, "good", symbols[0].Name)
}

func TestExtractSourceOrder(t *testing.T) {
	source := `def c():
    pass

def a():
    pass

def b():
    pass
`
	symbols := parseAndExtract(t, source, "python", "order.py")
	require.Len(t, symbols, 3)
	assert.Equal(t, "c", symbols[0].Name)
	assert.Equal(t, "a", symbols[1].Name)
	assert.Equal(t, "b", symbols[2].Name)
}

func TestSymbolsValidate(t *testing.T) {
	source := `def f():
    pass
`
	symbols := parseAndExtract(t, source, "python", "v.py")
	for _, s := range symbols {
		assert.NoError(t, s.Validate())
	}
}

func TestParseFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mod.py")
	require.NoError(t, os.WriteFile(path, []byte("def f():\n    pass\n"), 0644))

	p := New()
	tree, err := p.ParseFile(path)
	require.NoError(t, err)
	defer tree.Close()

	symbols, err := p.ExtractSymbols(tree, path)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "f", symbols[0].Name)
}
