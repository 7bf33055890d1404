package cmd

import (
	"bytes"
	"database/sql"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

const pkgSource = `{
  meta = {
    maintainers = with lib.maintainers; [ a b c ];
  };
}
`

func useMemFS(t *testing.T) {
	t.Helper()
	prev := fsys
	fsys = memfs.New()
	t.Cleanup(func() { fsys = prev })
	require.NoError(t, util.WriteFile(fsys, "/work/default.nix", []byte(pkgSource), 0o644))
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSelect_Stdin(t *testing.T) {
	out, err := run(t, pkgSource, "select", "-a", "maintainers", "-f", "with=lib.maintainers")
	require.NoError(t, err)
	assert.Equal(t,
		"context: lib.maintainers - value: a\n"+
			"context: lib.maintainers - value: b\n"+
			"context: lib.maintainers - value: c\n", out)
}

func TestSelect_FileJSONPath(t *testing.T) {
	useMemFS(t)
	out, err := run(t, "", "select", "/work/default.nix", "-a", "maintainers", "-f", "with", "--jsonpath", "$[*].value")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\n", out)
}

func TestSelect_FrameMismatch(t *testing.T) {
	out, err := run(t, pkgSource, "select", "-a", "maintainers", "-f", "let")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSelect_RequestFile(t *testing.T) {
	useMemFS(t)
	req := "select \"maintainers\" {\n  frame \"with\" {\n    env = \"lib.maintainers\"\n  }\n}\n"
	require.NoError(t, util.WriteFile(fsys, "/work/req.hcl", []byte(req), 0o644))

	out, err := run(t, "", "select", "/work/default.nix", "-r", "/work/req.hcl", "--format", "jsonl")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"context":"lib.maintainers"`)
}

func TestSelect_FlagErrors(t *testing.T) {
	useMemFS(t)
	_, err := run(t, pkgSource, "select")
	assert.ErrorContains(t, err, "--attr or --request")

	_, err = run(t, pkgSource, "select", "-a", "x", "-r", "/work/req.hcl")
	assert.ErrorContains(t, err, "cannot be combined")

	_, err = run(t, pkgSource, "select", "-a", "x", "--format", "yaml")
	assert.Error(t, err)

	_, err = run(t, "{ x = [ ; }", "select", "-a", "x")
	assert.Error(t, err)

	_, err = run(t, "", "select", "/work/missing.nix", "-a", "x")
	assert.Error(t, err)
}

func TestFrames(t *testing.T) {
	out, err := run(t, pkgSource, "frames", "-a", "maintainers")
	require.NoError(t, err)
	assert.Contains(t, out, "with lib.maintainers@")
	assert.Contains(t, out, "list_expression")
}

func TestQuery(t *testing.T) {
	out, err := run(t, "", "query", "-a", "maintainers", "-f", "with=lib")
	require.NoError(t, err)
	assert.Contains(t, out, "(with_expression")
	assert.Contains(t, out, "@binding")
	assert.NotContains(t, out, "tree:")
}

func TestQuery_WithTree(t *testing.T) {
	out, err := run(t, pkgSource, "query", "-", "-a", "maintainers")
	require.NoError(t, err)
	assert.Contains(t, out, "tree: (source_code")
}

func TestEdit_Stdout(t *testing.T) {
	out, err := run(t, pkgSource, "edit", "-a", "maintainers", "-f", "with=lib.maintainers",
		"--add-expr", "d", "--remove-expr", "a")
	require.NoError(t, err)
	assert.Contains(t, out, "maintainers = with lib.maintainers; [ b c d ];")
}

func TestEdit_InPlace(t *testing.T) {
	useMemFS(t)
	_, err := run(t, "", "edit", "/work/default.nix", "-a", "maintainers", "-f", "with", "--remove-expr", "b", "-i")
	require.NoError(t, err)

	got, err := util.ReadFile(fsys, "/work/default.nix")
	require.NoError(t, err)
	assert.Contains(t, string(got), "maintainers = with lib.maintainers; [ a c ];")
}

func TestEdit_RequestBlocksShareList(t *testing.T) {
	useMemFS(t)
	req := "select \"meta.maintainers\" {\n  frame \"with\" {}\n}\n" +
		"select \"meta.maintainers\" {\n  frame \"with\" {\n    env = \"lib.maintainers\"\n  }\n}\n"
	require.NoError(t, util.WriteFile(fsys, "/work/both.hcl", []byte(req), 0o644))
	require.NoError(t, util.WriteFile(fsys, "/work/dotted.nix",
		[]byte("{ meta.maintainers = with lib.maintainers; [ a b c ]; }\n"), 0o644))

	out, err := run(t, "", "edit", "/work/dotted.nix", "-r", "/work/both.hcl",
		"--add-expr", "d", "--remove-expr", "a", "--remove-expr", "b")
	require.NoError(t, err)
	assert.Equal(t, "{ meta.maintainers = with lib.maintainers; [ c d ]; }\n", out)
}

func TestEdit_Errors(t *testing.T) {
	_, err := run(t, pkgSource, "edit", "-a", "maintainers")
	assert.ErrorContains(t, err, "nothing to do")

	_, err = run(t, pkgSource, "edit", "-a", "maintainers", "--add-expr", "x", "-i")
	assert.ErrorContains(t, err, "--in-place")

	_, err = run(t, pkgSource, "edit", "-a", "maintainers", "-f", "with", "--add-expr", "(")
	assert.Error(t, err)
}

func TestExport(t *testing.T) {
	useMemFS(t)
	dbPath := filepath.Join(t.TempDir(), "values.db")
	out, err := run(t, "", "export", "/work/default.nix", dbPath, "-a", "maintainers", "-f", "with")
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 3 values from 1 files")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM values_ctx WHERE file = '/work/default.nix'`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestLint(t *testing.T) {
	out, err := run(t, "{ maintainers = [ a b a ]; }", "lint", "-a", "maintainers")
	assert.ErrorContains(t, err, "1 issues found")
	assert.Equal(t, "<stdin>:line 1: duplicate element a in maintainers (first on line 1)\n", out)

	_, err = run(t, pkgSource, "lint", "-a", "maintainers")
	assert.NoError(t, err)
}

func TestRoot_BadLogLevel(t *testing.T) {
	_, err := run(t, pkgSource, "--log-level", "loud", "select", "-a", "x")
	assert.ErrorContains(t, err, "--log-level")
}
