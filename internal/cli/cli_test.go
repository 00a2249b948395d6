package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adjacency = `# test table
Bedford	L	Paul Singer (businessman)<|>X
Bedfordshire	R	Bedford
Paul Singer (businessman)	L	Elliott Management
Elliott Management	L
Loop	R	Loop
`

// execute runs the CLI against a SQLite table in dir.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	base := []string{"--backend", "sqlite", "--store", filepath.Join(dir, "table.db"), "--log-level", "warn", "--color", "never"}
	root.SetArgs(append(append([]string{args[0]}, base...), args[1:]...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func importFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "links.tsv")
	require.NoError(t, os.WriteFile(src, []byte(adjacency), 0o644))

	out, err := execute(t, dir, "import", src, "--batch-size", "2")
	require.NoError(t, err)
	assert.Equal(t, "imported 5 records\n", out)
	return dir
}

func TestSearchCommand(t *testing.T) {
	dir := importFixture(t)

	out, err := execute(t, dir, "search", "bedfordshire", "Elliott Management")
	require.NoError(t, err)
	assert.Contains(t, out, "in 2 hops")
	assert.Contains(t, out, "https://en.wikipedia.org/wiki/Bedfordshire =>\n")
	assert.Contains(t, out, "https://en.wikipedia.org/wiki/Elliott%20Management\n")

	out, err = execute(t, dir, "search", "Bedford", "Loop", "--json")
	require.NoError(t, err)
	var res struct {
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "exhausted", res.Outcome)
}

func TestSearchCommandSuggestions(t *testing.T) {
	dir := importFixture(t)

	out, err := execute(t, dir, "search", "Bedford", "Bedford Town")
	require.Error(t, err)
	assert.Contains(t, out, "Did you mean")
	assert.Contains(t, out, "Bedfordshire")
}

func TestTitlesCommand(t *testing.T) {
	dir := importFixture(t)

	out, err := execute(t, dir, "titles", "Bed")
	require.NoError(t, err)
	assert.Equal(t, "Bedford\nBedfordshire\n", out)

	out, err = execute(t, dir, "titles", "Bed", "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "Bedford\n", out)
}

func TestBatchCommand(t *testing.T) {
	dir := importFixture(t)
	pairs := filepath.Join(dir, "pairs.tsv")
	require.NoError(t, os.WriteFile(pairs, []byte(strings.Join([]string{
		"Bedford\tPaul Singer (businessman)",
		"# skipped",
		"Bedford\tNowhere",
		"Bedfordshire\tElliott Management",
		"",
	}, "\n")), 0o644))

	out, err := execute(t, dir, "batch", pairs, "--json", "-p", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	var got []batchResult
	for _, l := range lines {
		var r batchResult
		require.NoError(t, json.Unmarshal([]byte(l), &r))
		got = append(got, r)
	}
	assert.Equal(t, 1, got[0].Result.DirectHops())
	assert.Contains(t, got[1].Error, "not found")
	assert.Equal(t, 2, got[2].Result.DirectHops())
}

func TestReadPairsRejectsMalformed(t *testing.T) {
	_, err := readPairs(strings.NewReader("only-one-title\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestBadConfigFlag(t *testing.T) {
	_, err := execute(t, t.TempDir(), "titles", "x", "--log-format", "xml")
	assert.Error(t, err)
}
