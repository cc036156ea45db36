package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcatalog "github.com/xiebiao/circulation/internal/application/catalog"
	"github.com/xiebiao/circulation/internal/application/circulation"
	"github.com/xiebiao/circulation/internal/domain/catalog"
	apperrors "github.com/xiebiao/circulation/pkg/errors"
)

// writeConfig 指向临时SQLite文件的配置
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`server:
  mode: release
database:
  driver: sqlite
  path: %s
  max_open_conns: 4
redis:
  enabled: false
circulation:
  lock_timeout: 5s
`, filepath.Join(dir, "library.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCirculationCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := run(t, cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "migrated (sqlite)")

	out, err = run(t, cfg, "add-book", "--isbn", "9780134190440", "--title", "The Go Programming Language",
		"--published-date", "2015-10-26", "--quantity", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "9780134190440")

	out, err = run(t, cfg, "--json", "checkout", "9780134190440",
		"--first-name", "John", "--last-name", "Doe", "--email", "john@example.com")
	require.NoError(t, err)
	var checkout circulation.CheckoutResponse
	require.NoError(t, json.Unmarshal([]byte(out), &checkout))
	assert.Equal(t, 1, checkout.AvailableQuantity)

	_, err = run(t, cfg, "checkout", "9780134190440", "--first-name", "Ann", "--last-name", "Lee", "--email", "bad")
	assert.Equal(t, apperrors.ErrCodeInvalidParams, apperrors.CodeOf(err))

	out, err = run(t, cfg, "show", fmt.Sprint(checkout.BookID))
	require.NoError(t, err)
	assert.Contains(t, out, "john@example.com")

	out, err = run(t, cfg, "--json", "search", "--q", "programming")
	require.NoError(t, err)
	var found appcatalog.SearchBooksResponse
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	assert.Equal(t, 1, found.Total)
	require.Len(t, found.Borrowed, 1)

	out, err = run(t, cfg, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "checked 1 records, 0 discrepancies")

	out, err = run(t, cfg, "checkin", "9780134190440")
	require.NoError(t, err)
	assert.Contains(t, out, "Book checked in successfully.")

	_, err = run(t, cfg, "checkin", "9780134190440")
	assert.Equal(t, apperrors.ErrCodeNotCheckedOut, apperrors.CodeOf(err))
}

func TestSearchWhere(t *testing.T) {
	cfg := writeConfig(t)
	for _, args := range [][]string{
		{"add-book", "--isbn", "9780134190440", "--title", "The Go Programming Language", "--publisher", "Addison-Wesley", "--quantity", "1"},
		{"add-book", "--isbn", "9781491941195", "--title", "Concurrency in Go", "--publisher", "O'Reilly", "--quantity", "1"},
	} {
		_, err := run(t, cfg, args...)
		require.NoError(t, err)
	}

	out, err := run(t, cfg, "--json", "search", "--where", "AND:title:icontains:go", "--where", "NOT:publisher:iexact:o'reilly")
	require.NoError(t, err)
	var found appcatalog.SearchBooksResponse
	require.NoError(t, json.Unmarshal([]byte(out), &found))
	require.Len(t, found.Books, 1)
	assert.Equal(t, "9780134190440", found.Books[0].ISBN)

	_, err = run(t, cfg, "search", "--where", "title:go")
	assert.Error(t, err)
}

func TestParseClauses(t *testing.T) {
	q, err := parseClauses([]string{"OR:any_field:icontains:a:b"}, catalog.Filters{PublishedFrom: "2000-01-01"})
	require.NoError(t, err)
	require.Len(t, q.Clauses, 1)
	assert.Equal(t, "a:b", q.Clauses[0].Term, "第四段之后的冒号属于检索词")
	assert.Equal(t, "2000-01-01", q.PublishedFrom)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
