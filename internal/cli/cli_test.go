package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mmcdole/bookcat/internal/adapter"
	"github.com/mmcdole/bookcat/internal/catalog"
	"github.com/mmcdole/bookcat/internal/catalog/catalogtest"
	"github.com/mmcdole/bookcat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCategories = []domain.Category{
	{ID: 1, Name: "Fiction"},
	{ID: 2, Name: "Science"},
	{ID: 3, Name: "History"},
}

type testEnv struct {
	app      *App
	client   *catalogtest.MemoryClient
	cfg      *adapter.Config
	backends int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		client: catalogtest.NewMemoryClient(testCategories,
			domain.Book{ID: 1, Title: "Foundation", Author: "Asimov", Price: 9.99, Stock: 4, CategoryID: 1},
			domain.Book{ID: 2, Title: "Cosmos", Author: "Sagan", Price: 20, Stock: 0, CategoryID: 2},
		),
	}

	env.app = New(func(ctx context.Context, cfg *adapter.Config) (*catalog.Store, func(), error) {
		env.backends++
		store := catalog.NewStore(env.client, adapter.NullLogger())
		return store, store.Close, nil
	})
	env.app.LoadConfig = func(string) (*adapter.Config, error) {
		cfg := adapter.DefaultConfig()
		cfg.Cache.Dir = t.TempDir()
		env.cfg = cfg
		return cfg, nil
	}
	env.app.IsTerminal = func() bool { return false }
	return env
}

func (e *testEnv) run(args ...string) (string, string, error) {
	cmd := e.app.Command("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	e.app.Close()
	return out.String(), errOut.String(), err
}

func TestListBooks(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("list")
	require.NoError(t, err)

	for _, want := range []string{"Title", "Category", "Foundation", "Asimov", "$9.99", "Cosmos", "Out of Stock", "Science"} {
		assert.Contains(t, out, want)
	}
}

func TestListByCategory(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"by id", "2"},
		{"by exact name", "science"},
		{"by fuzzy name", "scnc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			out, _, err := env.run("list", "--category", tt.arg)
			require.NoError(t, err)
			assert.Contains(t, out, "Cosmos")
			assert.NotContains(t, out, "Foundation")
		})
	}
}

func TestListUnknownCategory(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("list", "--category", "99")
	assert.ErrorContains(t, err, "unknown category 99")

	_, _, err = env.run("list", "--category", "poetry")
	assert.ErrorContains(t, err, "unknown category")
}

func TestListSearch(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("list", "--search", "asmv")
	require.NoError(t, err)
	assert.Contains(t, out, "Foundation")
	assert.NotContains(t, out, "Cosmos")

	out, _, err = env.run("list", "--search", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "No books found.")
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("categories")
	require.NoError(t, err)
	for _, c := range testCategories {
		assert.Contains(t, out, c.Name)
	}
}

func TestAddBook(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("add", "--title", "Dune", "--author", "Herbert", "--price", "12.50", "--stock", "3", "--category", "Fiction")
	require.NoError(t, err)

	assert.Contains(t, out, catalog.MsgBookAdded)
	assert.Contains(t, out, "Dune")

	books := env.client.Books()
	require.Len(t, books, 3)
	assert.Equal(t, "Dune", books[2].Title)
	assert.Equal(t, 12.5, books[2].Price)
	assert.Equal(t, int64(1), books[2].CategoryID)
}

func TestAddInvalidBook(t *testing.T) {
	env := newTestEnv(t)

	_, errOut, err := env.run("add", "--title", "  ", "--price", "0", "--stock", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "book is invalid")

	assert.Contains(t, errOut, "title: Title is required")
	assert.Contains(t, errOut, "author: Author is required")
	assert.Contains(t, errOut, "price: Price must be greater than 0")
	assert.Contains(t, errOut, "stock: Stock cannot be negative")
	assert.Contains(t, errOut, "categoryId: Category is required")
	assert.Len(t, env.client.Books(), 2, "invalid drafts never reach the service")
}

func TestEditKeepsUnsetFields(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("edit", "2", "--stock", "5")
	require.NoError(t, err)
	assert.Contains(t, out, catalog.MsgBookUpdated)

	books := env.client.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "Cosmos", books[1].Title)
	assert.Equal(t, 20.0, books[1].Price)
	assert.Equal(t, 5, books[1].Stock)
	assert.Equal(t, int64(2), books[1].CategoryID)
}

func TestEditErrors(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("edit", "99", "--stock", "5")
	assert.EqualError(t, err, "Book not found")

	_, _, err = env.run("edit", "abc")
	assert.ErrorContains(t, err, "invalid book ID")
}

func TestDeleteWithYes(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, catalog.MsgBookDeleted)
	assert.Equal(t, []int64{1}, env.client.Deleted)
}

func TestDeleteRefusesWithoutTerminal(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("delete", "1")
	assert.ErrorContains(t, err, "pass --yes")
	assert.Empty(t, env.client.Deleted)
}

func TestDeletePrompt(t *testing.T) {
	tests := []struct {
		answer  string
		deleted bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.answer), func(t *testing.T) {
			env := newTestEnv(t)
			env.app.IsTerminal = func() bool { return true }
			env.app.In = strings.NewReader(tt.answer)

			out, errOut, err := env.run("delete", "1")
			require.NoError(t, err)
			assert.Contains(t, errOut, catalog.DeletePrompt)

			if tt.deleted {
				assert.Equal(t, []int64{1}, env.client.Deleted)
				assert.Contains(t, out, catalog.MsgBookDeleted)
			} else {
				assert.Empty(t, env.client.Deleted)
				assert.Contains(t, out, "Not deleted.")
			}
		})
	}
}

func TestDeleteRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.client.DeleteErr = &domain.RemoteError{Op: "delete book", Status: 409, Message: "Book has active orders"}

	_, _, err := env.run("delete", "1", "--yes")
	assert.EqualError(t, err, "Book has active orders")
	assert.Len(t, env.client.Books(), 2)
}

func TestServerFlagOverridesConfig(t *testing.T) {
	env := newTestEnv(t)

	_, _, err := env.run("--server", "http://books.internal:8080", "categories")
	require.NoError(t, err)
	assert.Equal(t, "http://books.internal:8080", env.cfg.Server.URL)

	_, _, err = env.run("--server", "books.internal", "categories")
	assert.ErrorContains(t, err, "server.url must start with")
}

func TestCacheCommandsSkipBackend(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("cache", "path")
	require.NoError(t, err)
	assert.Equal(t, env.cfg.Cache.Dir, strings.TrimSpace(out))

	out, _, err = env.run("cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	assert.Zero(t, env.backends)
}

func TestVersionFlag(t *testing.T) {
	env := newTestEnv(t)

	out, _, err := env.run("--version")
	require.NoError(t, err)
	assert.Contains(t, out, "test")
	assert.Zero(t, env.backends)
}

func TestResolveCategory(t *testing.T) {
	cats := []domain.Category{
		{ID: 1, Name: "History"},
		{ID: 2, Name: "Mystery"},
		{ID: 3, Name: "Science Fiction"},
	}

	id, err := resolveCategory("mystery", cats)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	id, err = resolveCategory("sci fi", cats)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	_, err = resolveCategory("ry", cats)
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveCategory("4", cats)
	assert.ErrorContains(t, err, "unknown category 4")
}
