package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestResolveRejectsEscapes(t *testing.T) {
	store := newStore(t)
	for _, p := range []string{"..", "../x", "a/../../x", "../../etc/passwd"} {
		_, err := store.Read(p)
		require.ErrorIs(t, err, ErrEscapesVault, "path %q", p)
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("deep/nested/note.md", "hello"))

	content, err := store.Read("deep/nested/note.md")
	require.NoError(t, err)
	require.Equal(t, "hello", content)

	require.ErrorIs(t, store.Create("deep/nested/note.md", "again"), ErrExists)
}

func TestReadMissingAndFolder(t *testing.T) {
	store := newStore(t)
	_, err := store.Read("ghost.md")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.CreateFolder("dir"))
	_, err = store.Read("dir")
	require.ErrorIs(t, err, ErrIsFolder)
}

func TestUpdateAndAppend(t *testing.T) {
	store := newStore(t)
	require.ErrorIs(t, store.Update("nope.md", "x"), ErrNotFound)
	require.ErrorIs(t, store.Append("nope.md", "x"), ErrNotFound)

	require.NoError(t, store.Create("n.md", "one"))
	require.NoError(t, store.Update("n.md", "two"))
	require.NoError(t, store.Append("n.md", " three"))

	content, err := store.Read("n.md")
	require.NoError(t, err)
	require.Equal(t, "two three", content)
}

func TestListSkipsHidden(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("visible.md", ""))
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), ".hidden"), nil, 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(store.Root(), ".trash"), 0o755))
	require.NoError(t, store.CreateFolder("sub"))

	files, folders, err := store.List("")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "visible.md", files[0].Name)
	require.Len(t, folders, 1)
	require.Equal(t, "sub", folders[0].Name)
}

func TestListSubfolderPaths(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("sub/a.md", ""))

	files, _, err := store.List("sub")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "sub/a.md", files[0].Path)

	_, _, err = store.List("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRename(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("sub/old.md", "x"))

	newPath, err := store.Rename("sub/old.md", "new.md")
	require.NoError(t, err)
	require.Equal(t, "sub/new.md", newPath)

	_, err = store.Rename("sub/new.md", "bad/name.md")
	require.Error(t, err)

	require.NoError(t, store.Create("sub/other.md", ""))
	_, err = store.Rename("sub/other.md", "new.md")
	require.ErrorIs(t, err, ErrExists)
}

func TestMove(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("inbox/task.md", "x"))

	newPath, err := store.Move("inbox/task.md", "archive/2026")
	require.NoError(t, err)
	require.Equal(t, "archive/2026/task.md", newPath)

	content, err := store.Read("archive/2026/task.md")
	require.NoError(t, err)
	require.Equal(t, "x", content)
}

func TestDeleteTrashCollisions(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("doc.md", "v1"))
	first, err := store.Delete("doc.md")
	require.NoError(t, err)
	require.Equal(t, ".trash/doc.md", first)

	require.NoError(t, store.Create("doc.md", "v2"))
	second, err := store.Delete("doc.md")
	require.NoError(t, err)
	require.Equal(t, ".trash/doc-1.md", second)

	_, err = store.Delete("doc.md")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSearchNamesAndContents(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("projects/apollo.md", "launch checklist"))
	require.NoError(t, store.Create("misc/notes.md", "remember the Apollo anniversary"))
	require.NoError(t, store.Create("misc/other.md", "nothing relevant"))

	matches, err := store.Search("apollo")
	require.NoError(t, err)
	require.Len(t, matches, 2)

	byPath := map[string]Match{}
	for _, m := range matches {
		byPath[m.Path] = m
	}
	// Name match carries no snippet, content match does.
	require.Empty(t, byPath["projects/apollo.md"].Snippet)
	require.Contains(t, byPath["misc/notes.md"].Snippet, "Apollo")
}

func TestSearchSkipsTrash(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("gone.md", "needle"))
	_, err := store.Delete("gone.md")
	require.NoError(t, err)

	matches, err := store.Search("needle")
	require.NoError(t, err)
	require.Empty(t, matches)
}

func TestTree(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Create("a/b/c.md", "x"))
	require.NoError(t, store.Create("a/d.md", "y"))

	entries, err := store.Tree("")
	require.NoError(t, err)

	kinds := map[string]string{}
	for _, e := range entries {
		kinds[e.Path] = e.Kind
	}
	require.Equal(t, map[string]string{
		"a":        "folder",
		"a/b":      "folder",
		"a/b/c.md": "file",
		"a/d.md":   "file",
	}, kinds)

	scoped, err := store.Tree("a/b")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	require.Equal(t, "a/b/c.md", scoped[0].Path)
}
