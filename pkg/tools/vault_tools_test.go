package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vaultvoice/vaultvoice/pkg/realtime"
	"github.com/vaultvoice/vaultvoice/pkg/vault"
)

type fileStateRecorder struct {
	folder string
	note   string
	calls  int
}

func (r *fileStateRecorder) callbacks() realtime.ToolCallbacks {
	return realtime.ToolCallbacks{
		OnFileState: func(folder, note string) {
			r.folder = folder
			r.note = note
			r.calls++
		},
	}
}

func newTestVault(t *testing.T) (*Registry, *vault.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := vault.New(dir)
	require.NoError(t, err)
	return NewVaultRegistry(store, zerolog.Nop()), store, dir
}

func execute(t *testing.T, r *Registry, cb realtime.ToolCallbacks, name string, args map[string]any) any {
	t.Helper()
	result, err := r.Execute(context.Background(), realtime.ToolCall{ID: name + "-id", Name: name, Args: args}, cb)
	require.NoError(t, err)
	return result
}

func TestCreateReadUpdateAppend(t *testing.T) {
	registry, _, dir := newTestVault(t)
	rec := &fileStateRecorder{}
	cb := rec.callbacks()

	execute(t, registry, cb, "create_file", map[string]any{"path": "notes/todo.md", "content": "milk"})
	require.FileExists(t, filepath.Join(dir, "notes", "todo.md"))
	require.Equal(t, "notes", rec.folder)
	require.Equal(t, "notes/todo.md", rec.note)

	content := execute(t, registry, cb, "read_file", map[string]any{"path": "notes/todo.md"})
	require.Equal(t, "milk", content)

	execute(t, registry, cb, "update_file", map[string]any{"path": "notes/todo.md", "content": "eggs"})
	execute(t, registry, cb, "append_to_file", map[string]any{"path": "notes/todo.md", "content": "\nbread"})

	content = execute(t, registry, cb, "read_file", map[string]any{"path": "notes/todo.md"})
	require.Equal(t, "eggs\nbread", content)
}

func TestCreateExistingFileFails(t *testing.T) {
	registry, _, _ := newTestVault(t)
	cb := realtime.ToolCallbacks{}

	execute(t, registry, cb, "create_file", map[string]any{"path": "a.md"})
	_, err := registry.Execute(context.Background(), realtime.ToolCall{Name: "create_file", Args: map[string]any{"path": "a.md"}}, cb)
	require.ErrorIs(t, err, vault.ErrExists)
}

func TestListDirectory(t *testing.T) {
	registry, store, _ := newTestVault(t)
	require.NoError(t, store.Create("a.md", ""))
	require.NoError(t, store.Create("b.md", ""))
	require.NoError(t, store.CreateFolder("sub"))

	result := execute(t, registry, realtime.ToolCallbacks{}, "list_directory", map[string]any{})
	out := result.(map[string]any)
	files := out["files"].([]vault.Entry)
	folders := out["folders"].([]vault.Entry)
	require.Len(t, files, 2)
	require.Len(t, folders, 1)
	require.Equal(t, "sub", folders[0].Name)
}

func TestRenameAndMove(t *testing.T) {
	registry, store, dir := newTestVault(t)
	require.NoError(t, store.Create("draft.md", "x"))

	result := execute(t, registry, realtime.ToolCallbacks{}, "rename_file", map[string]any{"path": "draft.md", "new_name": "final.md"})
	require.Equal(t, "final.md", result.(map[string]any)["to"])

	result = execute(t, registry, realtime.ToolCallbacks{}, "move_file", map[string]any{"path": "final.md", "destination": "archive"})
	require.Equal(t, "archive/final.md", result.(map[string]any)["to"])
	require.FileExists(t, filepath.Join(dir, "archive", "final.md"))
}

func TestDeleteMovesToTrash(t *testing.T) {
	registry, store, dir := newTestVault(t)
	require.NoError(t, store.Create("old.md", "bye"))

	result := execute(t, registry, realtime.ToolCallbacks{}, "delete_file", map[string]any{"path": "old.md"})
	trashed := result.(map[string]any)["trashed_as"].(string)
	require.True(t, strings.HasPrefix(trashed, ".trash/"))
	require.NoFileExists(t, filepath.Join(dir, "old.md"))
	require.FileExists(t, filepath.Join(dir, filepath.FromSlash(trashed)))
}

func TestSearchFiles(t *testing.T) {
	registry, store, _ := newTestVault(t)
	require.NoError(t, store.Create("recipes/pasta.md", "boil the spaghetti for nine minutes"))
	require.NoError(t, store.Create("recipes/salad.md", "lettuce and tomatoes"))

	result := execute(t, registry, realtime.ToolCallbacks{}, "search_files", map[string]any{"query": "SPAGHETTI"})
	matches := result.(map[string]any)["results"].([]vault.Match)
	require.Len(t, matches, 1)
	require.Equal(t, "recipes/pasta.md", matches[0].Path)
	require.Contains(t, matches[0].Snippet, "spaghetti")
}

func TestFolderTree(t *testing.T) {
	registry, store, _ := newTestVault(t)
	require.NoError(t, store.Create("a/b/c.md", ""))
	require.NoError(t, store.Create("a/d.md", ""))

	result := execute(t, registry, realtime.ToolCallbacks{}, "folder_tree", map[string]any{})
	entries := result.(map[string]any)["entries"].([]vault.Entry)
	paths := map[string]string{}
	for _, e := range entries {
		paths[e.Path] = e.Kind
	}
	require.Equal(t, "folder", paths["a"])
	require.Equal(t, "folder", paths["a/b"])
	require.Equal(t, "file", paths["a/b/c.md"])
	require.Equal(t, "file", paths["a/d.md"])
}

func TestCurrentDatetime(t *testing.T) {
	registry, _, _ := newTestVault(t)
	result := execute(t, registry, realtime.ToolCallbacks{}, "current_datetime", nil)
	out := result.(map[string]any)
	require.NotEmpty(t, out["datetime"])
	require.NotEmpty(t, out["weekday"])
}

func TestReadFileMissingPath(t *testing.T) {
	registry, _, _ := newTestVault(t)
	_, err := registry.Execute(context.Background(), realtime.ToolCall{Name: "read_file", Args: map[string]any{}}, realtime.ToolCallbacks{})
	require.Error(t, err)
}

func TestPathEscapeRejected(t *testing.T) {
	registry, _, dir := newTestVault(t)
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("hidden"), 0o644))

	_, err := registry.Execute(context.Background(), realtime.ToolCall{Name: "read_file", Args: map[string]any{"path": "../secret.txt"}}, realtime.ToolCallbacks{})
	require.ErrorIs(t, err, vault.ErrEscapesVault)
}

func TestBadArgumentTypeFails(t *testing.T) {
	registry, _, _ := newTestVault(t)
	_, err := registry.Execute(context.Background(), realtime.ToolCall{Name: "read_file", Args: map[string]any{"path": 42}}, realtime.ToolCallbacks{})
	require.Error(t, err)
}
