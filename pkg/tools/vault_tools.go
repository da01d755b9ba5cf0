package tools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vaultvoice/vaultvoice/pkg/realtime"
	"github.com/vaultvoice/vaultvoice/pkg/vault"
)

// decodeArgs validates caller-supplied arguments against a typed record via
// a JSON round trip, so handlers never reach into untyped maps.
func decodeArgs(args map[string]any, dst any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func parentFolder(p string) string {
	dir := path.Dir(strings.TrimPrefix(p, "/"))
	if dir == "." {
		return ""
	}
	return dir
}

// listDirectory lists the immediate contents of a vault folder.
type listDirectory struct{ store *vault.Store }

func (t *listDirectory) Name() string { return "list_directory" }

func (t *listDirectory) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "List the files and folders directly inside a vault folder. Omit path for the vault root.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Vault-relative folder path. Empty for the root."),
		}),
	}
}

func (t *listDirectory) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	files, folders, err := t.store.List(in.Path)
	if err != nil {
		return nil, err
	}
	cb.FileState(strings.TrimPrefix(in.Path, "/"), "")
	if files == nil {
		files = []vault.Entry{}
	}
	if folders == nil {
		folders = []vault.Entry{}
	}
	return map[string]any{
		"path":    in.Path,
		"files":   files,
		"folders": folders,
	}, nil
}

// readFile returns a file's full contents as a bare string.
type readFile struct{ store *vault.Store }

func (t *readFile) Name() string { return "read_file" }

func (t *readFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Read the full contents of a file in the vault.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Vault-relative file path."),
		}, "path"),
	}
}

func (t *readFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	content, err := t.store.Read(in.Path)
	if err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(in.Path), in.Path)
	return content, nil
}

// createFile writes a new file.
type createFile struct{ store *vault.Store }

func (t *createFile) Name() string { return "create_file" }

func (t *createFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Create a new file in the vault. Fails if the file already exists.",
		Parameters: objectSchema(map[string]any{
			"path":    stringProp("Vault-relative path for the new file."),
			"content": stringProp("Initial file contents. Defaults to empty."),
		}, "path"),
	}
}

func (t *createFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	if err := t.store.Create(in.Path, in.Content); err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(in.Path), in.Path)
	return map[string]any{"path": in.Path, "created": true}, nil
}

// updateFile replaces an existing file's contents.
type updateFile struct{ store *vault.Store }

func (t *updateFile) Name() string { return "update_file" }

func (t *updateFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Replace the entire contents of an existing file.",
		Parameters: objectSchema(map[string]any{
			"path":    stringProp("Vault-relative file path."),
			"content": stringProp("New file contents."),
		}, "path", "content"),
	}
}

func (t *updateFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	if err := t.store.Update(in.Path, in.Content); err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(in.Path), in.Path)
	return map[string]any{"path": in.Path, "updated": true}, nil
}

// appendToFile adds content to the end of an existing file.
type appendToFile struct{ store *vault.Store }

func (t *appendToFile) Name() string { return "append_to_file" }

func (t *appendToFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Append content to the end of an existing file.",
		Parameters: objectSchema(map[string]any{
			"path":    stringProp("Vault-relative file path."),
			"content": stringProp("Content to append."),
		}, "path", "content"),
	}
}

func (t *appendToFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	if err := t.store.Append(in.Path, in.Content); err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(in.Path), in.Path)
	return map[string]any{"path": in.Path, "appended": true}, nil
}

// renameFile renames a file or folder in place.
type renameFile struct{ store *vault.Store }

func (t *renameFile) Name() string { return "rename_file" }

func (t *renameFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Rename a file or folder without moving it.",
		Parameters: objectSchema(map[string]any{
			"path":     stringProp("Vault-relative path of the item to rename."),
			"new_name": stringProp("New name, without any folder component."),
		}, "path", "new_name"),
	}
}

func (t *renameFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path    string `json:"path"`
		NewName string `json:"new_name"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" || in.NewName == "" {
		return nil, errors.New("path and new_name are required")
	}
	newPath, err := t.store.Rename(in.Path, in.NewName)
	if err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(newPath), newPath)
	return map[string]any{"from": in.Path, "to": newPath}, nil
}

// moveFile relocates a file or folder into another folder.
type moveFile struct{ store *vault.Store }

func (t *moveFile) Name() string { return "move_file" }

func (t *moveFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Move a file or folder into another vault folder.",
		Parameters: objectSchema(map[string]any{
			"path":        stringProp("Vault-relative path of the item to move."),
			"destination": stringProp("Vault-relative destination folder."),
		}, "path", "destination"),
	}
}

func (t *moveFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path        string `json:"path"`
		Destination string `json:"destination"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	newPath, err := t.store.Move(in.Path, in.Destination)
	if err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(newPath), newPath)
	return map[string]any{"from": in.Path, "to": newPath}, nil
}

// deleteFile soft-deletes a file or folder into the trash.
type deleteFile struct{ store *vault.Store }

func (t *deleteFile) Name() string { return "delete_file" }

func (t *deleteFile) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Delete a file or folder. Deleted items are moved to the trash, not destroyed.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Vault-relative path of the item to delete."),
		}, "path"),
	}
}

func (t *deleteFile) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	trashed, err := t.store.Delete(in.Path)
	if err != nil {
		return nil, err
	}
	cb.FileState(parentFolder(in.Path), "")
	return map[string]any{"path": in.Path, "trashed_as": trashed}, nil
}

// createFolder makes a new folder.
type createFolder struct{ store *vault.Store }

func (t *createFolder) Name() string { return "create_folder" }

func (t *createFolder) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Create a new folder in the vault.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Vault-relative path of the new folder."),
		}, "path"),
	}
}

func (t *createFolder) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Path == "" {
		return nil, errors.New("path is required")
	}
	if err := t.store.CreateFolder(in.Path); err != nil {
		return nil, err
	}
	cb.FileState(strings.TrimPrefix(in.Path, "/"), "")
	return map[string]any{"path": in.Path, "created": true}, nil
}

// searchFiles searches file names and contents.
type searchFiles struct{ store *vault.Store }

func (t *searchFiles) Name() string { return "search_files" }

func (t *searchFiles) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Search the vault for files whose name or contents match a query, case-insensitively.",
		Parameters: objectSchema(map[string]any{
			"query": stringProp("Text to search for."),
		}, "query"),
	}
}

func (t *searchFiles) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	matches, err := t.store.Search(in.Query)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []vault.Match{}
	}
	return map[string]any{
		"query":   in.Query,
		"results": matches,
	}, nil
}

// folderTree returns every entry under a folder as a flat list.
type folderTree struct{ store *vault.Store }

func (t *folderTree) Name() string { return "folder_tree" }

func (t *folderTree) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "List everything under a folder recursively, as a flat list of paths. Omit path for the whole vault.",
		Parameters: objectSchema(map[string]any{
			"path": stringProp("Vault-relative folder path. Empty for the root."),
		}),
	}
}

func (t *folderTree) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	var in struct {
		Path string `json:"path"`
	}
	if err := decodeArgs(args, &in); err != nil {
		return nil, err
	}
	entries, err := t.store.Tree(in.Path)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []vault.Entry{}
	}
	return map[string]any{
		"path":    in.Path,
		"entries": entries,
	}, nil
}

// currentDatetime reports the local date and time, for date-stamped notes.
type currentDatetime struct{}

func (t *currentDatetime) Name() string { return "current_datetime" }

func (t *currentDatetime) Declaration() realtime.ToolDeclaration {
	return realtime.ToolDeclaration{
		Name:        t.Name(),
		Description: "Get the current local date and time.",
		Parameters:  objectSchema(map[string]any{}),
	}
}

func (t *currentDatetime) Execute(ctx context.Context, args map[string]any, cb realtime.ToolCallbacks) (any, error) {
	now := time.Now()
	zone, _ := now.Zone()
	return map[string]any{
		"datetime": now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04"),
		"weekday":  now.Weekday().String(),
		"timezone": zone,
	}, nil
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}
