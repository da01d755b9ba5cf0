// Package vault manages the note directory the voice tools operate on:
// plain files and folders under a single root, with soft deletion into a
// trash folder and recursive search.
package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const trashDir = ".trash"

var (
	ErrEscapesVault = errors.New("path escapes the vault")
	ErrNotFound     = errors.New("not found")
	ErrExists       = errors.New("already exists")
	ErrIsFolder     = errors.New("path is a folder")
)

// Store is a filesystem vault rooted at a single directory. All paths given
// to its methods are vault-relative; anything resolving outside the root is
// rejected.
type Store struct {
	root string
}

// Entry is one item in a listing or tree.
type Entry struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Kind string `json:"kind"` // "file" or "folder"
	Size int64  `json:"size,omitempty"`
}

// Match is one search hit.
type Match struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet,omitempty"`
}

// New opens a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create vault root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute vault root.
func (s *Store) Root() string { return s.root }

// resolve maps a vault-relative path onto the filesystem, rejecting
// anything that escapes the root.
func (s *Store) resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	rel = strings.TrimPrefix(rel, "/")
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if cleaned == "." {
		return s.root, nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrEscapesVault
	}
	return filepath.Join(s.root, cleaned), nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// List returns the immediate files and folders of one vault folder,
// sorted by name, hidden entries excluded.
func (s *Store) List(folder string) (files, folders []Entry, err error) {
	abs, err := s.resolve(folder)
	if err != nil {
		return nil, nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, folder)
		}
		return nil, nil, err
	}
	rel := strings.TrimPrefix(strings.TrimSpace(folder), "/")
	for _, e := range entries {
		if hidden(e.Name()) {
			continue
		}
		path := e.Name()
		if rel != "" && rel != "." {
			path = strings.TrimSuffix(rel, "/") + "/" + e.Name()
		}
		if e.IsDir() {
			folders = append(folders, Entry{Path: path, Name: e.Name(), Kind: "folder"})
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, Entry{Path: path, Name: e.Name(), Kind: "file", Size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return files, folders, nil
}

// Read returns the full contents of one file.
func (s *Store) Read(path string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrIsFolder, path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Create writes a new file, failing if it already exists. Parent folders
// are created as needed.
func (s *Store) Create(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return err
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// Update replaces the contents of an existing file.
func (s *Store) Update(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsFolder, path)
	}
	return os.WriteFile(abs, []byte(content), 0o644)
}

// Append adds content to the end of an existing file.
func (s *Store) Append(path, content string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrIsFolder, path)
	}
	f, err := os.OpenFile(abs, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

// Rename gives a file or folder a new name within its current folder.
func (s *Store) Rename(path, newName string) (string, error) {
	if strings.ContainsAny(newName, "/\\") {
		return "", errors.New("new name must not contain path separators")
	}
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	dest := filepath.Join(filepath.Dir(abs), newName)
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, newName)
	}
	if err := os.Rename(abs, dest); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, dest)
	if err != nil {
		return newName, nil
	}
	return filepath.ToSlash(rel), nil
}

// Move relocates a file or folder into another vault folder, creating the
// destination folder if needed.
func (s *Store) Move(path, destFolder string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	destDir, err := s.resolve(destFolder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filepath.Base(abs))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, filepath.Base(abs))
	}
	if err := os.Rename(abs, dest); err != nil {
		return "", err
	}
	rel, err := filepath.Rel(s.root, dest)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Delete soft-deletes a file or folder by moving it into the trash folder.
// Name collisions in the trash get a numeric suffix.
func (s *Store) Delete(path string) (string, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if abs == s.root {
		return "", errors.New("cannot delete the vault root")
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", err
	}
	trash := filepath.Join(s.root, trashDir)
	if err := os.MkdirAll(trash, 0o755); err != nil {
		return "", err
	}
	base := filepath.Base(abs)
	dest := filepath.Join(trash, base)
	for i := 1; ; i++ {
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		dest = filepath.Join(trash, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
	if err := os.Rename(abs, dest); err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Join(trashDir, filepath.Base(dest))), nil
}

// CreateFolder makes a folder (and any missing parents).
func (s *Store) CreateFolder(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	return os.MkdirAll(abs, 0o755)
}

// Search walks the vault matching query against file names and file
// contents, case-insensitively. Content hits carry a snippet of the line
// that matched.
func (s *Store) Search(query string) ([]Match, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, errors.New("query must not be empty")
	}
	var matches []Match
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if hidden(d.Name()) && path != s.root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if strings.Contains(strings.ToLower(d.Name()), needle) {
			matches = append(matches, Match{Path: rel})
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		body := string(data)
		idx := strings.Index(strings.ToLower(body), needle)
		if idx < 0 {
			return nil
		}
		matches = append(matches, Match{Path: rel, Snippet: snippetAround(body, idx)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// snippetAround returns the line containing the match, trimmed.
func snippetAround(body string, idx int) string {
	start := strings.LastIndexByte(body[:idx], '\n') + 1
	end := strings.IndexByte(body[idx:], '\n')
	if end < 0 {
		end = len(body)
	} else {
		end += idx
	}
	line := strings.TrimSpace(body[start:end])
	const maxSnippet = 200
	if len(line) > maxSnippet {
		line = line[:maxSnippet]
	}
	return line
}

// Tree returns every entry under a folder, depth-first, as a flat list of
// vault-relative paths.
func (s *Store) Tree(folder string) ([]Entry, error) {
	abs, err := s.resolve(folder)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, folder)
		}
		return nil, err
	} else if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a folder", folder)
	}
	var entries []Entry
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == abs {
			return nil
		}
		if hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		entry := Entry{Path: filepath.ToSlash(rel), Name: d.Name(), Kind: "file"}
		if d.IsDir() {
			entry.Kind = "folder"
		} else if info, infoErr := d.Info(); infoErr == nil {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
