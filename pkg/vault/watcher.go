package vault

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher observes the vault directory tree and reports changes so an
// active session can keep its file-state view current.
type Watcher struct {
	store    *Store
	notifier *fsnotify.Watcher
	log      zerolog.Logger
	onChange func(path string, op string)
	done     chan struct{}
}

// Watch starts a recursive watcher over the store's root. onChange receives
// the vault-relative path and the operation name ("create", "write",
// "remove", "rename").
func Watch(store *Store, log zerolog.Logger, onChange func(path, op string)) (*Watcher, error) {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		store:    store,
		notifier: notifier,
		log:      log,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(store.Root()); err != nil {
		_ = notifier.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if hidden(d.Name()) && path != w.store.Root() {
			return filepath.SkipDir
		}
		return w.notifier.Add(path)
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.notifier.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.notifier.Errors:
			if !ok {
				return
			}
			w.log.Debug().Err(err).Msg("vault watch error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.store.Root(), event.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if hidden(part) {
			return
		}
	}
	// New folders need their own watch to stay recursive.
	if event.Op.Has(fsnotify.Create) {
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			if addErr := w.addRecursive(event.Name); addErr != nil {
				w.log.Debug().Err(addErr).Str("path", rel).Msg("watch new folder")
			}
		}
	}
	var op string
	switch {
	case event.Op.Has(fsnotify.Create):
		op = "create"
	case event.Op.Has(fsnotify.Write):
		op = "write"
	case event.Op.Has(fsnotify.Remove):
		op = "remove"
	case event.Op.Has(fsnotify.Rename):
		op = "rename"
	default:
		return
	}
	if w.onChange != nil {
		w.onChange(rel, op)
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.notifier.Close()
}
