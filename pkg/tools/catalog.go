package tools

import (
	"github.com/rs/zerolog"

	"github.com/vaultvoice/vaultvoice/pkg/vault"
)

// NewVaultRegistry assembles the full vault tool set over one store.
func NewVaultRegistry(store *vault.Store, log zerolog.Logger) *Registry {
	return NewRegistry(log,
		&listDirectory{store: store},
		&readFile{store: store},
		&createFile{store: store},
		&updateFile{store: store},
		&appendToFile{store: store},
		&renameFile{store: store},
		&moveFile{store: store},
		&deleteFile{store: store},
		&createFolder{store: store},
		&searchFiles{store: store},
		&folderTree{store: store},
		&currentDatetime{},
	)
}
