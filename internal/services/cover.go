package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/alphamusic/apiserver/internal/storage"
	"github.com/charmbracelet/log"
)

// CoverArchive stores the original bytes of uploaded cover images in object
// storage. The playlist document keeps a base64 copy regardless; archiving is
// best-effort and a failure never fails the update that triggered it.
type CoverArchive struct {
	storage *storage.Storage
	logger  *log.Logger
}

// NewCoverArchive constructs a CoverArchive over the given storage backend.
func NewCoverArchive(st *storage.Storage, logger *log.Logger) *CoverArchive {
	return &CoverArchive{storage: st, logger: logger}
}

// Archive uploads the cover image under covers/<playlistID>/<filename>. A nil
// receiver (no object storage configured) drops the upload silently.
func (a *CoverArchive) Archive(ctx context.Context, playlistID, filename string, data []byte, contentType string) {
	if a == nil || a.storage == nil {
		return
	}

	key := fmt.Sprintf("covers/%s/%s", playlistID, filename)
	err := a.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil && a.logger != nil {
		a.logger.Warn("archive cover image", "key", key, "err", err)
	}
}
