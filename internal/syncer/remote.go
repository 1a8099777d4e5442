package syncer

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/studio-b12/gowebdav"

	"github.com/user/markhub/internal/db"
)

// ErrRemoteNotFound reports that the remote has no snapshot yet. The
// first sync against a fresh remote treats this as an empty store.
var ErrRemoteNotFound = errors.New("remote snapshot not found")

// DefaultRemotePath is where the snapshot lives when settings leave the
// path blank.
const DefaultRemotePath = "/markhub/store.json"

// RemoteStore reads and writes the snapshot at its remote location.
// Implementations report a missing snapshot through ErrRemoteNotFound.
type RemoteStore interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// WebdavStore keeps the snapshot on a WebDAV share.
type WebdavStore struct {
	client *gowebdav.Client
	path   string
}

// NewWebdavStore builds a client from the persisted settings.
func NewWebdavStore(settings *db.SyncSettings) *WebdavStore {
	remotePath := settings.WebdavPath
	if remotePath == "" {
		remotePath = DefaultRemotePath
	}
	return &WebdavStore{
		client: gowebdav.NewClient(settings.WebdavURL, settings.WebdavUsername, settings.WebdavPassword),
		path:   remotePath,
	}
}

func (w *WebdavStore) Read(ctx context.Context) ([]byte, error) {
	data, err := w.client.Read(w.path)
	if err != nil {
		if gowebdav.IsErrNotFound(err) {
			return nil, ErrRemoteNotFound
		}
		return nil, fmt.Errorf("failed to read remote snapshot: %w", err)
	}
	return data, nil
}

func (w *WebdavStore) Write(ctx context.Context, data []byte) error {
	if dir := path.Dir(w.path); dir != "/" && dir != "." {
		if err := w.client.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create remote directory: %w", err)
		}
	}
	if err := w.client.Write(w.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write remote snapshot: %w", err)
	}
	return nil
}
