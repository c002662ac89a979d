package memory

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"

	"warehub/internal/app/policies"
)

// MediaStore keeps uploads in memory and serves them under BaseURL.
type MediaStore struct {
	BaseURL string

	mu    sync.RWMutex
	files map[string]StoredFile
}

type StoredFile struct {
	ContentType string
	Data        []byte
}

func NewMediaStore(baseURL string) *MediaStore {
	return &MediaStore{BaseURL: strings.TrimRight(baseURL, "/"), files: make(map[string]StoredFile)}
}

func (m *MediaStore) Upload(ctx context.Context, upload policies.MediaUpload) (string, error) {
	if upload.Body == nil {
		return "", fmt.Errorf("memory: upload body is required")
	}
	data, err := io.ReadAll(upload.Body)
	if err != nil {
		return "", err
	}
	key := path.Join(strings.Trim(upload.Folder, "/"), uuid.NewString()+path.Ext(upload.FileName))
	m.mu.Lock()
	m.files[key] = StoredFile{ContentType: upload.ContentType, Data: data}
	m.mu.Unlock()
	return m.BaseURL + "/" + key, nil
}

// Open returns a stored upload by key.
func (m *MediaStore) Open(key string) (StoredFile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[strings.TrimPrefix(key, "/")]
	return f, ok
}

var _ policies.MediaStore = (*MediaStore)(nil)
