package images

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadRequest(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())

	file, header, err := req.FormFile("image")
	require.NoError(t, err)
	return file, header
}

func TestDiskStore_Save(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1715000000000) }

	file, header := uploadRequest(t, "cover.png", []byte("png bytes"))
	filename, err := store.Save(file, header)
	require.NoError(t, err)
	assert.Equal(t, "post-1715000000000.png", filename)

	path, err := store.Path(filename)
	require.NoError(t, err)
	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), saved)
}

func TestDiskStore_Save_extensionNormalized(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(42) }

	file, header := uploadRequest(t, "COVER.JPG", []byte("jpg bytes"))
	filename, err := store.Save(file, header)
	require.NoError(t, err)
	assert.Equal(t, "post-42.jpg", filename)
}

func TestDiskStore_Save_invalidType(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	for _, filename := range []string{"script.exe", "notes.txt", "archive.tar.gz", "noextension"} {
		file, header := uploadRequest(t, filename, []byte("whatever"))
		_, err := store.Save(file, header)
		assert.ErrorIs(t, err, ErrInvalidImageType, "filename: %s", filename)
	}
}

func TestDiskStore_Save_tooLarge(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	file, header := uploadRequest(t, "big.png", []byte("small body"))
	header.Size = MaxUploadBytes + 1
	_, err = store.Save(file, header)
	assert.ErrorIs(t, err, ErrImageTooLarge)
}

func TestDiskStore_Path(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "post-1.png"), []byte("x"), 0o600))

	path, err := store.Path("post-1.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "post-1.png"), path)

	_, err = store.Path("missing.png")
	assert.ErrorIs(t, err, ErrImageNotFound)

	// path traversal attempts are shut down
	_, err = store.Path("../disk_store.go")
	assert.ErrorIs(t, err, ErrImageNotFound)
	_, err = store.Path("/etc/passwd")
	assert.ErrorIs(t, err, ErrImageNotFound)
	_, err = store.Path("")
	assert.ErrorIs(t, err, ErrImageNotFound)
}
