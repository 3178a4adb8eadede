package storage

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileHeader(t *testing.T, name, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="documents"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File["documents"], 1)
	return form.File["documents"][0]
}

func TestSaveAndOpen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, 1024)
	require.NoError(t, err)

	doc, err := store.Save(fileHeader(t, "Birth Certificate.PDF", "application/pdf", []byte("pdf-bytes")))
	require.NoError(t, err)

	assert.Equal(t, "Birth Certificate.PDF", doc.FileName)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, ".pdf", filepath.Ext(doc.FilePath))
	assert.NotContains(t, doc.FilePath, "Birth")

	f, err := store.Open(doc.FilePath)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "pdf-bytes", string(data))
}

func TestSaveNamesAreUnique(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	require.NoError(t, err)

	a, err := store.Save(fileHeader(t, "id.png", "image/png", []byte("a")))
	require.NoError(t, err)
	b, err := store.Save(fileHeader(t, "id.png", "image/png", []byte("b")))
	require.NoError(t, err)
	assert.NotEqual(t, a.FilePath, b.FilePath)
}

func TestSaveRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, 4)
	require.NoError(t, err)

	_, err = store.Save(fileHeader(t, "big.txt", "text/plain", []byte("too many bytes")))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveDefaultsMimeType(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	require.NoError(t, err)

	doc, err := store.Save(fileHeader(t, "blob", "", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", doc.MimeType)
}

func TestOpenMissingOrEscaping(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	require.NoError(t, err)

	for _, path := range []string{"", "missing.pdf", "../etc/passwd", "/etc/passwd", "."} {
		_, err := store.Open(path)
		assert.ErrorIs(t, err, ErrNotFound, path)
	}
}

func TestRemove(t *testing.T) {
	store, err := NewLocal(t.TempDir(), 0)
	require.NoError(t, err)

	doc, err := store.Save(fileHeader(t, "a.txt", "text/plain", []byte("a")))
	require.NoError(t, err)
	require.NoError(t, store.Remove(doc.FilePath))
	require.NoError(t, store.Remove(doc.FilePath))

	_, err = store.Open(doc.FilePath)
	assert.ErrorIs(t, err, ErrNotFound)
}
