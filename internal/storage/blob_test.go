package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Put(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/data/uploads", "https://files.example.edu/uploads/")

	url, err := store.Put(context.Background(), "requests/r1/menu.pdf", []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.edu/uploads/requests/r1/menu.pdf", url)

	data, err := afero.ReadFile(fs, "/data/uploads/requests/r1/menu.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	ok, err := store.Exists("requests/r1/menu.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFileStore_KeysCannotEscapeBaseDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/data/uploads", "/uploads")

	url, err := store.Put(context.Background(), "../../etc/passwd", []byte("x"), "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/etc/passwd", url)

	_, err = fs.Stat("/etc/passwd")
	assert.Error(t, err)

	_, err = store.Put(context.Background(), "", []byte("x"), "text/plain")
	assert.Error(t, err)
}

func TestFileStore_Handler(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "/data", "/uploads")
	_, err := store.Put(context.Background(), "a/b.txt", []byte("hello"), "text/plain")
	require.NoError(t, err)

	srv := httptest.NewServer(http.StripPrefix("/uploads", store.Handler()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/uploads/a/b.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", string(body))
}
