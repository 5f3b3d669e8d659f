package crmsdk

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pancarangroup/crmportal/pkg/eventbus"
)

func newFileService(t *testing.T, handler http.Handler) *FileService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	files := NewFileClient(server.URL, "cred", NewMemoryStore(), eventbus.New(), nil)
	return NewFileService(files)
}

func TestListFilesEmptyInputSkipsNetwork(t *testing.T) {
	t.Parallel()

	calls := 0
	files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	entries, err := files.ListFiles(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.NotNil(t, entries)
	require.Zero(t, calls)
}

func TestListFilesFlattens(t *testing.T) {
	t.Parallel()

	files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/file/list", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"data": {
			"invoice": {
				"inv-1": [
					{"fileName": "invoice.pdf", "path": "2026/08/invoice.pdf", "mimeType": "application/pdf"},
					{"fileName": "po.pdf", "path": "2026/08/po.pdf"}
				],
				"inv-2": [
					{"fileName": "receipt.pdf", "path": "2026/08/receipt.pdf"}
				]
			}
		}}`))
	}))

	entries, err := files.ListFiles(context.Background(), []Attachment{
		{TableName: "invoice", RecordID: "inv-1"},
		{TableName: "invoice", RecordID: "inv-2"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	first := entries[0]
	require.Equal(t, "invoice.pdf", first.FileName)
	require.Equal(t, "invoice", first.TableName)
	require.Equal(t, "inv-1", first.RecordID)
	require.Equal(t, "/file/download?path=2026%2F08%2Finvoice.pdf", first.DownloadURL)

	require.Equal(t, "inv-2", entries[2].RecordID)
}

func TestListFilesEmptyResponse(t *testing.T) {
	t.Parallel()

	files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	entries, err := files.ListFiles(context.Background(), []Attachment{{TableName: "invoice", RecordID: "inv-1"}})
	require.NoError(t, err)
	require.Empty(t, entries)
	require.NotNil(t, entries)
}

func TestDownload(t *testing.T) {
	t.Parallel()

	content := []byte("%PDF-1.7 fake invoice body")
	files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/file/download", r.URL.Path)
		require.Equal(t, "2026/08/invoice.pdf", r.URL.Query().Get("path"))
		w.Write([]byte(`{"data": {
			"fileName": "invoice.pdf",
			"mimeType": "application/pdf",
			"content": "` + base64.StdEncoding.EncodeToString(content) + `"
		}}`))
	}))

	file, err := files.Download(context.Background(), "2026/08/invoice.pdf")
	require.NoError(t, err)
	require.Equal(t, "invoice.pdf", file.FileName)
	require.Equal(t, "application/pdf", file.MimeType)
	require.Equal(t, content, file.Bytes)
}

func TestDownloadErrors(t *testing.T) {
	t.Parallel()

	t.Run("empty path", func(t *testing.T) {
		files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		var validationErr *ValidationError
		_, err := files.Download(context.Background(), "")
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("empty content", func(t *testing.T) {
		files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"fileName":"x.pdf"}}`))
		}))

		_, err := files.Download(context.Background(), "2026/08/x.pdf")
		require.ErrorIs(t, err, ErrRequestFailed)
	})

	t.Run("bad base64", func(t *testing.T) {
		files := newFileService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":{"fileName":"x.pdf","content":"!!not-base64!!"}}`))
		}))

		_, err := files.Download(context.Background(), "2026/08/x.pdf")
		require.Error(t, err)
	})
}

func TestDownloadURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/file/download?path=2026%2F08%2Finvoice.pdf", DownloadURL("2026/08/invoice.pdf"))
	require.Empty(t, DownloadURL(""))
}
