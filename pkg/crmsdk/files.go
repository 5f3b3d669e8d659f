package crmsdk

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
)

// FileService wraps the external file-service backend used for invoice
// attachments. It runs over the file client variant, which carries the
// service credential but no session token.
type FileService struct {
	files *Client
}

// NewFileService creates a FileService over a file client.
func NewFileService(files *Client) *FileService {
	return &FileService{files: files}
}

// ListFiles resolves the files stored for the given attachment references.
// An empty attachment list resolves to an empty result without a network
// call, and so does a response with no data; attachment listing degrades
// rather than failing the surrounding view.
func (s *FileService) ListFiles(ctx context.Context, attachments []Attachment) ([]FileEntry, error) {
	if len(attachments) == 0 {
		return []FileEntry{}, nil
	}

	var resp fileListResponse
	if err := s.files.Post(ctx, "/file/list", attachments, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return []FileEntry{}, nil
	}

	// Flatten tableName -> recordId -> files, annotating each entry with
	// its origin and a ready-to-use download URL. Map iteration order is
	// random, so sort the keys for a stable listing.
	var entries []FileEntry
	for _, tableName := range sortedKeys(resp.Data) {
		tableData := resp.Data[tableName]
		for _, recordID := range sortedKeys(tableData) {
			for _, file := range tableData[recordID] {
				file.TableName = tableName
				file.RecordID = recordID
				file.DownloadURL = DownloadURL(file.Path)
				entries = append(entries, file)
			}
		}
	}

	if entries == nil {
		entries = []FileEntry{}
	}
	return entries, nil
}

// Download fetches a stored file and decodes its base64 content.
func (s *FileService) Download(ctx context.Context, path string) (*FileContent, error) {
	if path == "" {
		return nil, &ValidationError{Field: "path", Message: "file path is required"}
	}

	var resp fileDownloadResponse
	if err := s.files.Get(ctx, DownloadURL(path), &resp); err != nil {
		return nil, err
	}
	if resp.Data.Content == "" {
		return nil, fmt.Errorf("%w: empty file content", ErrRequestFailed)
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}

	return &FileContent{
		FileName: resp.Data.FileName,
		MimeType: resp.Data.MimeType,
		Bytes:    raw,
	}, nil
}

// DownloadURL builds the download path for a stored file.
func DownloadURL(path string) string {
	if path == "" {
		return ""
	}
	return "/file/download?path=" + url.QueryEscape(path)
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
