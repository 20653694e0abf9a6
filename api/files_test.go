package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFileMissingFile(t *testing.T) {
	server := newRecordingServer(t, http.StatusOK, `{}`)
	client := New(WithBaseURL(server.URL))

	result := client.UploadFile(context.Background(), nil)
	require.False(t, result.Success)
	assert.Equal(t, CodeMissingFile, result.Error.Code)
	assert.Equal(t, 0, server.calls, "no request constructed without a file")
}

func TestUploadFileMultipartShape(t *testing.T) {
	var gotName, gotVisibility, gotContentType string
	var gotContent []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotVisibility = r.FormValue("visibility")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotName = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		gotContent, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "file-1", "filename": "notes.txt"}`))
	}))
	t.Cleanup(server.Close)

	client := New(WithBaseURL(server.URL), WithBearerToken("tok"), WithOrganizationID("org-1"))
	result := client.UploadFile(context.Background(), &FileUpload{
		Name:        "notes.txt",
		Content:     []byte("remember the milk"),
		ContentType: "text/plain",
	})

	require.True(t, result.Success)
	assert.Equal(t, "notes.txt", gotName)
	assert.Equal(t, "user", gotVisibility)
	assert.Equal(t, "text/plain", gotContentType)
	assert.Equal(t, []byte("remember the milk"), gotContent)
	assert.Equal(t, map[string]any{"id": "file-1", "filename": "notes.txt"}, result.Data)
}

func TestUploadFileHeaders(t *testing.T) {
	server := newRecordingServer(t, http.StatusOK, `{"id":"f"}`)
	client := New(WithBaseURL(server.URL), WithBearerToken("tok"), WithOrganizationID("org-1"))

	result := client.UploadFile(context.Background(), &FileUpload{Name: "a", Content: []byte("x")})
	require.True(t, result.Success)
	assert.Equal(t, "Bearer tok", server.lastHeader.Get("Authorization"))
	assert.Equal(t, "org-1", server.lastHeader.Get("X-Organization-Id"))
}

func TestUploadFileHTTPFailure(t *testing.T) {
	server := newRecordingServer(t, http.StatusRequestEntityTooLarge,
		`{"code": "FILE_TOO_LARGE", "message": "max 10MB"}`)
	client := New(WithBaseURL(server.URL))

	result := client.UploadFile(context.Background(), &FileUpload{Name: "big", Content: []byte("x")})
	require.False(t, result.Success)
	assert.Equal(t, "FILE_TOO_LARGE", result.Error.Code)
	assert.Equal(t, "max 10MB", result.Error.Message)
}

func TestGetFileContentMissingID(t *testing.T) {
	server := newRecordingServer(t, http.StatusOK, ``)
	client := New(WithBaseURL(server.URL))

	result := client.GetFileContent(context.Background(), "", nil)
	require.False(t, result.Success)
	assert.Equal(t, CodeMissingFileID, result.Error.Code)
	assert.Equal(t, 0, server.calls)
}

func TestGetFileContentSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/files/file%2F1/content", r.URL.EscapedPath())
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("X-Organization-Id"))
		assert.Equal(t, "conv-1", r.Header.Get("X-Conversation-Id"))
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Wed, 01 Jan 2025 00:00:00 GMT")
		_, _ = w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	}))
	t.Cleanup(server.Close)

	client := New(
		WithBaseURL(server.URL),
		WithBearerToken("tok"),
		WithOrganizationID("org-1"),
		WithConversationID("conv-1"),
	)
	result := client.GetFileContent(context.Background(), "file/1", nil)
	require.True(t, result.Success)
	assert.False(t, result.NotModified)

	content, ok := result.Data.(*FileContent)
	require.True(t, ok)
	assert.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, content.Blob)
	assert.Equal(t, "image/png", content.ContentType)
	assert.Equal(t, `"v1"`, content.ETag)
	assert.Equal(t, "Wed, 01 Jan 2025 00:00:00 GMT", content.LastModified)
	require.NotNil(t, content.ContentLength)
	assert.Equal(t, int64(4), *content.ContentLength)
}

func TestGetFileContentNotModified(t *testing.T) {
	var gotIfNoneMatch, gotIfModifiedSince string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIfNoneMatch = r.Header.Get("If-None-Match")
		gotIfModifiedSince = r.Header.Get("If-Modified-Since")
		w.WriteHeader(http.StatusNotModified)
	}))
	t.Cleanup(server.Close)

	client := New(WithBaseURL(server.URL))
	result := client.GetFileContent(context.Background(), "file-1", &FileContentOptions{
		IfNoneMatch:     `"v1"`,
		IfModifiedSince: "Wed, 01 Jan 2025 00:00:00 GMT",
	})

	require.True(t, result.Success)
	assert.True(t, result.NotModified)
	assert.Nil(t, result.Data)
	assert.Equal(t, `"v1"`, gotIfNoneMatch)
	assert.Equal(t, "Wed, 01 Jan 2025 00:00:00 GMT", gotIfModifiedSince)
}

func TestGetFileContentHTTPFailure(t *testing.T) {
	server := newRecordingServer(t, http.StatusNotFound, `{"code":"FILE_NOT_FOUND","message":"gone"}`)
	client := New(WithBaseURL(server.URL))

	result := client.GetFileContent(context.Background(), "file-1", nil)
	require.False(t, result.Success)
	assert.Equal(t, "FILE_NOT_FOUND", result.Error.Code)
	assert.Equal(t, "gone", result.Error.Message)
}

func TestGetFileContentNoContentLength(t *testing.T) {
	// Force chunked encoding so the response carries no Content-Length.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("data"))
	}))
	t.Cleanup(server.Close)

	client := New(WithBaseURL(server.URL))
	result := client.GetFileContent(context.Background(), "file-1", nil)
	require.True(t, result.Success)
	content := result.Data.(*FileContent)
	assert.Nil(t, content.ContentLength)
	assert.Equal(t, []byte("data"), content.Blob)
}
