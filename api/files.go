package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
)

// FileUpload is the payload for UploadFile.
type FileUpload struct {
	Name        string
	Content     []byte
	ContentType string
}

// FileContentOptions carries the conditional-request headers for
// GetFileContent.
type FileContentOptions struct {
	IfNoneMatch     string
	IfModifiedSince string
}

// FileContent is the success data of GetFileContent. ContentLength is set
// only when the response header is present and parses to a finite number.
type FileContent struct {
	Blob          []byte `json:"blob"`
	ContentType   string `json:"contentType"`
	ContentLength *int64 `json:"contentLength,omitempty"`
	ETag          string `json:"etag,omitempty"`
	LastModified  string `json:"lastModified,omitempty"`
}

// UploadFile stores a file on the backend. A nil file fails with MISSING_FILE
// before any request is constructed. The multipart form carries the file and
// a visibility field fixed to "user"; the success data is the decoded
// metadata body; no binary-payload decoding applies here.
func (c *Client) UploadFile(ctx context.Context, file *FileUpload) Result {
	if file == nil {
		return failureResult(CodeMissingFile, "file is required", nil)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := createFilePart(writer, file)
	if err != nil {
		return networkFailure(fmt.Errorf("build multipart form: %w", err))
	}
	if _, err := part.Write(file.Content); err != nil {
		return networkFailure(fmt.Errorf("build multipart form: %w", err))
	}
	// Visibility is fixed; callers cannot widen it.
	if err := writer.WriteField("visibility", "user"); err != nil {
		return networkFailure(fmt.Errorf("build multipart form: %w", err))
	}
	if err := writer.Close(); err != nil {
		return networkFailure(fmt.Errorf("build multipart form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/files/", &buf)
	if err != nil {
		return networkFailure(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.organizationID != "" {
		req.Header.Set("X-Organization-Id", c.organizationID)
	}

	status, _, body, err := c.do(req)
	if err != nil {
		return networkFailure(err)
	}
	if !is2xx(status) {
		return normalizeHTTPFailure(status, body)
	}
	decoded, _ := decodeBody(body)
	return successResult(decoded)
}

// GetFileContent retrieves raw file bytes. A 304 response short-circuits to
// {Success: true, NotModified: true} with no data; any other non-2xx status
// is a normalized failure parsed from the body. The success data is a
// *FileContent holding the binary blob plus the caching headers.
func (c *Client) GetFileContent(ctx context.Context, fileID string, opts *FileContentOptions) Result {
	if fileID == "" {
		return failureResult(CodeMissingFileID, "file ID is required", nil)
	}

	endpoint := fmt.Sprintf("%s/v1/files/%s/content", c.baseURL, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return networkFailure(err)
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	if c.organizationID != "" {
		req.Header.Set("X-Organization-Id", c.organizationID)
	}
	if c.conversationID != "" {
		req.Header.Set("X-Conversation-Id", c.conversationID)
	}
	if opts != nil {
		if opts.IfNoneMatch != "" {
			req.Header.Set("If-None-Match", opts.IfNoneMatch)
		}
		if opts.IfModifiedSince != "" {
			req.Header.Set("If-Modified-Since", opts.IfModifiedSince)
		}
	}

	status, header, body, err := c.do(req)
	if err != nil {
		return networkFailure(err)
	}
	if status == http.StatusNotModified {
		return Result{Success: true, NotModified: true}
	}
	if !is2xx(status) {
		return normalizeHTTPFailure(status, body)
	}

	content := &FileContent{
		Blob:         body,
		ContentType:  header.Get("Content-Type"),
		ETag:         header.Get("ETag"),
		LastModified: header.Get("Last-Modified"),
	}
	if raw := header.Get("Content-Length"); raw != "" {
		if n, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(n, 0) && !math.IsNaN(n) {
			length := int64(n)
			content.ContentLength = &length
		}
	}
	return successResult(content)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// createFilePart writes the file part, honoring an explicit content type.
func createFilePart(writer *multipart.Writer, file *FileUpload) (io.Writer, error) {
	if file.ContentType == "" {
		return writer.CreateFormFile("file", file.Name)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	header.Set("Content-Type", file.ContentType)
	return writer.CreatePart(header)
}
