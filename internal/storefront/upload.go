package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"time"
)

var ErrUploadFailed = errors.New("image upload failed")

const (
	uploadTimeout       = 30 * time.Second
	maxUploadReplyBytes = 1 << 20
)

// ImageUploader stores an image somewhere public and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, img *ImageFile) (string, error)
}

// ImageHost talks to an imgbb-compatible upload API: a multipart POST with
// the file under "image" and the API key under "key".
type ImageHost struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

func NewImageHost(endpoint, apiKey string) *ImageHost {
	return &ImageHost{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: uploadTimeout},
	}
}

type imageHostReply struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (h *ImageHost) Upload(ctx context.Context, img *ImageFile) (string, error) {
	if h.APIKey == "" {
		return "", fmt.Errorf("%w: image host api key not configured", ErrUploadFailed)
	}
	if img == nil || len(img.Data) == 0 {
		return "", fmt.Errorf("%w: no image", ErrUploadFailed)
	}

	body, contentType, err := encodeImageForm(img, h.APIKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	var reply imageHostReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUploadReplyBytes)).Decode(&reply); err != nil {
		return "", fmt.Errorf("%w: status=%d: decode reply: %v", ErrUploadFailed, resp.StatusCode, err)
	}

	if !reply.Success {
		msg := reply.Error.Message
		if msg == "" {
			msg = "Upload failed"
		}
		return "", fmt.Errorf("%w: %s", ErrUploadFailed, msg)
	}

	url := reply.Data.DisplayURL
	if url == "" {
		url = reply.Data.URL
	}
	if url == "" {
		return "", fmt.Errorf("%w: reply carried no url", ErrUploadFailed)
	}
	return url, nil
}

func encodeImageForm(img *ImageFile, key string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("key", key); err != nil {
		return nil, "", err
	}

	name := filepath.Base(img.Filename)
	if name == "." || name == string(filepath.Separator) {
		name = "image"
	}

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, name))
	hdr.Set("Content-Type", img.ContentType)

	part, err := mw.CreatePart(hdr)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(img.Data); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
