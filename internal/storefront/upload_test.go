package storefront_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/masad40/next-sc/internal/storefront"
)

func fakeImageHost(t *testing.T, reply string, status int) (*httptest.Server, *http.Request) {
	t.Helper()

	seen := new(http.Request)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		*seen = *r.WithContext(context.Background())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(ts.Close)
	return ts, seen
}

func TestImageHost_Upload(t *testing.T) {
	ts, seen := fakeImageHost(t, `{"success":true,"status":200,"data":{"url":"https://i.ibb.co/raw.png","display_url":"https://i.ibb.co/x.png"}}`, http.StatusOK)

	h := storefront.NewImageHost(ts.URL, "secret-key")
	url, err := h.Upload(context.Background(), pngImage())
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://i.ibb.co/x.png" {
		t.Fatalf("url=%q", url)
	}

	if got := seen.MultipartForm.Value["key"]; len(got) != 1 || got[0] != "secret-key" {
		t.Fatalf("key=%v", got)
	}
	files := seen.MultipartForm.File["image"]
	if len(files) != 1 || files[0].Filename != "a.png" {
		t.Fatalf("image part=%v", files)
	}
	if ct := files[0].Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("part content-type=%q", ct)
	}
}

func TestImageHost_UploadFallsBackToURL(t *testing.T) {
	ts, _ := fakeImageHost(t, `{"success":true,"data":{"url":"https://i.ibb.co/raw.png"}}`, http.StatusOK)

	url, err := storefront.NewImageHost(ts.URL, "k").Upload(context.Background(), pngImage())
	if err != nil || url != "https://i.ibb.co/raw.png" {
		t.Fatalf("url=%q err=%v", url, err)
	}
}

func TestImageHost_UploadError(t *testing.T) {
	ts, _ := fakeImageHost(t, `{"success":false,"status":400,"error":{"message":"Invalid API v1 key."}}`, http.StatusBadRequest)

	_, err := storefront.NewImageHost(ts.URL, "bad").Upload(context.Background(), pngImage())
	if !errors.Is(err, storefront.ErrUploadFailed) {
		t.Fatalf("err=%v", err)
	}
	if !strings.Contains(err.Error(), "Invalid API v1 key.") {
		t.Fatalf("host message lost: %v", err)
	}
}

func TestImageHost_MissingKey(t *testing.T) {
	_, err := storefront.NewImageHost("http://127.0.0.1:1", "").Upload(context.Background(), pngImage())
	if !errors.Is(err, storefront.ErrUploadFailed) {
		t.Fatalf("err=%v", err)
	}
}
