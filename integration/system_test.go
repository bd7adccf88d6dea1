//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	catalogURL    = getenv("E2E_CATALOG_URL", "http://localhost:5000")
	storefrontURL = getenv("E2E_STOREFRONT_URL", "http://localhost:3000")
)

type item struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

func TestSystem_E2E(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	waitReady(t, ctx, catalogURL+"/readyz")
	waitReady(t, ctx, storefrontURL+"/readyz")

	var items []item
	doJSON(t, http.MethodGet, catalogURL+"/items", nil, &items, 200)
	if len(items) < 8 {
		t.Fatalf("expected seeded catalog, got %d items", len(items))
	}

	name := fmt.Sprintf("e2e item %d", time.Now().UnixNano())
	var created struct {
		Success bool `json:"success"`
		Item    item `json:"item"`
	}
	doJSON(t, http.MethodPost, catalogURL+"/items", map[string]any{
		"name": name, "price": 10, "description": "d", "image": "http://x",
	}, &created, 201)
	if !created.Success || created.Item.ID == 0 || created.Item.Name != name {
		t.Fatalf("create: %+v", created)
	}
	id := strconv.FormatInt(created.Item.ID, 10)

	var got item
	doJSON(t, http.MethodGet, catalogURL+"/items/"+id, nil, &got, 200)
	if got != created.Item {
		t.Fatalf("get=%+v want=%+v", got, created.Item)
	}

	doJSON(t, http.MethodGet, storefrontURL+"/api/items/"+id, nil, &got, 200)
	if got.Name != name {
		t.Fatalf("proxied item=%+v", got)
	}

	page := getPage(t, storefrontURL+"/items/"+id, nil, 200)
	if !strings.Contains(page, name) {
		t.Fatalf("detail page missing %q", name)
	}

	auth := login(t)
	page = getPage(t, storefrontURL+"/add-item", auth, 200)
	if !strings.Contains(page, `name="price"`) {
		t.Fatalf("add-item form not rendered")
	}

	if os.Getenv("E2E_RESTART_CATALOG") == "1" {
		restartContainer(t, ctx, "catalog")
		waitReady(t, ctx, catalogURL+"/readyz")
		doJSON(t, http.MethodGet, catalogURL+"/items/"+id, nil, &got, 200)
		if got.ID != created.Item.ID {
			t.Fatalf("item lost across restart: %+v", got)
		}
	}
}

func login(t *testing.T) *http.Cookie {
	t.Helper()

	form := url.Values{
		"email":    {getenv("E2E_DEMO_EMAIL", "test@example.com")},
		"password": {getenv("E2E_DEMO_PASSWORD", "123456")},
	}
	req, err := http.NewRequest(http.MethodPost, storefrontURL+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := noRedirect().Do(req)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status=%d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "auth" {
			return c
		}
	}
	t.Fatalf("login set no auth cookie")
	return nil
}

func getPage(t *testing.T, url string, cookie *http.Cookie, want int) string {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := noRedirect().Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("GET %s: status=%d want=%d", url, resp.StatusCode, want)
	}
	return string(body)
}

func noRedirect() *http.Client {
	return &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func waitReady(t *testing.T, ctx context.Context, url string) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}

	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil && resp != nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("service not ready: %s", url)
}

func doJSON(t *testing.T, method, url string, body any, out any, want int) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Fatalf("%s %s: status=%d want=%d", method, url, resp.StatusCode, want)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
