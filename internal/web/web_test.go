package web

import (
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"epdgui/internal/app"
	"epdgui/internal/board"
	"epdgui/internal/config"
	"epdgui/internal/epd"
	"epdgui/internal/font"
)

func newTestServer(t *testing.T, auth *config.BasicAuthConfig) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BasicAuth = auth

	capture := app.NewCapture(image.Pt(epd.Width, epd.Height))
	r := &app.Refresher{
		Display:    capture,
		Preview:    capture,
		Board:      &board.Board{Font: font.Basic()},
		Title:      "Agenda",
		DateFormat: cfg.Board.DateFormat,
		Location:   time.UTC,
	}
	s := NewServer(cfg, r)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string, auth bool) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if auth {
		req.SetBasicAuth("admin", "secret")
	}
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, &config.BasicAuthConfig{Username: "admin", Password: "secret"})
	resp := get(t, ts, "/health", false)
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Fatalf("expected OK without auth, got %d %q", resp.StatusCode, body)
	}
}

func TestBasicAuth(t *testing.T) {
	_, ts := newTestServer(t, &config.BasicAuthConfig{Username: "admin", Password: "secret"})
	if resp := get(t, ts, "/api/status", false); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp := get(t, ts, "/api/status", true); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRefreshAndPreview(t *testing.T) {
	s, ts := newTestServer(t, nil)

	if resp := get(t, ts, "/preview.png", false); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 before the first frame, got %d", resp.StatusCode)
	}

	resp, err := ts.Client().Post(ts.URL+"/api/refresh", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	s.wg.Wait()

	var st app.Status
	resp = get(t, ts, "/api/status", false)
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Refreshes != 1 || st.LastError != "" {
		t.Fatalf("unexpected status %+v", st)
	}

	resp = get(t, ts, "/preview.png", false)
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != epd.Width || img.Bounds().Dy() != epd.Height {
		t.Fatalf("unexpected preview size %v", img.Bounds())
	}
}

func TestRefreshRequiresPost(t *testing.T) {
	_, ts := newTestServer(t, nil)
	if resp := get(t, ts, "/api/refresh", false); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestEventsEmpty(t *testing.T) {
	_, ts := newTestServer(t, nil)
	resp := get(t, ts, "/api/events", false)
	var entries []entryDTO
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatal(err)
	}
	if entries == nil || len(entries) != 0 {
		t.Fatalf("expected an empty list, got %v", entries)
	}
}
