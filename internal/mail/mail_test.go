package mail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"futsal-club/internal/models"
	"futsal-club/internal/models/config"

	"go.uber.org/zap"
)

func TestRenderEscapes(t *testing.T) {
	html, err := render(&models.Notification{Title: "<b>bill</b>", Message: "a & b"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, "<b>bill</b>") || !strings.Contains(html, "&lt;b&gt;") {
		t.Errorf("title not escaped: %s", html)
	}
	if !strings.Contains(html, `dir="rtl"`) {
		t.Error("missing rtl wrapper")
	}
}

func TestDeliver(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	m := NewMailer(config.MailConfig{APIKey: "re_test", From: "club@example.com"}, zap.NewNop())
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	m.client.BaseURL = base

	n := &models.Notification{ID: 3, Title: "صورتحساب مرداد", Message: "3000000 ریال"}
	if err := m.Deliver(context.Background(), &models.User{ID: 1}, n); err != nil || got != nil {
		t.Fatalf("user without email: err=%v request=%v", err, got)
	}
	if err := m.Deliver(context.Background(), &models.User{ID: 1, Email: "ali@example.com"}, n); err != nil {
		t.Fatal(err)
	}
	if got["subject"] != n.Title || got["from"] != "club@example.com" {
		t.Errorf("request = %v", got)
	}
	if to, _ := got["to"].([]any); len(to) != 1 || to[0] != "ali@example.com" {
		t.Errorf("to = %v", got["to"])
	}
}
