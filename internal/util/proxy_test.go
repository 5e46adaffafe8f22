package util

import (
	"net/http"
	"testing"
)

func TestNewProxyFunc_Configured(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure.local:3129", "internal.example")

	tests := []struct {
		url  string
		want string
	}{
		{"http://docs.google.com/sheet", "http://proxy.local:3128"},
		{"https://docs.google.com/sheet", "http://secure.local:3129"},
		{"https://internal.example/sheet", ""},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
		got, err := proxy(req)
		if err != nil {
			t.Fatalf("proxy(%s) failed: %v", tt.url, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("proxy(%s) = %q, want %q", tt.url, gotStr, tt.want)
		}
	}
}

func TestNewProxyFunc_HTTPOnlyCoversHTTPS(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "", "")

	req, _ := http.NewRequest(http.MethodGet, "https://docs.google.com/sheet", nil)
	got, err := proxy(req)
	if err != nil || got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("Expected https requests through the http proxy, got %v, %v", got, err)
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := NormalizeUserAgent("tabfind/0.1 (+https://github.com/ppiankov/tabfind)"); got != "tabfind" {
		t.Errorf("Expected tabfind, got %q", got)
	}
	if got := NormalizeUserAgent(""); got != "" {
		t.Errorf("Expected empty, got %q", got)
	}
}
