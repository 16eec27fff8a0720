package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-formedit/pkg/editor"
)

type result struct {
	progress []*float64
	url      string
	err      error
	done     bool
}

func runTransfer(t *testing.T, fn editor.UploadFunc, path string, file editor.File) result {
	t.Helper()
	loop := editor.NewLoop()
	var res result
	tr := editor.NewTransfer(loop,
		func(f *float64) { res.progress = append(res.progress, f) },
		func(url string) { res.url, res.done = url, true },
		func(err error) { res.err, res.done = err, true },
	)
	fn(context.Background(), path, file, tr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := loop.RunUntil(ctx, func() bool { return res.done }); err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestHTTPUploadSuccess(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64<<10)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if !bytes.Equal(data, payload) || header.Filename != "cover.png" {
			http.Error(w, "payload mismatch", http.StatusBadRequest)
			return
		}
		if r.FormValue("path") != "root.url" {
			http.Error(w, "missing path", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"https://cdn.example.com/cover.png"}`)
	}))
	defer server.Close()

	up, err := NewHTTP(server.URL+"/upload", WithClient(server.Client()), WithHeader("X-Token", "secret"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res := runTransfer(t, up.Func(), "root.url", editor.FileFromBytes("cover.png", "image/png", payload))

	if res.err != nil || res.url != "https://cdn.example.com/cover.png" {
		t.Fatalf("unexpected result url=%q err=%v", res.url, res.err)
	}
	if len(res.progress) < 2 {
		t.Fatalf("expected progress events, got %d", len(res.progress))
	}
	if res.progress[0] != nil {
		t.Fatalf("first progress event should be indeterminate")
	}
	last := res.progress[len(res.progress)-1]
	if last == nil || *last != 1 {
		t.Fatalf("final progress = %v", last)
	}
}

func TestHTTPUploadQuotesFilename(t *testing.T) {
	names := []string{`cover "final".png`, `C:\shots\cover.png`, "portada-niño.png"}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			seen := make(chan string, 1)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, header, err := r.FormFile("file")
				if err != nil {
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				seen <- header.Filename
				_, _ = io.WriteString(w, `{"url":"https://cdn.example.com/x"}`)
			}))
			defer server.Close()

			up, err := NewHTTP(server.URL, WithClient(server.Client()))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			res := runTransfer(t, up.Func(), "root.url", editor.FileFromBytes(name, "image/png", []byte("abc")))
			if res.err != nil {
				t.Fatalf("upload: %v", res.err)
			}
			if got := <-seen; got != name {
				t.Fatalf("server saw filename %q, want %q", got, name)
			}
		})
	}
}

func TestHTTPUploadFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: "500"},
		{name: "error message", status: http.StatusUnprocessableEntity, body: `{"error":"too large"}`, wantErr: "too large"},
		{name: "missing url", status: http.StatusOK, body: `{}`, wantErr: ErrMissingURL.Error()},
		{name: "invalid json", status: http.StatusOK, body: `not json`, wantErr: "decode response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer server.Close()

			up, err := NewHTTP(server.URL, WithClient(server.Client()))
			if err != nil {
				t.Fatalf("new: %v", err)
			}
			res := runTransfer(t, up.Upload, "root.url", editor.FileFromBytes("a.png", "", []byte("abc")))
			if res.err == nil || !strings.Contains(res.err.Error(), tc.wantErr) {
				t.Fatalf("err = %v, want %q", res.err, tc.wantErr)
			}
			if res.url != "" {
				t.Fatalf("failed transfer reported url %q", res.url)
			}
		})
	}
}

func TestNewHTTPValidatesEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://example.com", "/relative", "http://"} {
		if _, err := NewHTTP(endpoint); !errors.Is(err, ErrInvalidEndpoint) {
			t.Fatalf("NewHTTP(%q) err = %v", endpoint, err)
		}
	}
}

func TestInlineUpload(t *testing.T) {
	res := runTransfer(t, Inline(), "root.url", editor.FileFromBytes("a.txt", "text/plain", []byte("hi")))
	if res.err != nil || res.url != "data:text/plain;base64,aGk=" {
		t.Fatalf("unexpected result url=%q err=%v", res.url, res.err)
	}

	res = runTransfer(t, Inline(), "root.url", editor.File{Name: "empty"})
	if res.err == nil {
		t.Fatalf("expected read failure")
	}

	big := editor.FileFromBytes("big.bin", "application/octet-stream", make([]byte, 32<<20+1))
	res = runTransfer(t, Inline(), "root.url", big)
	if !errors.Is(res.err, editor.ErrFileTooLarge) || res.url != "" {
		t.Fatalf("oversized file should fail, url len=%d err=%v", len(res.url), res.err)
	}
}
