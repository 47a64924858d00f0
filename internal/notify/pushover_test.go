package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPushSendsForm(t *testing.T) {
	var gotToken, gotUser, gotMessage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotToken = r.PostForm.Get("token")
		gotUser = r.PostForm.Get("user")
		gotMessage = r.PostForm.Get("message")
		w.Write([]byte(`{"status":1}`))
	}))
	defer srv.Close()

	p := New("app-token", "user-key", nil)
	p.SetEndpoint(srv.URL)

	if err := p.Push(context.Background(), "Recording What is X?"); err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if gotToken != "app-token" || gotUser != "user-key" {
		t.Errorf("credentials = (%q, %q), want configured values", gotToken, gotUser)
	}
	if gotMessage != "Recording What is X?" {
		t.Errorf("message = %q", gotMessage)
	}
}

func TestPushReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":0}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	p := New("tok", "usr", nil)
	p.SetEndpoint(srv.URL)

	if err := p.Push(context.Background(), "hi"); err == nil {
		t.Error("expected error for 400 response")
	}
}

func TestFireSwallowsFailure(t *testing.T) {
	p := New("tok", "usr", nil)
	p.SetEndpoint("http://127.0.0.1:0") // unroutable

	// Must not panic or propagate the failure.
	p.Fire(context.Background(), "hello")
}

func TestNilNotifierIsSafe(t *testing.T) {
	var p *Pushover
	if err := p.Push(context.Background(), "x"); err != nil {
		t.Errorf("nil Push() error = %v, want nil", err)
	}
	p.Fire(context.Background(), "x")
	p.SetEndpoint("anything")
}

func TestNewWithoutTokenDisables(t *testing.T) {
	if p := New("", "user", nil); p != nil {
		t.Error("New with empty token should return nil")
	}
}
