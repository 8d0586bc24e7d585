package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBearerMiddleware_setsClientID(t *testing.T) {
	tokens := NewStaticTokens([]string{"backoffice:mytoken"})

	got := ""
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid, err := GetClientID(r.Context())
		if err != nil {
			t.Fatalf("expected client id present, got err: %v", err)
		}
		got = cid
		w.WriteHeader(http.StatusOK)
	})

	srv := BearerMiddleware(tokens)(handler)

	req := httptest.NewRequest("POST", "/import", nil)
	req.Header.Set("Authorization", "Bearer mytoken")
	rr := httptest.NewRecorder()

	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rr.Code)
	}
	if got != "backoffice" {
		t.Fatalf("expected client backoffice, got %q", got)
	}
}

func TestBearerMiddleware_queryToken(t *testing.T) {
	tokens := NewStaticTokens([]string{"plain"})
	reached := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("POST", "/upload?token=plain", nil)
	rr := httptest.NewRecorder()
	BearerMiddleware(tokens)(handler).ServeHTTP(rr, req)
	if !reached || rr.Code != http.StatusOK {
		t.Fatalf("expected query token to be accepted, got %d", rr.Code)
	}
}

func TestBearerMiddleware_blockWhenMissing(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("should not reach handler with missing token")
	})
	srv := BearerMiddleware(NewStaticTokens([]string{"x"}))(handler)

	req := httptest.NewRequest("POST", "/upload", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 Unauthorized, got %d", rr.Code)
	}
}

func TestBearerMiddleware_blockWhenWrong(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("should not reach handler with a wrong token")
	})
	srv := BearerMiddleware(NewStaticTokens([]string{"right"}))(handler)

	req := httptest.NewRequest("POST", "/upload", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 Unauthorized, got %d", rr.Code)
	}
}

func TestBearerMiddleware_allowsOptions(t *testing.T) {
	reached := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusNoContent)
	})
	srv := BearerMiddleware(NewStaticTokens(nil))(handler)

	req := httptest.NewRequest("OPTIONS", "/upload", nil)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 No Content, got %d", rr.Code)
	}
	if !reached {
		t.Fatalf("expected handler to be reached on OPTIONS")
	}
}

func TestStaticTokens_anonymousClientID(t *testing.T) {
	tokens := NewStaticTokens([]string{"abc", " ", ""})
	if tokens.Len() != 1 {
		t.Fatalf("expected 1 token, got %d", tokens.Len())
	}
	cid, err := tokens.CheckToken(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(cid) != 8 {
		t.Fatalf("expected 8-char hash id, got %q", cid)
	}
}
