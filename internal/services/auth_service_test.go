package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAuth_IssueAndVerifyToken(t *testing.T) {
	svc := NewAuthService(nil, "", "", "", []byte("secret"), time.Hour)

	tok, err := svc.IssueToken("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	uid, err := svc.VerifyToken(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if uid != "u1" {
		t.Fatalf("subject = %q, want u1", uid)
	}
}

func TestAuth_VerifyToken_WrongSecret(t *testing.T) {
	issuer := NewAuthService(nil, "", "", "", []byte("secret-a"), time.Hour)
	verifier := NewAuthService(nil, "", "", "", []byte("secret-b"), time.Hour)

	tok, _ := issuer.IssueToken("u1")
	if _, err := verifier.VerifyToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuth_VerifyToken_Expired(t *testing.T) {
	svc := NewAuthService(nil, "", "", "", []byte("secret"), -time.Minute)

	tok, err := svc.IssueToken("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyToken(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestAuth_VerifyToken_Garbage(t *testing.T) {
	svc := NewAuthService(nil, "", "", "", []byte("secret"), time.Hour)
	if _, err := svc.VerifyToken("not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuth_LoginURL(t *testing.T) {
	svc := NewAuthService(nil, "client-1", "shh", "https://app.example/cb", []byte("s"), time.Hour)

	u := svc.LoginURL("xyz")
	for _, want := range []string{
		"accounts.google.com",
		"client_id=client-1",
		"state=xyz",
		"response_type=code",
	} {
		if !strings.Contains(u, want) {
			t.Fatalf("login url missing %q: %s", want, u)
		}
	}
}

func TestAuth_HandleCallback(t *testing.T) {
	db := newTestDB(t)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.Form.Get("code"); got != "the-code" {
			t.Errorf("code = %q", got)
		}
		if got := r.Form.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gat"})
	}))
	defer tokenSrv.Close()

	userinfoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer gat" {
			t.Errorf("authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"email": "new@user.example"})
	}))
	defer userinfoSrv.Close()

	svc := NewAuthService(db, "cid", "cs", "https://app.example/cb", []byte("secret"), time.Hour)
	svc.tokenURL = tokenSrv.URL
	svc.userinfoURL = userinfoSrv.URL

	sess, err := svc.HandleCallback(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("callback: %v", err)
	}
	if sess.User == nil || sess.User.Email != "new@user.example" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}
	if uid, err := svc.VerifyToken(sess.Token); err != nil || uid != sess.User.ID {
		t.Fatalf("session token must verify to the user: %q, %v", uid, err)
	}

	// Second sign-in reuses the account.
	sess2, err := svc.HandleCallback(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("second callback: %v", err)
	}
	if sess2.User.ID != sess.User.ID {
		t.Fatalf("expected same account, got %q vs %q", sess2.User.ID, sess.User.ID)
	}
}

func TestAuth_HandleCallback_ExchangeFails(t *testing.T) {
	db := newTestDB(t)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer tokenSrv.Close()

	svc := NewAuthService(db, "cid", "cs", "https://app.example/cb", []byte("secret"), time.Hour)
	svc.tokenURL = tokenSrv.URL

	if _, err := svc.HandleCallback(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error when the provider rejects the code")
	}
}
