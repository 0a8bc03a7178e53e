package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type stubVerifier struct {
	userID string
	err    error
	seen   string
}

func (s *stubVerifier) VerifyToken(token string) (string, error) {
	s.seen = token
	return s.userID, s.err
}

func authRouter(v TokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Auth(v))
	r.GET("/whoami", func(c *gin.Context) {
		uid, _ := c.Get("userID")
		c.JSON(http.StatusOK, gin.H{"user": uid})
	})
	return r
}

func TestAuth_NoHeaderPassesThrough(t *testing.T) {
	r := authRouter(&stubVerifier{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"user":null`) {
		t.Fatalf("anonymous request must not set userID: %s", w.Body.String())
	}
}

func TestAuth_ValidTokenSetsUserID(t *testing.T) {
	v := &stubVerifier{userID: "u42"}
	r := authRouter(v)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user":"u42"`) {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if v.seen != "tok-abc" {
		t.Fatalf("verifier saw %q", v.seen)
	}
}

func TestAuth_MalformedHeaderRejected(t *testing.T) {
	r := authRouter(&stubVerifier{userID: "u42"})

	for _, header := range []string{"Bearer", "Bearer   ", "Basic dXNlcg=="} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d", header, w.Code)
		}
	}
}

func TestAuth_InvalidTokenRejected(t *testing.T) {
	r := authRouter(&stubVerifier{err: errors.New("expired")})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer stale")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid or expired token") {
		t.Fatalf("body = %s", w.Body.String())
	}
}
