// Package services – AuthService
//
// This file implements the AuthService: the Google OAuth code exchange that
// signs users in, and the HS256 service tokens the rest of the API trusts.
// The callback flow is: exchange the authorization code for a Google access
// token, fetch the verified userinfo email, upsert the local account, then
// mint a short-lived JWT carrying the user ID as its subject.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
	"github.com/cspark/dearai-backend/internal/repo"
)

const (
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
)

// AuthService handles the OAuth sign-in flow and service-token lifecycle.
type AuthService struct {
	DB *gorm.DB

	// ClientID / ClientSecret / RedirectURL are the Google OAuth app
	// credentials.
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// JWTSecret signs service tokens (HS256).
	JWTSecret []byte
	// TokenTTL bounds token lifetime; 24h when zero.
	TokenTTL time.Duration

	// HTTPClient is used for provider calls; http.DefaultClient when nil.
	HTTPClient *http.Client

	// tokenURL / userinfoURL override the Google endpoints in tests.
	tokenURL    string
	userinfoURL string
}

// NewAuthService constructs an AuthService bound to the given handle and
// Google OAuth credentials.
func NewAuthService(db *gorm.DB, clientID, clientSecret, redirectURL string, jwtSecret []byte, ttl time.Duration) *AuthService {
	return &AuthService{
		DB:           db,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		JWTSecret:    jwtSecret,
		TokenTTL:     ttl,
	}
}

// LoginURL builds the Google consent-screen URL the login endpoint redirects
// to.
func (s *AuthService) LoginURL(state string) string {
	q := url.Values{}
	q.Set("client_id", s.ClientID)
	q.Set("redirect_uri", s.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("access_type", "offline")
	if state != "" {
		q.Set("state", state)
	}
	return googleAuthURL + "?" + q.Encode()
}

// Session is the outcome of a successful sign-in.
type Session struct {
	User  *domain.User `json:"user"`
	Token string       `json:"access_token"`
}

// HandleCallback exchanges the authorization code, resolves the verified
// email, upserts the account, and issues a service token.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (*Session, error) {
	email, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	u, err := repo.UpsertUserByEmail(ctx, s.DB, email)
	if err != nil {
		return nil, err
	}

	token, err := s.IssueToken(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: token}, nil
}

// IssueToken mints an HS256 JWT whose subject is the user ID.
func (s *AuthService) IssueToken(userID string) (string, error) {
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.JWTSecret)
}

// VerifyToken validates a service token and returns the user ID it names.
// Expired, malformed, or foreign-signed tokens yield ErrInvalidToken.
func (s *AuthService) VerifyToken(tokenString string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return s.JWTSecret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !tok.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := tok.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// exchangeCode swaps the authorization code for an access token and fetches
// the account's verified email.
func (s *AuthService) exchangeCode(ctx context.Context, code string) (string, error) {
	tokenURL := s.tokenURL
	if tokenURL == "" {
		tokenURL = googleTokenURL
	}

	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", s.ClientID)
	form.Set("client_secret", s.ClientSecret)
	form.Set("redirect_uri", s.RedirectURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("oauth token exchange: %w", err)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("oauth token exchange: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("oauth token exchange: empty access token")
	}

	userinfoURL := s.userinfoURL
	if userinfoURL == "" {
		userinfoURL = googleUserinfoURL
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, userinfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)

	body, err = s.do(req)
	if err != nil {
		return "", fmt.Errorf("oauth userinfo: %w", err)
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", fmt.Errorf("oauth userinfo: %w", err)
	}
	if info.Email == "" {
		return "", errors.New("oauth userinfo: no email in profile")
	}
	return info.Email, nil
}

func (s *AuthService) do(req *http.Request) ([]byte, error) {
	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider status %d", resp.StatusCode)
	}
	return body, nil
}
