// Package identity integrates with the external identity provider. Users
// authenticate through an OAuth2 authorization-code flow; the provider's
// token response carries an HS256 ID token whose claims become the local
// user identity.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/strenly/coachpulse/internal/domain"
)

const httpCallTimeout = 10 * time.Second

// ErrInvalidIDToken wraps ID token parsing and validation failures.
var ErrInvalidIDToken = errors.New("invalid ID token")

// Client handles the provider side of the login flow: building the authorize
// URL, exchanging the code, and verifying the ID token.
type Client interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*domain.ProviderLogin, error)
}

// HTTPClient is the production Client backed by the provider's HTTP API.
type HTTPClient struct {
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	redirectURI  string
	httpClient   *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(clientID, clientSecret, authURL, tokenURL, redirectURI string) *HTTPClient {
	return &HTTPClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		authURL:      authURL,
		tokenURL:     tokenURL,
		redirectURI:  redirectURI,
		httpClient:   &http.Client{Timeout: httpCallTimeout},
	}
}

// AuthorizeURL builds the provider authorize redirect with the CSRF state.
func (c *HTTPClient) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return c.authURL + "?" + q.Encode()
}

// ExchangeCode trades the authorization code for tokens and parses the ID
// token into a ProviderLogin.
func (c *HTTPClient) ExchangeCode(ctx context.Context, code string) (*domain.ProviderLogin, error) {
	data := url.Values{}
	data.Set("client_id", c.clientID)
	data.Set("client_secret", c.clientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", c.redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
		IDToken      string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	login, err := ParseIDToken(tokenResp.IDToken, c.clientSecret)
	if err != nil {
		return nil, err
	}

	login.AccessToken = tokenResp.AccessToken
	login.RefreshToken = tokenResp.RefreshToken
	login.TokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return login, nil
}

// ParseIDToken validates the HS256 ID token against the client secret and
// extracts the identity claims. Tokens without a subject or email are
// rejected; a missing name falls back to the email local part.
func ParseIDToken(idToken, clientSecret string) (*domain.ProviderLogin, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidIDToken)
	}

	parsed, err := jwt.Parse(idToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(clientSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidIDToken
	}

	subject, _ := claims["sub"].(string)
	emailClaim, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if subject == "" || emailClaim == "" {
		return nil, fmt.Errorf("%w: missing sub or email claim", ErrInvalidIDToken)
	}
	if name == "" {
		name = strings.SplitN(emailClaim, "@", 2)[0]
	}

	return &domain.ProviderLogin{
		Subject:     subject,
		Email:       emailClaim,
		DisplayName: name,
	}, nil
}
