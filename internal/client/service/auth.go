package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/medpanel/medpanel-go/internal/client/apiclient"
	"github.com/medpanel/medpanel-go/internal/client/session"
)

// AuthService covers authentication and WhatsApp pairing.
type AuthService struct {
	client *apiclient.Client
}

// NewAuthService creates an AuthService.
func NewAuthService(c *apiclient.Client) *AuthService {
	return &AuthService{client: c}
}

// Login authenticates and, when the response carries data.access_token,
// stores it as the credential with data as the user snapshot.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	resp, err := apiclient.Post[apiclient.Envelope[json.RawMessage]](ctx, s.client, "/auth/login", req)
	if err != nil {
		return nil, err
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &token); err != nil {
			return nil, fmt.Errorf("decode login data: %w", err)
		}
	}
	if token.AccessToken == "" {
		if resp.Message != "" {
			return nil, fmt.Errorf("%s: %w", resp.Message, ErrNoAccessToken)
		}
		return nil, ErrNoAccessToken
	}

	// The user part is for display only; an odd shape must not block login.
	var user UserSummary
	if err := json.Unmarshal(resp.Data, &user); err != nil {
		s.client.Logger().Warn("login user summary not decodable", "error", err)
		user = UserSummary{}
	}

	cred := session.Credential{Token: token.AccessToken, User: resp.Data}
	if err := s.client.Store().Set(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	return &LoginResult{
		Message: resp.Message,
		User:    user,
		Raw:     resp.Data,
	}, nil
}

// Register creates an account. Mismatched passwords fail locally before
// any request is made.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*apiclient.Envelope[json.RawMessage], error) {
	if req.Password != req.PasswordConfirmation {
		return nil, ErrPasswordMismatch
	}
	resp, err := apiclient.Post[apiclient.Envelope[json.RawMessage]](ctx, s.client, "/auth/register", req)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout ends the session. The server is told only when a credential
// exists; the local record is cleared in every case, so calling Logout
// twice is a no-op. A server-side failure is returned after the local
// clear.
func (s *AuthService) Logout(ctx context.Context) error {
	store := s.client.Store()

	var serverErr error
	if _, err := store.Get(ctx); err == nil {
		_, serverErr = apiclient.Post[apiclient.Envelope[json.RawMessage]](ctx, s.client, "/auth/logout", nil)
	} else if !errors.Is(err, session.ErrNoCredential) {
		serverErr = err
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	if apiclient.IsSessionExpired(serverErr) {
		return nil
	}
	return serverErr
}

// Me returns the logged-in user's profile.
func (s *AuthService) Me(ctx context.Context) (*Profile, error) {
	return getProfile(ctx, s.client)
}

// WhatsAppQR returns the QR payload for linking a WhatsApp account.
func (s *AuthService) WhatsAppQR(ctx context.Context) (string, error) {
	resp, err := apiclient.Get[apiclient.Envelope[string]](ctx, s.client, "/auth/getQR")
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// WhatsAppPairingCode returns a pairing code for linking by number.
func (s *AuthService) WhatsAppPairingCode(ctx context.Context) (string, error) {
	resp, err := apiclient.Get[apiclient.Envelope[string]](ctx, s.client, "/auth/getPair")
	if err != nil {
		return "", err
	}
	return resp.Data, nil
}

// LoggedIn reports whether a credential record exists locally.
func (s *AuthService) LoggedIn(ctx context.Context) (bool, error) {
	_, err := s.client.Store().Get(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, session.ErrNoCredential):
		return false, nil
	default:
		return false, err
	}
}
