package service

import (
	"context"
	"encoding/json"

	"github.com/medpanel/medpanel-go/internal/client/apiclient"
)

// ProfileService reads and edits the logged-in user's profile.
type ProfileService struct {
	client *apiclient.Client
}

// NewProfileService creates a ProfileService.
func NewProfileService(c *apiclient.Client) *ProfileService {
	return &ProfileService{client: c}
}

// Get returns the profile.
func (s *ProfileService) Get(ctx context.Context) (*Profile, error) {
	return getProfile(ctx, s.client)
}

// Update validates req and saves it. Returns the server message.
func (s *ProfileService) Update(ctx context.Context, req UpdateProfileRequest) (string, error) {
	if err := ValidateProfile(req); err != nil {
		return "", err
	}
	resp, err := apiclient.Put[apiclient.Envelope[json.RawMessage]](ctx, s.client, "/auth/update-profile", req)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

func getProfile(ctx context.Context, c *apiclient.Client) (*Profile, error) {
	resp, err := apiclient.Get[apiclient.Envelope[Profile]](ctx, c, "/auth/me")
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
