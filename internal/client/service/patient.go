package service

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/medpanel/medpanel-go/internal/client/apiclient"
)

// PatientService manages the logged-in user's patient records.
type PatientService struct {
	client *apiclient.Client
}

// NewPatientService creates a PatientService.
func NewPatientService(c *apiclient.Client) *PatientService {
	return &PatientService{client: c}
}

// List returns all patients of the current user.
func (s *PatientService) List(ctx context.Context) ([]Patient, error) {
	resp, err := apiclient.Get[apiclient.Envelope[[]Patient]](ctx, s.client, "/patient/get-all-patient-by-userid")
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Add saves a new patient. Field validation is the server's; a 422 comes
// back as *apiclient.APIError with per-field Errors.
func (s *PatientService) Add(ctx context.Context, req AddPatientRequest) (string, error) {
	resp, err := apiclient.Post[apiclient.Envelope[json.RawMessage]](ctx, s.client, "/patient/save", req)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Update replaces a patient record.
func (s *PatientService) Update(ctx context.Context, req UpdatePatientRequest) (string, error) {
	resp, err := apiclient.Put[apiclient.Envelope[json.RawMessage]](ctx, s.client, "/patient/update-patient", req)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Delete removes a patient by ID.
func (s *PatientService) Delete(ctx context.Context, pasienID string) (string, error) {
	path := "/patient/delete-patient?" + url.Values{"PasienID": {pasienID}}.Encode()
	resp, err := apiclient.Delete[apiclient.Envelope[json.RawMessage]](ctx, s.client, path)
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}
