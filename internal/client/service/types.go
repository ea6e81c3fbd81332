package service

import (
	"bytes"
	"encoding/json"
)

// FlexString accepts a JSON string or number. IDs come back either way.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// UserSummary is the part of the login payload shown to the user.
type UserSummary struct {
	ID    FlexString `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
}

// LoginResult is what a successful login produced.
type LoginResult struct {
	Message string
	User    UserSummary
	// Raw is the login data object, stored as the user snapshot.
	Raw json.RawMessage
}

// Patient is a patient record as returned by the API.
type Patient struct {
	PasienID      FlexString `json:"pasienid"`
	UserID        FlexString `json:"userid"`
	Nama          string     `json:"nama"`
	Gender        string     `json:"gender"`
	PhoneNumber   string     `json:"phoneNumber"`
	DischargeDate string     `json:"discharge_date"`
	Status        bool       `json:"status"`
	Response      string     `json:"response"`
}

// AddPatientRequest is the body of POST /patient/save.
type AddPatientRequest struct {
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	PhoneNumber   string `json:"phoneNumber"`
	DischargeDate string `json:"discharge_date"`
}

// UpdatePatientRequest is the body of PUT /patient/update-patient. The
// backend expects dischargeDate in camel case here, unlike on save.
type UpdatePatientRequest struct {
	PasienID      string `json:"pasienid"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	PhoneNumber   string `json:"phoneNumber"`
	DischargeDate string `json:"dischargeDate"`
}

// Profile is the logged-in user's profile.
type Profile struct {
	UserID      FlexString `json:"user_id"`
	Name        string     `json:"name"`
	PhoneNumber string     `json:"phoneNumber"`
	Email       string     `json:"email"`
	Keahlian    string     `json:"keahlian"`
	IsVerified  bool       `json:"isVerified"`
}

// UpdateProfileRequest is the body of PUT /auth/update-profile.
type UpdateProfileRequest struct {
	Name        string `json:"Name"`
	PhoneNumber string `json:"PhoneNumber"`
	Email       string `json:"Email"`
	Keahlian    string `json:"Keahlian"`
}
