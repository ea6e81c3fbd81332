package service

import (
	"regexp"
	"strings"
)

// API gender values and their display labels.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"

	LabelMale   = "Laki-laki"
	LabelFemale = "Perempuan"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^08\d{8,11}$`)
)

// NormalizeGender maps user input to the API value. "laki-laki" and "male"
// (any case) are Male; anything else is Female.
func NormalizeGender(input string) string {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "laki-laki", "male":
		return GenderMale
	default:
		return GenderFemale
	}
}

// GenderLabel maps an API gender to its display label.
func GenderLabel(apiGender string) string {
	if apiGender == GenderMale {
		return LabelMale
	}
	return LabelFemale
}

// ValidatePatient checks that every patient form field is filled.
func ValidatePatient(name, gender, phone, dischargeDate string) error {
	if blank(name, gender, phone, dischargeDate) {
		return ErrMissingFields
	}
	return nil
}

// ValidateProfile checks a profile update: all fields present, a plausible
// email, and an Indonesian mobile number (08 followed by 8-11 digits).
func ValidateProfile(req UpdateProfileRequest) error {
	if blank(req.Name, req.PhoneNumber, req.Email, req.Keahlian) {
		return ErrMissingFields
	}
	if !emailPattern.MatchString(req.Email) {
		return ErrInvalidEmail
	}
	if !phonePattern.MatchString(req.PhoneNumber) {
		return ErrInvalidPhone
	}
	return nil
}

func blank(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return true
		}
	}
	return false
}
