package service

import "errors"

// Local validation errors. Their text is shown to the user as is.
var (
	ErrPasswordMismatch = errors.New("Passwords do not match")
	ErrMissingFields    = errors.New("Semua field harus diisi")
	ErrInvalidEmail     = errors.New("Format email tidak valid")
	ErrInvalidPhone     = errors.New("Nomor telepon harus diawali 08 dan terdiri dari 10-13 digit")
	ErrNoAccessToken    = errors.New("login response carried no access token")
)
