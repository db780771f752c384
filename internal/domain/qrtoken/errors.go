package qrtoken

import "errors"

// QR credential errors
var (
	ErrTokenNotFound = errors.New("qr token not found")
	ErrTokenExpired  = errors.New("qr token has expired, ask for a fresh code")
	ErrTokenInactive = errors.New("qr token has been superseded by a newer code")
)
