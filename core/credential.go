package core

import "strings"

// LoadCredential returns the stored access credential, "" when signed out.
func LoadCredential(tx RecordTx) (string, error) {
	token, err := LoadString(tx, KeyCredential)
	return strings.TrimSpace(token), err
}

// RequireCredential returns ErrMissingCredential unless an access credential is stored.
func RequireCredential(tx RecordTx) error {
	token, err := LoadCredential(tx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrMissingCredential
	}
	return nil
}
