package auth

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/breeze-rmm/breeze/internal/apperr"
	"github.com/breeze-rmm/breeze/internal/cryptoutil"
)

// GenerateTOTPSecret provisions a new TOTP seed for accountEmail; the
// caller is responsible for encrypting key.Secret() with cryptoutil
// before persisting it and for rendering key.URL() as a QR code during
// enrollment.
func GenerateTOTPSecret(issuer, accountEmail string) (*otp.Key, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountEmail,
	})
	if err != nil {
		return nil, apperr.Fatal("generate totp secret", err)
	}
	return key, nil
}

// VerifyTOTPCode checks a 6-digit code against the decrypted secret.
func VerifyTOTPCode(secret, code string) bool {
	return totp.Validate(code, secret)
}

// GenerateRecoveryCodes returns n fresh recovery codes plus their
// peppered hashes for storage; the plaintext codes are shown to the
// user exactly once.
func GenerateRecoveryCodes(pepper string, n int) (codes []string, hashes []string, err error) {
	for i := 0; i < n; i++ {
		code, err := cryptoutil.RandomToken(8)
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, code)
		hashes = append(hashes, cryptoutil.PepperedHash(pepper, code))
	}
	return codes, hashes, nil
}

// ConsumeRecoveryCode reports whether code matches any stored hash, and
// if so returns the remaining hashes (the matched one removed — each
// recovery code is single-use).
func ConsumeRecoveryCode(pepper, code string, hashes []string) (remaining []string, ok bool) {
	for i, h := range hashes {
		if cryptoutil.PepperedHashEqual(pepper, code, h) {
			remaining = append(append([]string{}, hashes[:i]...), hashes[i+1:]...)
			return remaining, true
		}
	}
	return hashes, false
}
