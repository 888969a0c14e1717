package directory

import "golang.org/x/crypto/bcrypt"

// HashPassword salts and hashes plaintext for storage, using bcrypt,
// which embeds its own salt in the produced hash.
func HashPassword(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareHashAndPassword reports whether plaintext matches a hash
// produced by HashPassword.
func CompareHashAndPassword(hashed, plaintext string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// MasterKeyBypass reports whether masterKey is non-empty and equals
// attempt. This is an operator break-glass override; production
// deployments disable it by leaving the master key unset. Every
// backend's VerifyPassword checks this before falling through to the
// stored hash comparison.
func MasterKeyBypass(masterKey, attempt string) bool {
	return masterKey != "" && attempt == masterKey
}
