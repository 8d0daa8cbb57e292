// Package credential keeps the backend's secrets in the system keyring so
// they do not have to live in the environment.
package credential

import (
	"errors"
	"fmt"
	"slices"

	"github.com/99designs/keyring"
)

const serviceName = "sentient-inbox"

// Keys of the backend secrets kept in the keyring.
const (
	KeyGoogleClientSecret = "google_client_secret"
	KeyJWTSecret          = "jwt_secret"
	KeyAnthropicAPIKey    = "anthropic_api_key"
)

// ErrUnknownKey is returned for a key that is not one of Keys().
var ErrUnknownKey = errors.New("unknown credential key")

// Keys lists the secrets the backend reads from the keyring.
func Keys() []string {
	return []string{KeyGoogleClientSecret, KeyJWTSecret, KeyAnthropicAPIKey}
}

// openKeyring returns the keyring for the service. The file backend is the
// fallback on hosts without a desktop secret store.
var openKeyring = func() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/sentient-inbox/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("sentient-inbox-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func checkKey(key string) error {
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	return nil
}

// Get reads a secret. A missing entry wraps keyring.ErrKeyNotFound.
func Get(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a secret, replacing any previous value.
func Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if value == "" {
		return fmt.Errorf("credential %q: empty value", key)
	}
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:         key,
		Data:        []byte(value),
		Label:       serviceName + " " + key,
		Description: "sentient-inbox backend secret",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a secret. Deleting a missing entry is not an error.
func Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}

// Stored reports which of Keys() currently have a keyring entry.
func Stored() ([]string, error) {
	ring, err := openKeyring()
	if err != nil {
		return nil, err
	}
	present, err := ring.Keys()
	if err != nil {
		return nil, fmt.Errorf("listing credentials: %w", err)
	}

	var out []string
	for _, k := range Keys() {
		if slices.Contains(present, k) {
			out = append(out, k)
		}
	}
	return out, nil
}

// Resolve returns value when it is set and otherwise the keyring entry for
// key. A missing entry is not an error; it resolves to "".
func Resolve(value, key string) (string, error) {
	if value != "" {
		return value, nil
	}
	v, err := Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}
