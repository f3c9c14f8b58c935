package credentials

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "republik"

// KeyCurtainBackdoor holds the path that unlocks the pre-launch curtain of
// staging deployments.
const KeyCurtainBackdoor = "curtain_backdoor"

var ErrNotFound = errors.New("credentials: not found")

func StoreAppSecret(key string, value string) error {
	if err := keyring.Set(serviceName, "app:"+key, value); err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

func LoadAppSecret(key string) (string, error) {
	val, err := keyring.Get(serviceName, "app:"+key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", key, err)
	}
	return val, nil
}

func DeleteAppSecret(key string) {
	_ = keyring.Delete(serviceName, "app:"+key)
}
