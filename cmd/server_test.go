package cmd

import (
	"context"
	"errors"
	"testing"

	"AlbumShelf/config"
)

func TestRunServerRefusesDefaultSecret(t *testing.T) {
	t.Setenv("DEBUG", "false")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", ":memory:")

	for _, secret := range []string{"", config.DefaultJWTSecret} {
		t.Setenv("JWT_SECRET", secret)
		if err := runServer(context.Background()); !errors.Is(err, config.ErrInsecureJWTSecret) {
			t.Errorf("JWT_SECRET=%q: expected ErrInsecureJWTSecret, got %v", secret, err)
		}
	}
}
