package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Initialize writes a default configuration and host key into dir, keeping
// any files that already exist, and loads the result.
func Initialize(dir string, logger zerolog.Logger) (*Configuration, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return InitializeFs(afero.NewBasePathFs(afero.NewOsFs(), dir), logger)
}

// InitializeFs is Initialize on an arbitrary filesystem.
func InitializeFs(configFs afero.Fs, logger zerolog.Logger) (*Configuration, error) {
	if err := writeIfMissing(configFs, ConfigurationName, logger, func() ([]byte, error) {
		return defaultConfigData, nil
	}); err != nil {
		return nil, err
	}

	if err := writeIfMissing(configFs, PrivateKeyName, logger, generateHostKey); err != nil {
		return nil, err
	}

	return LoadFs(configFs)
}

func writeIfMissing(configFs afero.Fs, name string, logger zerolog.Logger, contents func() ([]byte, error)) error {
	_, err := configFs.Stat(name)
	switch {
	case err == nil:
		logger.Info().Str("file", name).Msg("exists, skipping")
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	data, err := contents()
	if err != nil {
		return err
	}

	logger.Info().Str("file", name).Msg("writing")
	return afero.WriteFile(configFs, name, data, 0600)
}

func generateHostKey() ([]byte, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}
