// Package storage persists uploaded documents encrypted at rest.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/loanform/loanform/internal/encrypt"
)

const suffixBytes = 5

var (
	// ErrUploadDirMissing signals a destination directory that does not exist.
	ErrUploadDirMissing = errors.New("upload directory does not exist")
	// ErrEmptyWrite signals a destination write that stored zero bytes.
	ErrEmptyWrite = errors.New("failed to write encrypted data to file")
)

// Upload describes a received file handed over for storage: the client's
// original filename and the temporary path the transport saved it under.
type Upload struct {
	Name     string
	TempPath string
}

// Service encrypts uploads and writes them into a fixed directory under
// collision-resistant names.
type Service struct {
	encryptor *encrypt.Encryptor
	dir       string
}

// New builds a storage service writing into dir.
func New(encryptor *encrypt.Encryptor, dir string) *Service {
	return &Service{encryptor: encryptor, dir: dir}
}

// Store encrypts the upload's content and writes it to the upload directory,
// removing the temporary source file on success. It returns the generated
// filename: "<sanitized-base>_<hex>.jpg".
func (s *Service) Store(ctx context.Context, upload Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	info, err := os.Stat(s.dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrUploadDirMissing, s.dir)
	}

	name, err := generateName(upload.Name)
	if err != nil {
		return "", err
	}
	destination := filepath.Join(s.dir, name)

	content, err := os.ReadFile(upload.TempPath)
	if err != nil {
		return "", fmt.Errorf("read uploaded file: %w", err)
	}

	sealed, err := s.encryptor.Encrypt(content)
	if err != nil {
		return "", fmt.Errorf("file encryption failed: %w", err)
	}

	written, err := writeFile(destination, []byte(sealed))
	if err != nil {
		return "", fmt.Errorf("store encrypted file: %w", err)
	}
	if written == 0 {
		return "", ErrEmptyWrite
	}

	if err := os.Remove(upload.TempPath); err != nil {
		return "", fmt.Errorf("remove temporary upload: %w", err)
	}

	return name, nil
}

// generateName sanitizes the original base name and appends a random hex
// suffix so concurrent uploads never collide. The extension is fixed to .jpg.
func generateName(original string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))

	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, base)

	suffix := make([]byte, suffixBytes)
	if _, err := rand.Read(suffix); err != nil {
		return "", fmt.Errorf("generate filename suffix: %w", err)
	}

	return fmt.Sprintf("%s_%s.jpg", sanitized, hex.EncodeToString(suffix)), nil
}

func writeFile(path string, data []byte) (int, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return 0, err
	}

	n, err := f.Write(data)
	if err != nil {
		f.Close()
		return n, err
	}
	return n, f.Close()
}
