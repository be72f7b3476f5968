package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/loanform/loanform/internal/encrypt"
)

func newTestService(t *testing.T) (*Service, *encrypt.Encryptor, string) {
	t.Helper()

	key, err := encrypt.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "encryption.key")
	if err := encrypt.WriteKeyFile(keyPath, key); err != nil {
		t.Fatalf("write key: %v", err)
	}
	encryptor, err := encrypt.NewFromFile(keyPath)
	if err != nil {
		t.Fatalf("load key: %v", err)
	}

	dir := t.TempDir()
	return New(encryptor, dir), encryptor, dir
}

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "upload-*")
	if err != nil {
		t.Fatalf("create temp: %v", err)
	}
	if _, err := f.Write(content); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp: %v", err)
	}
	return f.Name()
}

func TestStoreEncryptsAndRemovesTemp(t *testing.T) {
	svc, encryptor, dir := newTestService(t)
	original := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'f', 'a', 'k', 'e'}
	tempPath := writeTemp(t, original)

	name, err := svc.Store(context.Background(), Upload{Name: "my passport.jpeg", TempPath: tempPath})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	if matched := regexp.MustCompile(`^my_passport_[0-9a-f]{10}\.jpg$`).MatchString(name); !matched {
		t.Fatalf("unexpected stored name: %s", name)
	}

	stored, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if bytes.Equal(stored, original) {
		t.Fatal("stored file must not equal the original bytes")
	}

	opened, err := encryptor.Decrypt(string(stored))
	if err != nil {
		t.Fatalf("decrypt stored file: %v", err)
	}
	if !bytes.Equal(opened, original) {
		t.Fatal("decrypted content differs from the original upload")
	}

	if _, err := os.Stat(tempPath); !os.IsNotExist(err) {
		t.Fatal("temporary upload should be removed after storing")
	}
}

func TestStoreUniqueNamesForSameOriginal(t *testing.T) {
	svc, _, _ := newTestService(t)

	first, err := svc.Store(context.Background(), Upload{Name: "doc.jpg", TempPath: writeTemp(t, []byte("one"))})
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := svc.Store(context.Background(), Upload{Name: "doc.jpg", TempPath: writeTemp(t, []byte("two"))})
	if err != nil {
		t.Fatalf("store second: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct names, both were %s", first)
	}
}

func TestStoreFailsWithoutUploadDir(t *testing.T) {
	_, encryptor, _ := newTestService(t)
	svc := New(encryptor, filepath.Join(t.TempDir(), "missing"))

	_, err := svc.Store(context.Background(), Upload{Name: "doc.jpg", TempPath: writeTemp(t, []byte("x"))})
	if !errors.Is(err, ErrUploadDirMissing) {
		t.Fatalf("expected ErrUploadDirMissing, got %v", err)
	}
}

func TestStoreFailsWhenTempFileGone(t *testing.T) {
	svc, _, _ := newTestService(t)
	tempPath := writeTemp(t, []byte("x"))
	if err := os.Remove(tempPath); err != nil {
		t.Fatalf("remove temp: %v", err)
	}

	if _, err := svc.Store(context.Background(), Upload{Name: "doc.jpg", TempPath: tempPath}); err == nil {
		t.Fatal("expected error for missing temp file")
	}
}
