// Package filestore keeps credential slots on disk, one sealed file per slot, readable only
// by the owning user.
package filestore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/dojotv/credentials"
	apperrors "github.com/jrsteele09/dojotv/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	dirPerm   = 0o700
	filePerm  = 0o600
	keyFile   = ".key"
	fileExt   = ".cred"
	keyLength = chacha20poly1305.KeySize
	hkdfInfo  = "dojotv credential store v1"
)

var _ credentials.Store = (*Store)(nil)

type Store struct {
	dir  string
	aead cipher.AEAD
	lock sync.RWMutex
}

// New opens (creating when needed) a credential directory. The sealing key is derived from
// secret; an empty secret uses a random key file kept inside dir.
func New(dir, secret string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("[filestore.New] dir is required")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, credentials.NewStorageError("open", "", err)
	}
	if err := os.Chmod(dir, dirPerm); err != nil {
		return nil, credentials.NewStorageError("open", "", err)
	}

	ikm := []byte(secret)
	if secret == "" {
		var err error
		if ikm, err = loadOrCreateKey(filepath.Join(dir, keyFile)); err != nil {
			return nil, credentials.NewStorageError("open", "", err)
		}
	}

	key := make([]byte, keyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] hkdf")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[filestore.New] chacha20poly1305.NewX")
	}

	return &Store{dir: dir, aead: aead}, nil
}

func (s *Store) Set(_ context.Context, slot credentials.Slot, value string) error {
	if err := credentials.CheckSlot("set", slot); err != nil {
		return err
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return credentials.NewStorageError("set", slot, err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(slot))

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := writeFileAtomic(s.dir, s.path(slot), sealed); err != nil {
		return credentials.NewStorageError("set", slot, err)
	}
	return nil
}

func (s *Store) Get(_ context.Context, slot credentials.Slot) (string, bool, error) {
	if err := credentials.CheckSlot("get", slot); err != nil {
		return "", false, err
	}

	s.lock.RLock()
	sealed, err := os.ReadFile(s.path(slot))
	s.lock.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, credentials.NewStorageError("get", slot, err)
	}

	ns := s.aead.NonceSize()
	if len(sealed) < ns+s.aead.Overhead() {
		return "", false, credentials.NewStorageError("get", slot, apperrors.ErrCorruptData)
	}
	plain, err := s.aead.Open(nil, sealed[:ns], sealed[ns:], []byte(slot))
	if err != nil {
		return "", false, credentials.NewStorageError("get", slot, apperrors.ErrCorruptData)
	}
	return string(plain), true, nil
}

func (s *Store) Delete(_ context.Context, slot credentials.Slot) error {
	if err := credentials.CheckSlot("delete", slot); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := os.Remove(s.path(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return credentials.NewStorageError("delete", slot, err)
	}
	return nil
}

func (s *Store) ClearAll(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := os.Stat(s.dir); err != nil {
		return credentials.NewStorageError("clear", "", err)
	}

	var firstErr error
	for _, slot := range credentials.AllSlots {
		if err := os.Remove(s.path(slot)); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Err(err).Str("slot", slot.String()).Msg("Failed to remove credential file")
			if firstErr == nil {
				firstErr = credentials.NewStorageError("clear", slot, err)
			}
		}
	}
	return firstErr
}

func (s *Store) path(slot credentials.Slot) string {
	return filepath.Join(s.dir, string(slot)+fileExt)
}

func loadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil && len(key) == keyLength {
		return key, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		log.Warn().Str("path", path).Msg("Credential key file has the wrong length, regenerating")
	}

	key = make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := writeFileAtomic(filepath.Dir(path), path, key); err != nil {
		return nil, err
	}
	return key, nil
}

func writeFileAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
