package repofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/dojotv/credentials"
)

var _ credentials.Store = (*FakeCredentialStore)(nil)

// FakeCredentialStore is an in-memory credentials.Store. Errors can be injected per
// operation and reads are counted so tests can assert on storage access.
type FakeCredentialStore struct {
	values map[credentials.Slot]string
	reads  int
	writes int
	clears int

	SetErr   error
	GetErr   error
	ClearErr error

	lock sync.RWMutex
}

func NewFakeCredentialStore() *FakeCredentialStore {
	return &FakeCredentialStore{
		values: make(map[credentials.Slot]string),
	}
}

func (s *FakeCredentialStore) Set(_ context.Context, slot credentials.Slot, value string) error {
	if err := credentials.CheckSlot("set", slot); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.SetErr != nil {
		return credentials.NewStorageError("set", slot, s.SetErr)
	}
	s.writes++
	s.values[slot] = value
	return nil
}

func (s *FakeCredentialStore) Get(_ context.Context, slot credentials.Slot) (string, bool, error) {
	if err := credentials.CheckSlot("get", slot); err != nil {
		return "", false, err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	s.reads++
	if s.GetErr != nil {
		return "", false, credentials.NewStorageError("get", slot, s.GetErr)
	}
	v, ok := s.values[slot]
	return v, ok, nil
}

// Delete shares SetErr with Set, since both are writes.
func (s *FakeCredentialStore) Delete(_ context.Context, slot credentials.Slot) error {
	if err := credentials.CheckSlot("delete", slot); err != nil {
		return err
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.SetErr != nil {
		return credentials.NewStorageError("delete", slot, s.SetErr)
	}
	s.writes++
	delete(s.values, slot)
	return nil
}

func (s *FakeCredentialStore) ClearAll(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.ClearErr != nil {
		return credentials.NewStorageError("clear", "", s.ClearErr)
	}
	s.clears++
	s.values = make(map[credentials.Slot]string)
	return nil
}

// Value returns a slot without counting it as a read.
func (s *FakeCredentialStore) Value(slot credentials.Slot) (string, bool) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[slot]
	return v, ok
}

// Seed sets a slot without counting it as a write.
func (s *FakeCredentialStore) Seed(slot credentials.Slot, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.values[slot] = value
}

func (s *FakeCredentialStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.values)
}

func (s *FakeCredentialStore) Reads() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.reads
}

func (s *FakeCredentialStore) Writes() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.writes
}

func (s *FakeCredentialStore) Clears() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.clears
}
