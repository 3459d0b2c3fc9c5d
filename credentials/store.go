package credentials

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/dojotv/internal/errors"
)

// Slot names a persisted credential value.
type Slot string

const (
	SlotAccessToken  Slot = "access_token"
	SlotRefreshToken Slot = "refresh_token"
	SlotUserData     Slot = "user_data"
	SlotSelectedRole Slot = "selected_role"
)

// AllSlots lists every slot ClearAll removes.
var AllSlots = []Slot{SlotAccessToken, SlotRefreshToken, SlotUserData, SlotSelectedRole}

func (s Slot) Valid() bool {
	switch s {
	case SlotAccessToken, SlotRefreshToken, SlotUserData, SlotSelectedRole:
		return true
	}
	return false
}

func (s Slot) String() string {
	return string(s)
}

// Store persists credential values across process restarts.
type Store interface {
	// Set creates or overwrites the value held in slot.
	Set(ctx context.Context, slot Slot, value string) error

	// Get returns the value held in slot. A missing slot is ("", false, nil); err is only
	// set when the underlying storage failed.
	Get(ctx context.Context, slot Slot) (value string, found bool, err error)

	// Delete removes one slot. Removing an absent slot is not an error.
	Delete(ctx context.Context, slot Slot) error

	// ClearAll removes every slot. Removing an absent slot is not an error.
	ClearAll(ctx context.Context) error
}

// StorageError reports a failure of the underlying platform storage.
type StorageError struct {
	Op   string
	Slot Slot
	Err  error
}

func NewStorageError(op string, slot Slot, err error) *StorageError {
	return &StorageError{Op: op, Slot: slot, Err: err}
}

func (e *StorageError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("credential storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("credential storage %s %s: %v", e.Op, e.Slot, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// CheckSlot returns a StorageError for slots outside AllSlots.
func CheckSlot(op string, slot Slot) error {
	if !slot.Valid() {
		return NewStorageError(op, slot, apperrors.ErrUnknownSlot)
	}
	return nil
}
