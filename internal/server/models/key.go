package models

import "time"

type KeyType string

const (
	KeyTypeTemporary  KeyType = "temporary"
	KeyTypePermanent  KeyType = "permanent"
	KeyTypeCheckpoint KeyType = "checkpoint"
)

func (t KeyType) Valid() bool {
	switch t {
	case KeyTypeTemporary, KeyTypePermanent, KeyTypeCheckpoint:
		return true
	}
	return false
}

// Key is a license key bound to at most one device fingerprint.
type Key struct {
	ProjectID string
	Key       string
	Type      KeyType
	// ExpiresAt is nil for keys that never expire.
	ExpiresAt *time.Time
	// BoundFingerprint is empty until the first successful validation.
	BoundFingerprint string
	OwnerIdentity    string
	DisplayName      string
	Note             string
	Executor         string
}

// Bound reports whether a device has already claimed the key.
func (k *Key) Bound() bool { return k.BoundFingerprint != "" }

// ExpiredAt reports whether the key's expiry is strictly before now.
func (k *Key) ExpiredAt(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}
