// Package nvs is a namespaced key-value store with string and uint32 values,
// modelled on embedded non-volatile storage.
package nvs

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the backing store cannot be used.
var ErrUnavailable = errors.New("store unavailable")

// Namespace is a single isolated key space.
type Namespace interface {
	// GetString reports ok=false for a missing key.
	GetString(key string) (string, bool, error)
	GetUint32(key string) (uint32, bool, error)
	// Update applies every write in fn atomically. Nothing is written if fn fails.
	Update(fn func(w Writer) error) error
	// Clear removes every key in the namespace.
	Clear() error
	Close() error
}

// Writer is the write side of an Update transaction.
type Writer interface {
	PutString(key, value string) error
	PutUint32(key string, value uint32) error
	Delete(key string) error
}

func encodeUint32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

func decodeUint32(key string, b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("key %q holds %d bytes, want 4", key, len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}
