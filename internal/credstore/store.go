package credstore

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/fault"
	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/nvs"
)

// Namespace is the persistent namespace holding every supervisor key.
const Namespace = "wifiprov"

// Keys within Namespace.
const (
	KeySSID        = "ssid"
	KeyPassword    = "password"
	KeyResetSecret = "reset_pwd"
	KeyBootCount   = "boot_count"
	KeyBootTime    = "boot_time"
)

// Credentials is the last accepted network identity.
type Credentials struct {
	SSID     string
	Password string
}

// Present reports whether a network is stored.
func (c Credentials) Present() bool {
	return c.SSID != ""
}

// BootMarker is the cross-reboot counter used for double-reboot detection.
type BootMarker struct {
	Count          uint32
	LastBootMillis uint32
}

// Store owns the wifiprov namespace and caches the credential pair.
// It is not safe for concurrent use; the supervisor only touches it from the tick goroutine.
type Store struct {
	ns    nvs.Namespace
	cache Credentials
}

// New wraps a namespace.
func New(ns nvs.Namespace) *Store {
	return &Store{ns: ns}
}

// Load reads the credentials into the cache and reports whether a network is stored.
// A store failure is logged and reported as absent.
func (s *Store) Load() (Credentials, bool) {
	ssid, _, err := s.ns.GetString(KeySSID)
	if err != nil {
		logging.Error("Credential store unavailable, treating as empty", zap.Error(err))
		s.cache = Credentials{}
		return Credentials{}, false
	}
	password, _, err := s.ns.GetString(KeyPassword)
	if err != nil {
		logging.Error("Credential store unavailable, treating as empty", zap.Error(err))
		s.cache = Credentials{}
		return Credentials{}, false
	}

	s.cache = Credentials{SSID: ssid, Password: password}
	return s.cache, s.cache.Present()
}

// Cached returns the credentials from the last Load or Save.
func (s *Store) Cached() Credentials {
	return s.cache
}

// Save writes the pair atomically and updates the cache.
func (s *Store) Save(ssid, password string) error {
	if ssid == "" {
		return fault.NewValidation("SSID is required")
	}
	err := s.ns.Update(func(w nvs.Writer) error {
		if err := w.PutString(KeySSID, ssid); err != nil {
			return err
		}
		return w.PutString(KeyPassword, password)
	})
	if err != nil {
		return fault.NewStoreUnavailable("Failed to save credentials", err)
	}

	s.cache = Credentials{SSID: ssid, Password: password}
	logging.Info("Credentials saved", zap.String("ssid", ssid), zap.String("password", logging.MaskSecret(password)))
	return nil
}

// Clear wipes the whole namespace: credentials, reset secret and boot marker.
func (s *Store) Clear() error {
	s.cache = Credentials{}
	if err := s.ns.Clear(); err != nil {
		return fault.NewStoreUnavailable("Failed to clear credential store", err)
	}
	logging.Info("Credential store cleared")
	return nil
}

// HashSecret returns the lowercase hex SHA-256 digest stored for a reset secret.
func HashSecret(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// SaveResetSecret hashes plain and persists the digest.
func (s *Store) SaveResetSecret(plain string) error {
	digest := HashSecret(plain)
	if err := s.ns.Update(func(w nvs.Writer) error {
		return w.PutString(KeyResetSecret, digest)
	}); err != nil {
		return fault.NewStoreUnavailable("Failed to save reset secret", err)
	}
	return nil
}

// HasResetSecret reports whether a digest is stored.
func (s *Store) HasResetSecret() bool {
	digest, ok, err := s.ns.GetString(KeyResetSecret)
	return err == nil && ok && digest != ""
}

// VerifyResetSecret checks candidate against the stored digest.
// It fails closed: an unreadable or empty stored digest rejects every candidate.
func (s *Store) VerifyResetSecret(candidate string) error {
	if candidate == "" {
		return fault.NewSecretMissing()
	}

	stored, ok, err := s.ns.GetString(KeyResetSecret)
	if err != nil {
		logging.Warn("Reset secret unreadable, denying", zap.Error(err))
		return fault.NewSecretInvalid()
	}
	if !ok || stored == "" {
		return fault.NewSecretInvalid()
	}

	got := HashSecret(candidate)
	if subtle.ConstantTimeCompare([]byte(got), []byte(stored)) != 1 {
		return fault.NewSecretInvalid()
	}
	return nil
}

// BootMarker reads the persisted boot counter. Missing keys read as zero.
func (s *Store) BootMarker() (BootMarker, error) {
	count, _, err := s.ns.GetUint32(KeyBootCount)
	if err != nil {
		return BootMarker{}, fault.NewStoreUnavailable("Failed to read boot marker", err)
	}
	last, _, err := s.ns.GetUint32(KeyBootTime)
	if err != nil {
		return BootMarker{}, fault.NewStoreUnavailable("Failed to read boot marker", err)
	}
	return BootMarker{Count: count, LastBootMillis: last}, nil
}

// SaveBootMarker persists both halves of the marker atomically.
func (s *Store) SaveBootMarker(m BootMarker) error {
	err := s.ns.Update(func(w nvs.Writer) error {
		if err := w.PutUint32(KeyBootCount, m.Count); err != nil {
			return err
		}
		return w.PutUint32(KeyBootTime, m.LastBootMillis)
	})
	if err != nil {
		return fault.NewStoreUnavailable("Failed to save boot marker", err)
	}
	return nil
}
