package security

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"commercekit/internal/types"
)

// DefaultNonceLifetime is how long an issued action token stays valid.
const DefaultNonceLifetime = 24 * time.Hour

// nonceBytes is the number of MAC bytes kept in a token.
const nonceBytes = 16

// MinNonceLifetime is the shortest accepted token lifetime.
const MinNonceLifetime = 2 * time.Second

var (
	// ErrNonceSecretMissing is returned when no signing secret is configured.
	ErrNonceSecretMissing = errors.New("security: nonce secret is required")
	// ErrNonceLifetimeTooShort is returned for lifetimes under MinNonceLifetime.
	ErrNonceLifetimeTooShort = errors.New("security: nonce lifetime must be at least 2s")
)

// NonceManager issues and verifies action tokens that bind an operation name
// to a user for a bounded time. Tokens are keyed BLAKE2b MACs over the
// current tick, the action and the user ID. A token is accepted during the
// tick it was issued in and the following one, so its effective lifetime is
// between half and all of the configured lifetime.
type NonceManager struct {
	key      [32]byte
	clock    types.Clock
	tickSize time.Duration
	logger   *slog.Logger
}

// NewNonceManager creates a NonceManager. A zero lifetime uses
// DefaultNonceLifetime; a nil clock uses types.RealClock. Lifetimes shorter
// than MinNonceLifetime are rejected.
func NewNonceManager(secret types.SecretString, clock types.Clock, lifetime time.Duration, logger *slog.Logger) (*NonceManager, error) {
	if !secret.IsSet() {
		return nil, ErrNonceSecretMissing
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	if lifetime <= 0 {
		lifetime = DefaultNonceLifetime
	}
	if lifetime < MinNonceLifetime {
		return nil, ErrNonceLifetimeTooShort
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NonceManager{
		key:      blake2b.Sum256([]byte(secret.Unmask())),
		clock:    clock,
		tickSize: lifetime / 2,
		logger:   logger,
	}, nil
}

// Issue returns a token for action and userID valid from now.
func (m *NonceManager) Issue(action string, userID int64) string {
	return m.sign(m.tick(), action, userID)
}

// Verify reports whether token was issued for action and userID within the
// token lifetime. Failures are logged as security alerts.
func (m *NonceManager) Verify(token, action string, userID int64) bool {
	current := m.tick()
	for _, tick := range []int64{current, current - 1} {
		expected := m.sign(tick, action, userID)
		if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1 {
			return true
		}
	}
	m.logger.Warn("security alert: invalid nonce for action",
		"action", action,
		"user_id", userID,
	)
	return false
}

func (m *NonceManager) tick() int64 {
	return m.clock.Now().UnixNano()/int64(m.tickSize) + 1
}

func (m *NonceManager) sign(tick int64, action string, userID int64) string {
	mac, err := blake2b.New256(m.key[:])
	if err != nil {
		// A 32-byte key is always accepted.
		panic(err)
	}
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(userID, 10)))
	return hex.EncodeToString(mac.Sum(nil)[:nonceBytes])
}
