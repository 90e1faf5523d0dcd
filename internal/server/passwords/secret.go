package passwords

import (
	"crypto/subtle"
	"log/slog"

	"github.com/dmitrijs2005/newsletter/internal/common"
)

const redacted = "[REDACTED]"

// Secret holds a cleartext password. It prints as [REDACTED] through fmt and
// slog; the value is only reachable through Bytes.
type Secret struct {
	b []byte
}

// NewSecret copies s into a Secret.
func NewSecret(s string) Secret {
	return Secret{b: []byte(s)}
}

// NewSecretBytes copies b into a Secret. The caller may wipe b afterwards.
func NewSecretBytes(b []byte) Secret {
	c := make([]byte, len(b))
	copy(c, b)
	return Secret{b: c}
}

// Bytes returns the cleartext. Do not retain the slice.
func (s Secret) Bytes() []byte { return s.b }

func (s Secret) IsEmpty() bool { return len(s.b) == 0 }

// Equal reports whether both secrets hold the same bytes.
func (s Secret) Equal(other Secret) bool {
	return subtle.ConstantTimeCompare(s.b, other.b) == 1
}

// Clear zeroes the underlying buffer.
func (s Secret) Clear() { common.WipeByteArray(s.b) }

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return redacted }

func (s Secret) LogValue() slog.Value { return slog.StringValue(redacted) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
