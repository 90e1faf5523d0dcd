// Package flash carries one-shot messages across a redirect, either as an
// HMAC-tagged query string or in the session.
package flash

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

const (
	messageKey = "error"
	tagKey     = "tag"
)

// Sign returns "error=<urlencoded message>&tag=<hex hmac-sha256>". The tag
// covers exactly the bytes of the error=... fragment.
func Sign(message string, secret passwords.Secret) string {
	fragment := messageKey + "=" + url.QueryEscape(message)
	return fragment + "&" + tagKey + "=" + hex.EncodeToString(mac(fragment, secret))
}

// Verify checks a raw query produced by Sign and returns the message. The
// error=... fragment is authenticated as received, before decoding. Any
// missing field, repeated field, bad escape or tag that differs from the
// lower-case hex encoding of the expected HMAC yields
// common.ErrVerificationFailed.
func Verify(rawQuery string, secret passwords.Secret) (string, error) {
	var fragment, tag string
	var seenMessage, seenTag bool

	for _, part := range strings.Split(rawQuery, "&") {
		key, value, _ := strings.Cut(part, "=")
		switch key {
		case messageKey:
			if seenMessage {
				return "", fmt.Errorf("%w: repeated %s", common.ErrVerificationFailed, messageKey)
			}
			seenMessage, fragment = true, part
		case tagKey:
			if seenTag {
				return "", fmt.Errorf("%w: repeated %s", common.ErrVerificationFailed, tagKey)
			}
			seenTag, tag = true, value
		}
	}
	if !seenMessage || !seenTag {
		return "", fmt.Errorf("%w: missing field", common.ErrVerificationFailed)
	}

	// the tag must match the canonical lower-case encoding byte for byte
	want := hex.EncodeToString(mac(fragment, secret))
	if !hmac.Equal([]byte(tag), []byte(want)) {
		return "", fmt.Errorf("%w: tag mismatch", common.ErrVerificationFailed)
	}

	_, escaped, _ := strings.Cut(fragment, "=")
	message, err := url.QueryUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: bad escape", common.ErrVerificationFailed)
	}
	return message, nil
}

func mac(fragment string, secret passwords.Secret) []byte {
	h := hmac.New(sha256.New, secret.Bytes())
	h.Write([]byte(fragment))
	return h.Sum(nil)
}
