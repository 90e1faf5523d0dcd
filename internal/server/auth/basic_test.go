package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/newsletter/internal/common"
)

func TestBasicCredentials(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/newsletters", nil)
	r.SetBasicAuth("alice", "correct:horse")

	c, err := BasicCredentials(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Username != "alice" || string(c.Password.Bytes()) != "correct:horse" {
		t.Fatalf("unexpected credentials: %q", c.Username)
	}
}

func TestBasicCredentials_MissingOrMalformed(t *testing.T) {
	for name, header := range map[string]string{
		"missing":    "",
		"bearer":     "Bearer abc",
		"bad base64": "Basic !!!",
		"no colon":   "Basic YWxpY2U=",
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/newsletters", nil)
			if header != "" {
				r.Header.Set("Authorization", header)
			}
			if _, err := BasicCredentials(r); !errors.Is(err, common.ErrorUnauthorized) {
				t.Fatalf("want common.ErrorUnauthorized, got %v", err)
			}
		})
	}
}

func TestBasicChallenge(t *testing.T) {
	if got := BasicChallenge(); got != `Basic realm="publish"` {
		t.Fatalf("unexpected challenge %q", got)
	}
}
