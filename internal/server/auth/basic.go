package auth

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

// BasicRealm is announced in WWW-Authenticate on 401 responses.
const BasicRealm = "publish"

// BasicCredentials extracts HTTP Basic credentials from r. A missing or
// malformed Authorization header yields common.ErrorUnauthorized.
func BasicCredentials(r *http.Request) (Credentials, error) {
	username, password, ok := r.BasicAuth()
	if !ok {
		return Credentials{}, fmt.Errorf("%w: missing or malformed basic credentials", common.ErrorUnauthorized)
	}
	return Credentials{Username: username, Password: passwords.NewSecret(password)}, nil
}

// BasicChallenge is the WWW-Authenticate header value.
func BasicChallenge() string {
	return fmt.Sprintf("Basic realm=%q", BasicRealm)
}
