// Package tokens generates subscription confirmation tokens.
package tokens

import "github.com/dmitrijs2005/newsletter/internal/common"

// Length of a subscription token. 25 alphanumeric characters carry about
// 148 bits of entropy.
const Length = 25

// Generate returns a fresh token drawn from crypto/rand.
func Generate() (string, error) {
	return common.RandomString(common.Alphanumeric, Length)
}
