// Package email sends transactional mail through a Postmark-compatible HTTP
// API.
package email

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/newsletter/internal/netx"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

const tokenHeader = "X-Postmark-Server-Token"

// Client posts messages to <baseURL>/email.
type Client struct {
	http      *http.Client
	baseURL   string
	sender    string
	authToken passwords.Secret
}

func NewClient(baseURL, sender string, authToken passwords.Secret, timeout time.Duration) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(baseURL, "/"),
		sender:    sender,
		authToken: authToken,
	}
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send delivers one message. A non-2xx answer from the API is an error.
func (c *Client) Send(ctx context.Context, recipient, subject, html, text string) error {
	req := sendEmailRequest{
		From:     c.sender,
		To:       recipient,
		Subject:  subject,
		HtmlBody: html,
		TextBody: text,
	}
	headers := map[string]string{tokenHeader: string(c.authToken.Bytes())}

	if err := netx.PostJSON(ctx, c.http, c.baseURL+"/email", headers, req); err != nil {
		return fmt.Errorf("send email to %s: %w", recipient, err)
	}
	return nil
}
