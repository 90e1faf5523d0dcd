package models

import "time"

// Issue is one newsletter broadcast.
type Issue struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content"`
	PublishedAt time.Time `json:"published_at"`
}
