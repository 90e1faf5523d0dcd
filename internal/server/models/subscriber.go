package models

import "time"

type SubscriptionStatus string

const (
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	StatusConfirmed           SubscriptionStatus = "confirmed"
)

type Subscriber struct {
	ID           string
	Email        string
	Name         string
	Status       SubscriptionStatus
	SubscribedAt time.Time
}
