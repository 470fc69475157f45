package model

import (
	"strings"
	"time"
)

const (
	ProviderTelegram = "telegram"
	ProviderLocal    = "local"
)

// User is an identity handed to us by an identity provider.
type User struct {
	ID          string
	Provider    string
	ExternalID  string
	DisplayName string
	CreatedAt   time.Time
}

// FirstName is the first word of the display name, used in greetings.
func (u User) FirstName() string {
	fields := strings.Fields(u.DisplayName)
	if len(fields) == 0 {
		return "User"
	}
	return fields[0]
}
