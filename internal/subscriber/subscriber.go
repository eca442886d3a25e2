// Package subscriber manages the newsletter and waitlist signups.
//
// Both lists share one record shape but live in separate collections and
// have no shared identity. Records are never deleted: unsubscribing clears
// the active flag and signing up again sets it.
package subscriber

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/foxzi/journey/internal/apperr"
)

// List names a subscriber list. The value doubles as collection name and
// URL segment.
type List string

const (
	Newsletter List = "newsletter"
	Waitlist   List = "waitlist"
)

// Lists returns every known list
func Lists() []List {
	return []List{Newsletter, Waitlist}
}

// ParseList validates a list name
func ParseList(s string) (List, error) {
	switch List(s) {
	case Newsletter, Waitlist:
		return List(s), nil
	default:
		return "", apperr.Invalid(fmt.Sprintf("unknown list: %s", s))
	}
}

func (l List) String() string { return string(l) }

// Subscriber is one signup on a list
type Subscriber struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Location  string    `json:"location" bson:"location"`
	Email     string    `json:"email" bson:"email"`
	Active    bool      `json:"isActive" bson:"isActive"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// SignupRequest is the caller input for a signup
type SignupRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Email    string `json:"email"`
}

// SignupResult reports what a signup did
type SignupResult struct {
	Subscriber  *Subscriber
	Reactivated bool
	WelcomeSent bool
	WelcomeErr  error
}

// NormalizeEmail trims and lower-cases an address and rejects anything that
// is not a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", apperr.Invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", apperr.Invalid("invalid email address")
	}
	return email, nil
}

// UnsubscribeLink builds the public unsubscribe URL for email on list
func UnsubscribeLink(apiBase string, list List, email string) string {
	return strings.TrimRight(apiBase, "/") + "/" + string(list) + "/unsubscribe?email=" + url.QueryEscape(email)
}
