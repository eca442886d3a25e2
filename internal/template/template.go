package template

import (
	"time"
)

// Placeholder tokens understood by the notification and welcome emails
const (
	TokenName            = "[name]"
	TokenTitle           = "[title]"
	TokenSummary         = "[summary]"
	TokenContent         = "[content]"
	TokenLink            = "[link]"
	TokenUnsubscribeLink = "[unsubscribe_link]"
)

// Template represents an email template
type Template struct {
	ID                  string    `json:"id" bson:"_id"`
	Subject             string    `json:"subject" bson:"subject"`
	Body                string    `json:"body" bson:"body"`
	SubjectPlaceholders []string  `json:"subject_placeholders" bson:"subject_placeholders"`
	BodyPlaceholders    []string  `json:"body_placeholders" bson:"body_placeholders"`
	CreatedAt           time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" bson:"updated_at"`
}

// Update carries a partial template update. Nil fields are left unchanged.
type Update struct {
	Subject             *string   `json:"subject,omitempty"`
	Body                *string   `json:"body,omitempty"`
	SubjectPlaceholders *[]string `json:"subject_placeholders,omitempty"`
	BodyPlaceholders    *[]string `json:"body_placeholders,omitempty"`
}

// RenderResult contains rendered template output
type RenderResult struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Substitutions maps a bracketed token to its replacement text
type Substitutions map[string]string
