// Package model defines the data structures used throughout the application.
package model

import "time"

// Application is one submitted registration, either for a participant or for
// a judge. The GitHub user ID is the external identity key: the applications
// table carries a UNIQUE constraint on it, so one account can hold at most
// one application at a time.
//
// Fields below the discriminant are conditional: participant rows use
// DBOHandle and StreamHandle, judge rows use DBOHandle, IRCHandle, GameHandle
// and ContactEmail. An application is immutable once created; staff decisions
// delete the row rather than mutating it.
type Application struct {
	ID           string    `json:"id"           db:"id"`
	GitHubID     int64     `json:"githubId"     db:"gh_id"`
	Username     string    `json:"username"     db:"username"`
	IsJudge      bool      `json:"isJudge"      db:"judge"`
	Emails       []string  `json:"emails"       db:"emails"` // verified emails from the identity provider, stored as JSON
	DBOHandle    string    `json:"dboHandle"    db:"dbo_handle"`
	StreamHandle *string   `json:"streamHandle" db:"stream_handle"` // participant only; nil = declined to provide
	IRCHandle    string    `json:"ircHandle"    db:"irc_handle"`    // judge only
	GameHandle   string    `json:"gameHandle"   db:"game_handle"`   // judge only
	ContactEmail string    `json:"contactEmail" db:"contact_email"` // judge only
	CreatedAt    time.Time `json:"createdAt"    db:"created_at"`
}

// DecisionRecipient returns the address decision notifications go to: the
// contact email for judges, otherwise the first verified email on record.
func (a *Application) DecisionRecipient() string {
	if a.IsJudge && a.ContactEmail != "" {
		return a.ContactEmail
	}
	if len(a.Emails) > 0 {
		return a.Emails[0]
	}
	return ""
}
