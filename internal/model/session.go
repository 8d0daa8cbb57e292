package model

import "time"

// AccountSession is the backend's record of one signed-in mailbox. The
// bearer token handed to the dashboard only carries its ID.
type AccountSession struct {
	ID string `db:"id"`

	// Email is the mailbox address, filled in once the profile is known.
	Email string `db:"email"`

	// Provider credentials. They never leave the backend.
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	TokenType    string    `db:"token_type"`
	Expiry       time.Time `db:"expiry"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
