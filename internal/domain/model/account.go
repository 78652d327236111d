package model

import "time"

// Account is the account holder on whose behalf a mailbox is linked.
type Account struct {
	ID        int64
	Email     string
	APIToken  string
	CreatedAt time.Time
}
