package models

import (
	"fmt"
	"time"
)

// CreditKind is the closed set of billable resources.
type CreditKind string

const (
	CreditModel CreditKind = "MODEL"
	CreditPhoto CreditKind = "PHOTO"
	CreditVideo CreditKind = "VIDEO"
)

// CreditKinds lists every kind; each user owns exactly one balance per entry.
var CreditKinds = []CreditKind{CreditModel, CreditPhoto, CreditVideo}

func ParseCreditKind(s string) (CreditKind, error) {
	for _, k := range CreditKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown credit kind %q", s)
}

// CreditBalance is one (user, kind) row. Amount never drops below MinimumBalance.
type CreditBalance struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Kind           CreditKind `json:"kind"`
	Amount         int64      `json:"amount"`
	MinimumBalance int64      `json:"minimum_balance"`
	TotalAllotted  int64      `json:"total_allotted"`
	SubscriptionID *string    `json:"subscription_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Available is the part of the balance that may still be spent.
func (b *CreditBalance) Available() int64 {
	return b.Amount - b.MinimumBalance
}
