package models

import "time"

// BaseEntity carries the identity and bookkeeping fields shared by stored entities.
// The store owns all three fields; values set by callers are overwritten on Add.
type BaseEntity struct {
	ID        int        `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}
