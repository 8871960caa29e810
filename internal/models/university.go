package models

import "time"

// University scopes the course catalog; users and courses both belong to one.
type University struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Country   string    `db:"country" json:"country"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
