package models

import "time"

// CensorWord is always stored lowercase so matching stays consistent.
type CensorWord struct {
	ID        string    `json:"id" bson:"_id"`
	Word      string    `json:"word" bson:"word"`
	CreatedBy string    `json:"created_by" bson:"created_by"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
