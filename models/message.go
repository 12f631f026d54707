package models

import "time"

type Message struct {
	ID        string    `json:"id" bson:"_id"`
	Room      string    `json:"room" bson:"room"`
	Sender    string    `json:"sender" bson:"sender"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
