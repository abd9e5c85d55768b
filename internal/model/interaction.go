package model

import "time"

// Interaction records a single player action against a map object.
type Interaction struct {
	ID              int64     `json:"id" db:"id"`
	PlayerID        string    `json:"player_id" db:"player_id"`
	MapObjectID     int64     `json:"map_object_id" db:"map_object_id"`
	InteractionType string    `json:"interaction_type" db:"interaction_type"`
	InteractionData string    `json:"interaction_data,omitempty" db:"interaction_data"`
	Duration        int       `json:"duration" db:"duration"` // seconds
	WasSuccessful   bool      `json:"was_successful" db:"was_successful"`
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
}
