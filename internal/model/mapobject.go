package model

import (
	"math"
	"time"
)

// MapObject is an exhibit placed on the interactive map: an aircraft, a
// spacecraft, a museum building and so on. X, Y and Z are map coordinates.
type MapObject struct {
	ID           int64      `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Description  string     `json:"description,omitempty" db:"description"`
	Type         string     `json:"type" db:"type"`
	Category     string     `json:"category,omitempty" db:"category"`
	Era          string     `json:"era,omitempty" db:"era"`
	Manufacturer string     `json:"manufacturer,omitempty" db:"manufacturer"`
	FirstFlight  *time.Time `json:"first_flight,omitempty" db:"first_flight"`
	Status       string     `json:"status,omitempty" db:"status"`

	X float64 `json:"x" db:"x"`
	Y float64 `json:"y" db:"y"`
	Z float64 `json:"z" db:"z"`

	ImageURL    string `json:"image_url,omitempty" db:"image_url"`
	ModelURL    string `json:"model_url,omitempty" db:"model_url"`
	Video360URL string `json:"video_360_url,omitempty" db:"video_360_url"`

	IsInteractive  bool `json:"is_interactive" db:"is_interactive"`
	IsDiscoverable bool `json:"is_discoverable" db:"is_discoverable"`
	IsUnlocked     bool `json:"is_unlocked" db:"is_unlocked"`

	ExperienceValue int `json:"experience_value" db:"experience_value"`
	DifficultyLevel int `json:"difficulty_level" db:"difficulty_level"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewMapObject returns a MapObject with the catalog defaults applied:
// interactive, discoverable, locked, difficulty 1.
func NewMapObject() MapObject {
	return MapObject{
		IsInteractive:   true,
		IsDiscoverable:  true,
		DifficultyLevel: 1,
	}
}

// DistanceTo returns the Euclidean distance between the object and the point
// (x, y, z).
func (o *MapObject) DistanceTo(x, y, z float64) float64 {
	dx, dy, dz := o.X-x, o.Y-y, o.Z-z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
