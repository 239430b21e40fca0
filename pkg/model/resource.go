package model

import "time"

// Resource is a bookable asset: a room, a desk, a piece of equipment.
type Resource struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Name      string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Type      string    `json:"type" bson:"type" validate:"required,min=2,max=50"`
	Capacity  int       `json:"capacity" bson:"capacity" validate:"omitempty,min=1,max=1000"`
	Location  string    `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=200"`
	IsActive  bool      `json:"is_active" bson:"is_active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}
