// Package players manages the club roster behind the auth gate.
package players

import "time"

// Player is a roster entry.
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Position  string    `json:"position"`
	Age       int       `json:"age"`
	Goals     int       `json:"goals"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateInput carries the fields accepted when adding a player.
type CreateInput struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Position string `json:"position" validate:"max=50"`
	Age      *int   `json:"age" validate:"required,min=0,max=120"`
	Goals    *int   `json:"goals" validate:"required,min=0"`
}
