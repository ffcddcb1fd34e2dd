package models

import "time"

type PlayerRole string

const (
	RoleAdmin    PlayerRole = "admin"
	RoleOperator PlayerRole = "operator"
	RolePlayer   PlayerRole = "player"
)

type Player struct {
	ID           int        `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Nickname     *string    `json:"nickname,omitempty"`
	Role         PlayerRole `json:"role"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
