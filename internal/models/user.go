package models

import "time"

// Role — роль пользователя в системе. Ровно одна на пользователя.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid сообщает, является ли значение известной ролью.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User - модель пользователя в системе.
//
// PasswordHash хранит bcrypt-хэш; открытый пароль нигде не сохраняется.
// Enabled=false блокирует вход и все защищённые запросы.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         Role
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
