package models

import "time"

// RefreshToken - данные refresh-токена для управления сессиями.
//
// В БД хранится только хэш значения (TokenHash); открытое значение клиент
// получает один раз при выпуске. На пользователя существует не более одного
// живого токена — уникальный индекс по UserID.
type RefreshToken struct {
	ID        int64
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired сообщает, истёк ли токен к моменту now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
