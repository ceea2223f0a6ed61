package models

// Principal — аутентифицированная личность запроса.
//
// Иммутабельное значение, которое authn-мидлвар кладёт в контекст после
// проверки access-токена и повторного чтения аккаунта из хранилища.
type Principal struct {
	ID       int64
	Username string
	Role     Role
	Enabled  bool
}

// IsAdmin сообщает, имеет ли личность роль ADMIN.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
