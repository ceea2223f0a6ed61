package models

import "time"

// Author - автор в каталоге библиотеки.
//
// BookCount денормализуется при чтении (подзапрос по books).
type Author struct {
	ID        int64
	FirstName string
	LastName  string
	Biography string
	BirthYear int32
	BookCount int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName возвращает имя в формате "Имя Фамилия".
func (a *Author) FullName() string {
	return a.FirstName + " " + a.LastName
}
