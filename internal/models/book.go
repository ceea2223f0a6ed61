package models

import "time"

// Book - книга в каталоге библиотеки.
//
// AvailableCopies/TotalCopies — учёт экземпляров; AuthorName денормализуется
// при чтении для удобства клиентов.
type Book struct {
	ID              int64
	Title           string
	ISBN            string
	Description     string
	PublicationYear int32
	AvailableCopies int32
	TotalCopies     int32
	AuthorID        int64
	AuthorName      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
