// migrations содержит встраиваемые goose-миграции схемы БД.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
