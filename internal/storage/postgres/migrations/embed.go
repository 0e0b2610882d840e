// migrations содержит встраиваемые SQL-миграции схемы auth-сервиса.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
