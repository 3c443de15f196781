package devicerepo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// MigrationsFS contém as migrações goose da tabela products.
// Também é usado pelo comando cmd/migrate.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsDir é o diretório das migrações dentro de MigrationsFS.
const MigrationsDir = "migrations"

const tableExistsQuery = `
    SELECT EXISTS (
        SELECT 1 FROM information_schema.tables
        WHERE table_schema = current_schema() AND table_name = 'products'
    )`

// EnsureSchema cria a tabela products (com índice e dados iniciais) quando ela ainda não existe.
// Não há trava entre instâncias: duas instâncias subindo juntas num banco vazio podem competir.
func EnsureSchema(ctx context.Context, db *sql.DB) (created bool, err error) {
	var exists bool
	if err := db.QueryRowContext(ctx, tableExistsQuery).Scan(&exists); err != nil {
		return false, fmt.Errorf("falha ao verificar tabela products: %w", err)
	}
	if exists {
		return false, nil
	}

	migrations, err := fs.Sub(MigrationsFS, MigrationsDir)
	if err != nil {
		return false, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations)
	if err != nil {
		return false, fmt.Errorf("falha ao preparar migrações: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return false, fmt.Errorf("falha ao aplicar migrações: %w", err)
	}
	return true, nil
}
