package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/cargaslack/carga/pkg"
)

// isUniqueViolation detects SQLite UNIQUE constraint failures.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation detects ON DELETE RESTRICT / missing parent rows.
func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// expectAffected turns "no row matched" into pkg.ErrNotFound.
func expectAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return pkg.ErrNotFound
	}
	return nil
}

// escapeLike escapes LIKE wildcards so a user filter matches literally.
// Queries using it must declare ESCAPE '\'.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
