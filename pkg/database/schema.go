package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Index is a secondary index created after AutoMigrate.
type Index struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
}

func (i Index) statement() string {
	kind := "INDEX"
	if i.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
		kind, i.Name, i.Table, strings.Join(i.Columns, ", "))
}

// EnsureSchema creates tables and indexes if they are missing. It is safe to
// run on every start.
func EnsureSchema(db *gorm.DB, models []interface{}, indexes []Index) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.statement()).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}

	return nil
}
