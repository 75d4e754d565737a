package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// LegacyUpgrade reports what UpgradeLegacySchema changed.
type LegacyUpgrade struct {
	AddedSecretColumn     bool
	AddedGroupColumn      bool
	RebuiltGroups         bool
	ClearedDanglingGroups int64
}

// Changed reports whether any upgrade step modified the store.
func (u LegacyUpgrade) Changed() bool {
	return u.AddedSecretColumn || u.AddedGroupColumn || u.RebuiltGroups || u.ClearedDanglingGroups > 0
}

// UpgradeLegacySchema brings a store written by an earlier release into the
// shape of the first versioned migration. accounts gains the roblosecurity
// and group_id columns when missing, an unkeyed groups(name) table is rebuilt
// with an integer id, and group references that point at no group are
// cleared. A fresh or already upgraded store is left untouched.
//
// Foreign keys are disabled on the writer connection for the duration, since
// the groups rebuild drops a table that accounts may reference.
func UpgradeLegacySchema(ctx context.Context, db *DB) (LegacyUpgrade, error) {
	var report LegacyUpgrade

	conn, err := db.Writer.Conn(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire writer connection: %w", err)
	}
	defer conn.Close()

	accountCols, err := tableColumns(ctx, conn, "accounts")
	if err != nil {
		return report, err
	}
	groupCols, err := tableColumns(ctx, conn, "groups")
	if err != nil {
		return report, err
	}
	if len(accountCols) == 0 && len(groupCols) == 0 {
		return report, nil
	}

	if _, err := conn.ExecContext(ctx, `PRAGMA foreign_keys = OFF`); err != nil {
		return report, fmt.Errorf("disable foreign keys: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), `PRAGMA foreign_keys = ON`)
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return report, fmt.Errorf("begin upgrade: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if len(accountCols) > 0 {
		if !accountCols["roblosecurity"] {
			if _, err := tx.ExecContext(ctx, `ALTER TABLE accounts ADD COLUMN roblosecurity TEXT`); err != nil {
				return report, fmt.Errorf("add roblosecurity column: %w", err)
			}
			report.AddedSecretColumn = true
		}
		if !accountCols["group_id"] {
			if _, err := tx.ExecContext(ctx, `ALTER TABLE accounts ADD COLUMN group_id INTEGER REFERENCES groups(id)`); err != nil {
				return report, fmt.Errorf("add group_id column: %w", err)
			}
			report.AddedGroupColumn = true
		}
	}

	switch {
	case len(groupCols) == 0:
		const query = `CREATE TABLE IF NOT EXISTS groups (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE)`
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return report, fmt.Errorf("create groups: %w", err)
		}
	case !groupCols["id"]:
		if err := rebuildGroups(ctx, tx); err != nil {
			return report, err
		}
		report.RebuiltGroups = true
	}

	if len(accountCols) > 0 {
		const query = `UPDATE accounts SET group_id = NULL
			WHERE group_id IS NOT NULL AND group_id NOT IN (SELECT id FROM groups)`
		result, err := tx.ExecContext(ctx, query)
		if err != nil {
			return report, fmt.Errorf("clear dangling group references: %w", err)
		}
		report.ClearedDanglingGroups, err = result.RowsAffected()
		if err != nil {
			return report, fmt.Errorf("check rows affected: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return report, fmt.Errorf("commit upgrade: %w", err)
	}

	return report, nil
}

func rebuildGroups(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		`DROP TABLE IF EXISTS groups_new`,
		`CREATE TABLE groups_new (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT UNIQUE)`,
		`INSERT OR IGNORE INTO groups_new(name) SELECT DISTINCT name FROM groups WHERE name IS NOT NULL AND TRIM(name) != ''`,
		`DROP TABLE groups`,
		`ALTER TABLE groups_new RENAME TO groups`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("rebuild groups: %w", err)
		}
	}
	return nil
}

// tableColumns returns the column names of table, or an empty set when the
// table does not exist.
func tableColumns(ctx context.Context, conn *sql.Conn, table string) (map[string]bool, error) {
	const query = `SELECT name FROM pragma_table_info(?)`

	rows, err := conn.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("inspect table %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}

	return cols, nil
}
