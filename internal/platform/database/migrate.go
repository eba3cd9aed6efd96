package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"
)

// SchemaVersion은 queries/schema.sql이 만드는 스키마 버전입니다
const SchemaVersion = 1

//go:embed queries/schema.sql
var schemaDDL string

// Migrate는 스키마를 적용하고 schema_version에 버전을 기록합니다. 여러 번 실행해도 안전합니다.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)",
		SchemaVersion, time.Now().UnixMilli(),
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return tx.Commit()
}

// CurrentVersion은 적용된 가장 높은 스키마 버전을 반환합니다. 기록이 없으면 0입니다.
func CurrentVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}
