package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"taeu.kr/invoicedesk/internal/library"
)

type FileStore struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

func NewFileStore(db *sql.DB) *FileStore {
	return &FileStore{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// ListFiles는 data 컬럼을 제외하고 조회합니다
var fileListColumns = []string{
	"id",
	"name",
	"type",
	"last_modified",
	"state",
	"original_folder_id",
	"deleted_at",
	"metadata",
}

func scanFile(row sq.RowScanner, withData bool) (*library.File, error) {
	var file library.File
	var fileType, state string
	var lastModified int64
	var deletedAt sql.NullInt64
	var metadata sql.NullString

	dest := []any{&file.ID, &file.Name, &fileType, &lastModified, &state, &file.OriginalFolderID, &deletedAt, &metadata}
	if withData {
		dest = append(dest, &file.Data)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	file.Type = library.FileType(fileType)
	file.State = library.FileState(state)
	file.LastModified = time.UnixMilli(lastModified)
	if deletedAt.Valid {
		t := time.UnixMilli(deletedAt.Int64)
		file.DeletedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		var m library.Metadata
		if err := json.Unmarshal([]byte(metadata.String), &m); err != nil {
			return nil, fmt.Errorf("failed to decode metadata of file %s: %w", file.ID, err)
		}
		file.Metadata = &m
	}
	return &file, nil
}

func fileValues(file *library.File) (deletedAt any, metadata any, err error) {
	if file.DeletedAt != nil {
		deletedAt = file.DeletedAt.UnixMilli()
	}
	if file.Metadata != nil {
		raw, err := json.Marshal(file.Metadata)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = string(raw)
	}
	return deletedAt, metadata, nil
}

func (s *FileStore) CreateFile(ctx context.Context, file *library.File) error {
	deletedAt, metadata, err := fileValues(file)
	if err != nil {
		return err
	}

	sqlQuery, args, err := s.qb.
		Insert("files").
		Columns(append(fileListColumns, "data")...).
		Values(
			file.ID,
			file.Name,
			string(file.Type),
			file.LastModified.UnixMilli(),
			string(file.State),
			file.OriginalFolderID,
			deletedAt,
			metadata,
			file.Data,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for CreateFile: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlQuery, args...); err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (s *FileStore) GetFile(ctx context.Context, id string) (*library.File, error) {
	sqlQuery, args, err := s.qb.
		Select(append(fileListColumns, "data")...).
		From("files").
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetFile: %w", err)
	}

	file, err := scanFile(s.db.QueryRowContext(ctx, sqlQuery, args...), true)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("file %s: %w", id, library.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan file row: %w", err)
	}
	return file, nil
}

func (s *FileStore) ListFiles(ctx context.Context, filter library.FileFilter) ([]*library.File, error) {
	where := sq.Eq{}
	if filter.FolderID != "" {
		where["original_folder_id"] = filter.FolderID
	}
	if filter.State != "" {
		where["state"] = string(filter.State)
	}
	if filter.Type != "" {
		where["type"] = string(filter.Type)
	}

	builder := s.qb.
		Select(fileListColumns...).
		From("files").
		OrderBy("name ASC", "id ASC")
	if len(where) > 0 {
		builder = builder.Where(where)
	}

	sqlQuery, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListFiles: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	files := make([]*library.File, 0)
	for rows.Next() {
		file, err := scanFile(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file row: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error in ListFiles: %w", err)
	}
	return files, nil
}

// UpdateFile은 ID를 제외한 모든 컬럼을 갱신합니다. data가 비어 있으면 기존 값을 유지합니다.
func (s *FileStore) UpdateFile(ctx context.Context, file *library.File) error {
	deletedAt, metadata, err := fileValues(file)
	if err != nil {
		return err
	}

	values := map[string]any{
		"name":               file.Name,
		"type":               string(file.Type),
		"last_modified":      file.LastModified.UnixMilli(),
		"state":              string(file.State),
		"original_folder_id": file.OriginalFolderID,
		"deleted_at":         deletedAt,
		"metadata":           metadata,
	}
	if file.Data != "" {
		values["data"] = file.Data
	}

	sqlQuery, args, err := s.qb.
		Update("files").
		SetMap(values).
		Where(sq.Eq{"id": file.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for UpdateFile: %w", err)
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	return requireAffected(result, "file", file.ID)
}

func (s *FileStore) DeleteFile(ctx context.Context, id string) error {
	sqlQuery, args, err := s.qb.
		Delete("files").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for DeleteFile: %w", err)
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return requireAffected(result, "file", id)
}

func (s *FileStore) DeleteFilesByState(ctx context.Context, state library.FileState) (int64, error) {
	sqlQuery, args, err := s.qb.
		Delete("files").
		Where(sq.Eq{"state": string(state)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for DeleteFilesByState: %w", err)
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete files by state: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted file count: %w", err)
	}
	return removed, nil
}
