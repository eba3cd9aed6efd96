package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"taeu.kr/invoicedesk/internal/library"
)

type FolderStore struct {
	db *sql.DB
	qb sq.StatementBuilderType
}

func NewFolderStore(db *sql.DB) *FolderStore {
	return &FolderStore{
		db: db,
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

var folderColumns = []string{"id", "name", "is_trash", "created_at"}

func scanFolder(row sq.RowScanner) (*library.Folder, error) {
	var folder library.Folder
	var isTrash int
	var createdAt int64
	if err := row.Scan(&folder.ID, &folder.Name, &isTrash, &createdAt); err != nil {
		return nil, err
	}
	folder.IsTrash = isTrash == 1
	folder.CreatedAt = time.UnixMilli(createdAt)
	return &folder, nil
}

func (s *FolderStore) ListFolders(ctx context.Context) ([]*library.Folder, error) {
	sqlQuery, args, err := s.qb.
		Select(folderColumns...).
		From("folders").
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for ListFolders: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	folders := make([]*library.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder row: %w", err)
		}
		folders = append(folders, folder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error in ListFolders: %w", err)
	}
	return folders, nil
}

func (s *FolderStore) getFolderBy(ctx context.Context, where sq.Eq) (*library.Folder, error) {
	sqlQuery, args, err := s.qb.
		Select(folderColumns...).
		From("folders").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for GetFolder: %w", err)
	}

	folder, err := scanFolder(s.db.QueryRowContext(ctx, sqlQuery, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("folder %v: %w", where, library.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to scan folder row: %w", err)
	}
	return folder, nil
}

func (s *FolderStore) GetFolder(ctx context.Context, id string) (*library.Folder, error) {
	return s.getFolderBy(ctx, sq.Eq{"id": id})
}

func (s *FolderStore) GetTrashFolder(ctx context.Context) (*library.Folder, error) {
	return s.getFolderBy(ctx, sq.Eq{"is_trash": 1})
}

func (s *FolderStore) CreateFolder(ctx context.Context, folder *library.Folder) error {
	isTrash := 0
	if folder.IsTrash {
		isTrash = 1
	}

	sqlQuery, args, err := s.qb.
		Insert("folders").
		Columns(folderColumns...).
		Values(folder.ID, folder.Name, isTrash, folder.CreatedAt.UnixMilli()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for CreateFolder: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, sqlQuery, args...); err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

func (s *FolderStore) RenameFolder(ctx context.Context, id, name string) error {
	sqlQuery, args, err := s.qb.
		Update("folders").
		Set("name", name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build SQL query for RenameFolder: %w", err)
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return fmt.Errorf("failed to rename folder: %w", err)
	}
	return requireAffected(result, "folder", id)
}

// DeleteFolderCascade는 폴더와 그 폴더를 원래 위치로 갖는 파일을 한 트랜잭션에서 삭제합니다
func (s *FolderStore) DeleteFolderCascade(ctx context.Context, id string) (int64, error) {
	deleteFiles, fileArgs, err := s.qb.
		Delete("files").
		Where(sq.Eq{"original_folder_id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for DeleteFolderCascade: %w", err)
	}
	deleteFolder, folderArgs, err := s.qb.
		Delete("folders").
		Where(sq.Eq{"id": id, "is_trash": 0}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build SQL query for DeleteFolderCascade: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	filesResult, err := tx.ExecContext(ctx, deleteFiles, fileArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete files of folder: %w", err)
	}
	folderResult, err := tx.ExecContext(ctx, deleteFolder, folderArgs...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete folder: %w", err)
	}
	if err := requireAffected(folderResult, "folder", id); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit folder deletion: %w", err)
	}

	removed, err := filesResult.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted file count: %w", err)
	}
	return removed, nil
}

func requireAffected(result sql.Result, kind, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, library.ErrNotFound)
	}
	return nil
}
