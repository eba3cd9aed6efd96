package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// FileFilter는 파일 목록 조회 조건입니다. 빈 값은 조건에서 제외됩니다.
type FileFilter struct {
	FolderID string
	State    FileState
	Type     FileType
}

type FolderStorer interface {
	ListFolders(ctx context.Context) ([]*Folder, error)
	GetFolder(ctx context.Context, id string) (*Folder, error)
	GetTrashFolder(ctx context.Context) (*Folder, error)
	CreateFolder(ctx context.Context, folder *Folder) error
	RenameFolder(ctx context.Context, id, name string) error
	DeleteFolderCascade(ctx context.Context, id string) (int64, error)
}

type FileStorer interface {
	CreateFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, id string) (*File, error)
	ListFiles(ctx context.Context, filter FileFilter) ([]*File, error)
	UpdateFile(ctx context.Context, file *File) error
	DeleteFile(ctx context.Context, id string) error
	DeleteFilesByState(ctx context.Context, state FileState) (int64, error)
}

// InvoiceExtractor는 PDF에서 청구서 정보를 추출합니다. 실패해도 에러를 반환하지 않습니다.
type InvoiceExtractor interface {
	ExtractInvoice(ctx context.Context, pdf []byte) InvoiceData
}

type Options struct {
	TrashName          string
	Locale             string
	AcceptCSV          bool
	MaxUploadBytes     int64
	ExtractConcurrency int
}

type Service struct {
	folders   FolderStorer
	files     FileStorer
	extractor InvoiceExtractor
	opts      Options
	now       func() time.Time
}

func NewService(folders FolderStorer, files FileStorer, extractor InvoiceExtractor, opts Options) *Service {
	if opts.TrashName == "" {
		opts.TrashName = "ゴミ箱"
	}
	if opts.Locale == "" {
		opts.Locale = "ja"
	}
	if opts.ExtractConcurrency <= 0 {
		opts.ExtractConcurrency = 4
	}
	return &Service{
		folders:   folders,
		files:     files,
		extractor: extractor,
		opts:      opts,
		now:       time.Now,
	}
}

// EnsureTrashFolder는 휴지통 폴더가 없으면 생성합니다
func (s *Service) EnsureTrashFolder(ctx context.Context) (*Folder, error) {
	trash, err := s.folders.GetTrashFolder(ctx)
	if err == nil {
		return trash, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to get trash folder: %w", err)
	}

	trash = &Folder{
		ID:        TrashFolderID,
		Name:      s.opts.TrashName,
		IsTrash:   true,
		CreatedAt: s.now(),
	}
	if err := s.folders.CreateFolder(ctx, trash); err != nil {
		return nil, fmt.Errorf("failed to create trash folder: %w", err)
	}
	log.Info().Str("folder_id", trash.ID).Msg("trash folder created")
	return trash, nil
}

// ListFolders는 휴지통을 마지막에 둔 정렬된 폴더 목록을 반환합니다
func (s *Service) ListFolders(ctx context.Context) ([]*Folder, error) {
	if _, err := s.EnsureTrashFolder(ctx); err != nil {
		return nil, err
	}

	folders, err := s.folders.ListFolders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	SortFolders(folders, s.opts.Locale)
	return folders, nil
}

func (s *Service) GetFolder(ctx context.Context, id string) (*Folder, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: folder id is required", ErrValidation)
	}
	folder, err := s.folders.GetFolder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder %s: %w", id, err)
	}
	return folder, nil
}

func (s *Service) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}

	folder := &Folder{
		ID:        NewID(s.now()),
		Name:      name,
		CreatedAt: s.now(),
	}
	if err := s.folders.CreateFolder(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return folder, nil
}

func (s *Service) RenameFolder(ctx context.Context, id, newName string) (*Folder, error) {
	name, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	folder, err := s.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.folders.RenameFolder(ctx, id, name); err != nil {
		return nil, fmt.Errorf("failed to rename folder %s: %w", id, err)
	}
	folder.Name = name
	return folder, nil
}

// DeleteFolder는 폴더와 그 폴더를 원래 위치로 갖는 모든 파일을 삭제합니다
func (s *Service) DeleteFolder(ctx context.Context, id string) (int64, error) {
	folder, err := s.GetFolder(ctx, id)
	if err != nil {
		return 0, err
	}
	if folder.IsTrash {
		return 0, ErrTrashFolder
	}

	removed, err := s.folders.DeleteFolderCascade(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete folder %s: %w", id, err)
	}
	log.Info().Str("folder_id", id).Int64("removed_files", removed).Msg("folder deleted")
	return removed, nil
}

// ListFilesForFolder는 휴지통이면 휴지통 상태 파일 전체를, 아니면 해당 폴더의 활성 파일을 반환합니다
func (s *Service) ListFilesForFolder(ctx context.Context, folderID string) ([]*File, error) {
	folder, err := s.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	filter := FileFilter{State: StateTrashed}
	if !folder.IsTrash {
		filter = FileFilter{FolderID: folder.ID, State: StateActive}
	}

	files, err := s.files.ListFiles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for folder %s: %w", folderID, err)
	}
	SortFiles(files, s.opts.Locale)
	return files, nil
}

// FolderTotal은 폴더의 PDF 합계와 표시 여부를 반환합니다
func (s *Service) FolderTotal(ctx context.Context, folderID string) (Total, error) {
	folder, err := s.GetFolder(ctx, folderID)
	if err != nil {
		return Total{}, err
	}
	if folder.IsTrash {
		return Total{}, nil
	}

	files, err := s.files.ListFiles(ctx, FileFilter{FolderID: folder.ID, State: StateActive, Type: FileTypePDF})
	if err != nil {
		return Total{}, fmt.Errorf("failed to list files for folder %s: %w", folderID, err)
	}
	return Total{Amount: FolderTotal(files), Visible: hasPDF(files)}, nil
}

func (s *Service) GetFile(ctx context.Context, id string) (*File, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: file id is required", ErrValidation)
	}
	file, err := s.files.GetFile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", id, err)
	}
	return file, nil
}

// requireHomeFolder는 파일을 담을 수 있는 일반 폴더인지 확인합니다
func (s *Service) requireHomeFolder(ctx context.Context, folderID string) (*Folder, error) {
	folder, err := s.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsTrash {
		return nil, ErrTrashFolder
	}
	return folder, nil
}

// AddFile은 새 파일 레코드를 저장합니다
func (s *Service) AddFile(ctx context.Context, file *File) (*File, error) {
	name, err := validateName(file.Name)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireHomeFolder(ctx, file.OriginalFolderID); err != nil {
		return nil, err
	}

	file.Name = name
	if file.ID == "" {
		file.ID = NewID(s.now())
	}
	if file.LastModified.IsZero() {
		file.LastModified = s.now()
	}
	file.State = StateActive
	file.DeletedAt = nil

	if err := s.files.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return file, nil
}

func (s *Service) RenameFile(ctx context.Context, id, newName string) (*File, error) {
	name, err := validateName(newName)
	if err != nil {
		return nil, err
	}
	file, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	file.Name = name
	if err := s.files.UpdateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to rename file %s: %w", id, err)
	}
	return file, nil
}

func (s *Service) UpdateFileMetadata(ctx context.Context, id string, metadata *Metadata) (*File, error) {
	file, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	file.Metadata = metadata
	if err := s.files.UpdateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to update metadata of file %s: %w", id, err)
	}
	return file, nil
}

// ReplaceFile은 기존 레코드의 ID, 원래 폴더, 상태를 유지한 채 내용을 교체합니다
func (s *Service) ReplaceFile(ctx context.Context, id string, replacement *File) (*File, error) {
	name, err := validateName(replacement.Name)
	if err != nil {
		return nil, err
	}
	file, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}

	file.Name = name
	file.Type = replacement.Type
	file.Data = replacement.Data
	file.Metadata = replacement.Metadata
	file.LastModified = s.now()
	if err := s.files.UpdateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to replace file %s: %w", id, err)
	}
	return file, nil
}

// MoveToTrash는 파일을 휴지통 상태로 바꿉니다. 이미 휴지통에 있으면 그대로 둡니다.
func (s *Service) MoveToTrash(ctx context.Context, id string) (*File, error) {
	file, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.State == StateTrashed {
		return file, nil
	}

	now := s.now()
	file.State = StateTrashed
	file.DeletedAt = &now
	if err := s.files.UpdateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to move file %s to trash: %w", id, err)
	}
	log.Info().Str("file_id", id).Str("folder_id", file.OriginalFolderID).Msg("file moved to trash")
	return file, nil
}

// RestoreFile은 휴지통의 파일을 원래 폴더로 되돌립니다
func (s *Service) RestoreFile(ctx context.Context, id string) (*File, error) {
	file, err := s.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if file.State == StateActive {
		return file, nil
	}
	if file.OriginalFolderID == "" {
		return nil, ErrNoHomeFolder
	}
	if _, err := s.folders.GetFolder(ctx, file.OriginalFolderID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("file %s home folder %s: %w", id, file.OriginalFolderID, ErrNoHomeFolder)
		}
		return nil, fmt.Errorf("failed to get home folder of file %s: %w", id, err)
	}

	file.State = StateActive
	file.DeletedAt = nil
	if err := s.files.UpdateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to restore file %s: %w", id, err)
	}
	log.Info().Str("file_id", id).Str("folder_id", file.OriginalFolderID).Msg("file restored")
	return file, nil
}

// PermanentlyDelete는 파일 레코드를 영구 삭제합니다
func (s *Service) PermanentlyDelete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: file id is required", ErrValidation)
	}
	if err := s.files.DeleteFile(ctx, id); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", id, err)
	}
	log.Info().Str("file_id", id).Msg("file permanently deleted")
	return nil
}

// EmptyTrash는 휴지통 상태의 모든 파일을 영구 삭제합니다
func (s *Service) EmptyTrash(ctx context.Context) (int64, error) {
	removed, err := s.files.DeleteFilesByState(ctx, StateTrashed)
	if err != nil {
		return 0, fmt.Errorf("failed to empty trash: %w", err)
	}
	log.Info().Int64("removed_files", removed).Msg("trash emptied")
	return removed, nil
}

// FindActiveByName은 폴더 안에서 같은 이름의 활성 파일을 찾습니다
func (s *Service) FindActiveByName(ctx context.Context, folderID, name string) (*File, error) {
	files, err := s.files.ListFiles(ctx, FileFilter{FolderID: folderID, State: StateActive})
	if err != nil {
		return nil, fmt.Errorf("failed to list files for folder %s: %w", folderID, err)
	}
	for _, f := range files {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, ErrNotFound
}
