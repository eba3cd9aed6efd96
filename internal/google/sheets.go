package google

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
	"taeu.kr/invoicedesk/internal/library"
)

const (
	defaultSheetRange = "Sheet1"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxRenameAttempts = 100
)

// ConflictPolicy는 같은 이름의 파일이 폴더에 있을 때의 처리 방식입니다
type ConflictPolicy string

const (
	ConflictRename    ConflictPolicy = "rename"
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// LibraryStore는 가져온 스프레드시트를 저장할 곳입니다
type LibraryStore interface {
	AddFile(ctx context.Context, file *library.File) (*library.File, error)
	ReplaceFile(ctx context.Context, id string, replacement *library.File) (*library.File, error)
	FindActiveByName(ctx context.Context, folderID, name string) (*library.File, error)
}

type ImportRequest struct {
	SpreadsheetID string         `json:"spreadsheetId"`
	FolderID      string         `json:"folderId"`
	Range         string         `json:"range"`
	Conflict      ConflictPolicy `json:"conflict"`
}

// Validate는 가져오기 요청을 검증하고 범위와 충돌 정책의 기본값을 채웁니다
func (req *ImportRequest) Validate() error {
	req.SpreadsheetID = strings.TrimSpace(req.SpreadsheetID)
	req.FolderID = strings.TrimSpace(req.FolderID)
	if req.Range == "" {
		req.Range = defaultSheetRange
	}
	if req.Conflict == "" {
		req.Conflict = ConflictRename
	}

	err := validation.ValidateStruct(req,
		validation.Field(&req.SpreadsheetID, validation.Required.Error("spreadsheetId is required")),
		validation.Field(&req.FolderID, validation.Required.Error("folderId is required")),
		validation.Field(&req.Conflict,
			validation.In(ConflictRename, ConflictSkip, ConflictOverwrite).Error("unknown conflict policy"),
		),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", library.ErrValidation, err)
	}
	return nil
}

type ImportResult struct {
	File    *library.File `json:"file"`
	Rows    int           `json:"rows"`
	Skipped bool          `json:"skipped"`
	Renamed bool          `json:"renamed"`
}

type SheetsImporter struct {
	client *Client
	store  LibraryStore
}

func NewSheetsImporter(client *Client, store LibraryStore) *SheetsImporter {
	return &SheetsImporter{client: client, store: store}
}

// Import는 스프레드시트의 첫 시트 값을 xlsx로 만들어 폴더에 저장합니다
func (i *SheetsImporter) Import(ctx context.Context, ts oauth2.TokenSource, req ImportRequest) (*ImportResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx = withContext(ctx)
	svc, err := sheets.NewService(ctx, i.client.options(ts, "/")...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	spreadsheet, err := svc.Spreadsheets.Get(req.SpreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", req.SpreadsheetID, err)
	}
	values, err := svc.Spreadsheets.Values.Get(req.SpreadsheetID, req.Range).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet values: %w", err)
	}
	if len(values.Values) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySheet, req.SpreadsheetID)
	}

	content, err := BuildWorkbook(values.Values)
	if err != nil {
		return nil, err
	}

	title := ""
	if spreadsheet.Properties != nil {
		title = spreadsheet.Properties.Title
	}
	file := &library.File{
		Name:             workbookName(title, req.SpreadsheetID),
		Type:             library.FileTypeExcel,
		Data:             library.EncodeData(content, xlsxContentType),
		OriginalFolderID: req.FolderID,
	}

	result, err := i.save(ctx, req.Conflict, file)
	if err != nil {
		return nil, err
	}
	result.Rows = len(values.Values)

	log.Info().
		Str("spreadsheet_id", req.SpreadsheetID).
		Str("folder_id", req.FolderID).
		Int("rows", result.Rows).
		Bool("skipped", result.Skipped).
		Msg("spreadsheet imported")
	return result, nil
}

// save는 충돌 정책에 따라 파일을 저장합니다
func (i *SheetsImporter) save(ctx context.Context, policy ConflictPolicy, file *library.File) (*ImportResult, error) {
	existing, err := i.store.FindActiveByName(ctx, file.OriginalFolderID, file.Name)
	if err != nil && !errors.Is(err, library.ErrNotFound) {
		return nil, err
	}
	if existing == nil {
		added, err := i.store.AddFile(ctx, file)
		if err != nil {
			return nil, err
		}
		return &ImportResult{File: added}, nil
	}

	switch policy {
	case ConflictSkip:
		return &ImportResult{File: existing, Skipped: true}, nil
	case ConflictOverwrite:
		replaced, err := i.store.ReplaceFile(ctx, existing.ID, file)
		if err != nil {
			return nil, err
		}
		return &ImportResult{File: replaced}, nil
	}

	base := file.Name
	for n := 2; n <= maxRenameAttempts; n++ {
		candidate := numberedName(base, n)
		taken, err := i.store.FindActiveByName(ctx, file.OriginalFolderID, candidate)
		if err != nil && !errors.Is(err, library.ErrNotFound) {
			return nil, err
		}
		if taken != nil {
			continue
		}
		file.Name = candidate
		added, err := i.store.AddFile(ctx, file)
		if err != nil {
			return nil, err
		}
		return &ImportResult{File: added, Renamed: true}, nil
	}
	return nil, fmt.Errorf("%w: too many files named %s", library.ErrValidation, base)
}

// BuildWorkbook은 시트 값을 Sheet1에 채운 xlsx를 만듭니다
func BuildWorkbook(rows [][]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("invalid cell position: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func workbookName(title, fallback string) string {
	name := strings.TrimSpace(strings.NewReplacer("/", "_", "\\", "_").Replace(title))
	if name == "" {
		name = fallback
	}
	return name + ".xlsx"
}

// numberedName은 "name (n).ext" 형식의 이름을 만듭니다
func numberedName(name string, n int) string {
	ext := path.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}
