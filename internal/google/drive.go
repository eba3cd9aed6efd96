package google

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"taeu.kr/invoicedesk/internal/library"
)

const defaultListPageSize = 100

// DriveFile은 업로드/목록 결과로 돌려주는 Drive 파일 정보입니다
type DriveFile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	WebViewLink  string    `json:"webViewLink,omitempty"`
	ModifiedTime time.Time `json:"modifiedTime,omitempty"`
}

// ConversionMimeType은 업로드 시 변환할 Google 문서 형식을 반환합니다
func ConversionMimeType(fileType library.FileType) (string, bool) {
	switch fileType {
	case library.FileTypeExcel:
		return mimeSpreadsheet, true
	case library.FileTypePowerPoint:
		return mimePresentation, true
	default:
		return "", false
	}
}

func (c *Client) driveService(ctx context.Context, ts oauth2.TokenSource) (*drive.Service, error) {
	svc, err := drive.NewService(ctx, c.options(ts, "/drive/v3/")...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}
	return svc, nil
}

// UploadToDrive는 Excel/PowerPoint 파일을 Sheets/Slides로 변환해 업로드합니다
func (c *Client) UploadToDrive(ctx context.Context, ts oauth2.TokenSource, file *library.File) (*DriveFile, error) {
	target, ok := ConversionMimeType(file.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConvertible, file.Type)
	}

	content, contentType, err := file.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to decode file %s: %w", file.ID, err)
	}

	ctx = withContext(ctx)
	svc, err := c.driveService(ctx, ts)
	if err != nil {
		return nil, err
	}

	created, err := svc.Files.Create(&drive.File{Name: file.Name, MimeType: target}).
		Media(bytes.NewReader(content), googleapi.ContentType(contentType)).
		Fields("id", "name", "mimeType", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to drive: %w", file.Name, err)
	}

	log.Info().Str("file_id", file.ID).Str("drive_id", created.Id).Str("mime_type", target).Msg("file uploaded to drive")
	return &DriveFile{
		ID:          created.Id,
		Name:        created.Name,
		MimeType:    created.MimeType,
		WebViewLink: created.WebViewLink,
	}, nil
}

// ListRootFiles는 마이 드라이브 최상위의 파일을 조회합니다
func (c *Client) ListRootFiles(ctx context.Context, ts oauth2.TokenSource, pageSize int64) ([]DriveFile, error) {
	if pageSize <= 0 {
		pageSize = defaultListPageSize
	}

	ctx = withContext(ctx)
	svc, err := c.driveService(ctx, ts)
	if err != nil {
		return nil, err
	}

	list, err := svc.Files.List().
		Q("'root' in parents and trashed = false").
		Fields("files(id, name, mimeType, webViewLink, modifiedTime)").
		PageSize(pageSize).
		OrderBy("name").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list drive files: %w", err)
	}

	files := make([]DriveFile, 0, len(list.Files))
	for _, f := range list.Files {
		df := DriveFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType, WebViewLink: f.WebViewLink}
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			df.ModifiedTime = t
		}
		files = append(files, df)
	}
	return files, nil
}
