package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"taeu.kr/invoicedesk/internal/library"
)

type FileStore interface {
	GetFile(ctx context.Context, id string) (*library.File, error)
	AddFile(ctx context.Context, file *library.File) (*library.File, error)
	ReplaceFile(ctx context.Context, id string, replacement *library.File) (*library.File, error)
}

type PDFRenderer interface {
	Render(data library.InvoiceData, summary Summary) ([]byte, error)
}

// Document는 생성된 청구서 PDF와 저장된 파일 레코드입니다
type Document struct {
	File     *library.File
	FileName string
	Content  []byte
}

type Service struct {
	files    FileStore
	renderer PDFRenderer
}

func NewService(files FileStore, renderer PDFRenderer) *Service {
	return &Service{
		files:    files,
		renderer: renderer,
	}
}

// build는 PDF를 렌더링하고 저장할 파일 레코드를 준비합니다
func (s *Service) build(req Request) (*Document, *library.File, error) {
	summary := Summarize(req.Items, req.IsTaxIncluded)

	data := req.InvoiceData
	data.Items = req.Items
	data.IsTaxIncluded = req.IsTaxIncluded
	total := summary.TotalAmount
	data.TotalAmount = &total

	content, err := s.renderer.Render(data, summary)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrRender, err)
	}

	name := FileName(data.InvoiceNumber)
	file := &library.File{
		Name:             name,
		Type:             library.FileTypePDF,
		Data:             library.EncodeData(content, "application/pdf"),
		OriginalFolderID: req.FolderID,
		Metadata:         &library.Metadata{InvoiceData: &data},
	}
	return &Document{FileName: name, Content: content}, file, nil
}

// Create는 청구서를 렌더링해 저장한 뒤 반환합니다. 저장에 실패하면 PDF도 반환하지 않습니다.
func (s *Service) Create(ctx context.Context, req Request) (*Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, file, err := s.build(req)
	if err != nil {
		return nil, err
	}

	saved, err := s.files.AddFile(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to persist invoice: %w", err)
	}
	doc.File = saved

	log.Info().
		Str("file_id", saved.ID).
		Str("folder_id", saved.OriginalFolderID).
		Float64("total_amount", *file.Metadata.InvoiceData.TotalAmount).
		Msg("invoice created")
	return doc, nil
}

// Regenerate는 기존 청구서 레코드를 같은 ID로 다시 생성합니다
func (s *Service) Regenerate(ctx context.Context, fileID string, req Request) (*Document, error) {
	existing, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if existing.Type != library.FileTypePDF {
		return nil, fmt.Errorf("%w: file %s is not a pdf", ErrNotInvoice, fileID)
	}

	// 원래 폴더를 유지
	req.FolderID = existing.OriginalFolderID
	if err := req.Validate(); err != nil {
		return nil, err
	}

	doc, file, err := s.build(req)
	if err != nil {
		return nil, err
	}

	saved, err := s.files.ReplaceFile(ctx, fileID, file)
	if err != nil {
		return nil, fmt.Errorf("failed to persist invoice: %w", err)
	}
	doc.File = saved

	log.Info().Str("file_id", saved.ID).Msg("invoice regenerated")
	return doc, nil
}

// Draft는 저장된 invoiceData로 편집 폼을 채웁니다
func (s *Service) Draft(ctx context.Context, fileID string) (*Request, error) {
	file, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.Metadata == nil || file.Metadata.InvoiceData == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInvoice, fileID)
	}

	data := *file.Metadata.InvoiceData
	items := data.Items
	if items == nil {
		items = []library.InvoiceItem{}
	}
	data.Items = nil
	data.TotalAmount = nil

	return &Request{
		FolderID:      file.OriginalFolderID,
		InvoiceData:   data,
		Items:         items,
		IsTaxIncluded: data.IsTaxIncluded,
	}, nil
}

// IsClientError는 요청 입력 문제로 인한 에러인지 판별합니다
func IsClientError(err error) bool {
	return errors.Is(err, ErrFolderRequired) || errors.Is(err, library.ErrValidation) || errors.Is(err, ErrNotInvoice)
}
