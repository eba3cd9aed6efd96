package library

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Upload는 업로드된 파일 하나입니다
type Upload struct {
	Name         string
	ContentType  string
	LastModified time.Time
	Content      []byte
}

type IngestResult struct {
	Files    []*File  `json:"files"`
	Warnings []string `json:"warnings"`
}

var supportedContentTypes = map[string]FileType{
	"application/vnd.ms-excel": FileTypeExcel,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FileTypeExcel,
	"application/vnd.ms-powerpoint":                                             FileTypePowerPoint,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FileTypePowerPoint,
	"application/msword": FileTypeWord,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FileTypeWord,
	"application/pdf": FileTypePDF,
}

const contentTypeCSV = "text/csv"

// ResolveFileType은 content type을 지원 파일 종류로 변환합니다
func (s *Service) ResolveFileType(contentType string) (FileType, bool) {
	if contentType == contentTypeCSV {
		return FileTypeExcel, s.opts.AcceptCSV
	}
	ft, ok := supportedContentTypes[contentType]
	return ft, ok
}

func baseContentType(value string) string {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mediaType
}

// DetectContentType은 선언된 content type이 없거나 모호할 때 내용으로 판별합니다
func DetectContentType(declared string, content []byte) string {
	ct := baseContentType(declared)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return baseContentType(mimetype.Detect(content).String())
}

func isArchive(u Upload) bool {
	ct := DetectContentType(u.ContentType, u.Content)
	if ct == "application/zip" || ct == "application/x-zip-compressed" {
		return true
	}
	// OOXML 문서도 zip이므로 확장자까지 확인
	return ct == "application/octet-stream" && strings.EqualFold(path.Ext(u.Name), ".zip")
}

// expandArchive는 zip(디렉터리 드롭)의 모든 파일 엔트리를 개별 업로드로 펼칩니다
func expandArchive(u Upload, maxBytes int64) ([]Upload, []string, error) {
	zr, err := zip.NewReader(bytes.NewReader(u.Content), int64(len(u.Content)))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive %s: %w", u.Name, err)
	}

	var uploads []Upload
	var warnings []string
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || isHiddenEntry(entry.Name) {
			continue
		}
		if maxBytes > 0 && entry.UncompressedSize64 > uint64(maxBytes) {
			warnings = append(warnings, fmt.Sprintf("%s: ファイルサイズが大きすぎます", entry.Name))
			continue
		}

		content, err := readEntry(entry, maxBytes)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: 読み込みに失敗しました", entry.Name))
			log.Warn().Err(err).Str("archive", u.Name).Str("entry", entry.Name).Msg("failed to read archive entry")
			continue
		}
		uploads = append(uploads, Upload{
			Name:         path.Base(entry.Name),
			ContentType:  mime.TypeByExtension(path.Ext(entry.Name)),
			LastModified: entry.Modified,
			Content:      content,
		})
	}
	return uploads, warnings, nil
}

func readEntry(entry *zip.File, maxBytes int64) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if maxBytes > 0 && int64(len(content)) > maxBytes {
		return nil, fmt.Errorf("entry exceeds %d bytes", maxBytes)
	}
	return content, nil
}

func isHiddenEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(name), ".")
}

// Ingest는 업로드를 검증해 폴더에 저장합니다. 지원하지 않는 형식은 경고만 남기고 건너뜁니다.
func (s *Service) Ingest(ctx context.Context, folderID string, uploads []Upload) (*IngestResult, error) {
	if _, err := s.requireHomeFolder(ctx, folderID); err != nil {
		return nil, err
	}

	result := &IngestResult{Files: []*File{}, Warnings: []string{}}

	expanded := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		if !isArchive(u) {
			expanded = append(expanded, u)
			continue
		}
		entries, warnings, err := expandArchive(u, s.opts.MaxUploadBytes)
		if err != nil {
			log.Warn().Err(err).Str("file", u.Name).Msg("archive rejected")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: 展開できませんでした", u.Name))
			continue
		}
		result.Warnings = append(result.Warnings, warnings...)
		expanded = append(expanded, entries...)
	}

	pending := make([]*File, len(expanded))
	for i, u := range expanded {
		ct := DetectContentType(u.ContentType, u.Content)
		fileType, ok := s.ResolveFileType(ct)
		if !ok {
			log.Warn().Str("file", u.Name).Str("content_type", ct).Msg("unsupported file type rejected")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: サポートされていないファイル形式です", u.Name))
			continue
		}

		name, err := validateName(u.Name)
		if err != nil {
			log.Warn().Err(err).Str("file", u.Name).Msg("invalid file name rejected")
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: ファイル名が不正です", u.Name))
			continue
		}

		lastModified := u.LastModified
		if lastModified.IsZero() {
			lastModified = s.now()
		}
		pending[i] = &File{
			ID:               NewID(s.now()),
			Name:             name,
			Type:             fileType,
			LastModified:     lastModified,
			Data:             EncodeData(u.Content, ct),
			State:            StateActive,
			OriginalFolderID: folderID,
		}
		if fileType == FileTypePDF {
			pending[i].Metadata = &Metadata{InvoiceData: &InvoiceData{}}
		}
	}

	if s.extractor != nil {
		s.extractInvoices(ctx, expanded, pending)
	}

	for _, file := range pending {
		if file == nil {
			continue
		}
		added, err := s.AddFile(ctx, file)
		if err != nil {
			return result, err
		}
		result.Files = append(result.Files, added)
	}
	return result, nil
}

// extractInvoices는 PDF 금액 추출을 제한된 동시성으로 실행합니다
func (s *Service) extractInvoices(ctx context.Context, uploads []Upload, pending []*File) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.ExtractConcurrency)

	for i, file := range pending {
		if file == nil || file.Type != FileTypePDF {
			continue
		}
		content := uploads[i].Content
		g.Go(func() error {
			data := s.extractor.ExtractInvoice(gctx, content)
			file.Metadata = &Metadata{InvoiceData: &data}
			return nil
		})
	}
	_ = g.Wait()
}
