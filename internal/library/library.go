package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vincent-petithory/dataurl"
)

// TrashFolderID는 휴지통 폴더의 고정 ID입니다
const TrashFolderID = "trash"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrTrashFolder  = errors.New("operation not allowed on trash folder")
	ErrNoHomeFolder = errors.New("file has no home folder")
)

type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsTrash   bool      `json:"isTrash"`
	CreatedAt time.Time `json:"-"`
}

type FileType string

const (
	FileTypeExcel      FileType = "excel"
	FileTypePowerPoint FileType = "powerpoint"
	FileTypeWord       FileType = "word"
	FileTypePDF        FileType = "pdf"
)

// FileState는 파일의 휴지통 상태입니다
type FileState string

const (
	StateActive  FileState = "active"
	StateTrashed FileState = "trashed"
)

type File struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             FileType   `json:"type"`
	LastModified     time.Time  `json:"lastModified"`
	Data             string     `json:"-"`
	State            FileState  `json:"state"`
	OriginalFolderID string     `json:"originalFolderId"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty"`
	Metadata         *Metadata  `json:"metadata,omitempty"`
}

// Deleted는 상태로부터 유도되는 0/1 플래그입니다
func (f *File) Deleted() int {
	if f.State == StateTrashed {
		return 1
	}
	return 0
}

func (f *File) IsHidden() bool {
	return f.State == StateTrashed
}

func (f File) MarshalJSON() ([]byte, error) {
	type fileAlias File
	return json.Marshal(struct {
		fileAlias
		Deleted  int  `json:"deleted"`
		IsHidden bool `json:"isHidden"`
	}{
		fileAlias: fileAlias(f),
		Deleted:   f.Deleted(),
		IsHidden:  f.IsHidden(),
	})
}

// Content는 data URI를 디코딩한 원본 바이트와 content type을 반환합니다
func (f *File) Content() ([]byte, string, error) {
	return DecodeData(f.Data)
}

type Metadata struct {
	InvoiceData *InvoiceData `json:"invoiceData,omitempty"`
}

type InvoiceData struct {
	InvoiceNumber      string        `json:"invoiceNumber,omitempty"`
	Client             string        `json:"client,omitempty"`
	CompanyName        string        `json:"companyName,omitempty"`
	Subject            string        `json:"subject,omitempty"`
	Date               string        `json:"date,omitempty"`
	DueDate            string        `json:"dueDate,omitempty"`
	RegistrationNumber string        `json:"registrationNumber,omitempty"`
	BankDetails        string        `json:"bankDetails,omitempty"`
	Notes              string        `json:"notes,omitempty"`
	Seal               string        `json:"seal,omitempty"`
	TotalAmount        *float64      `json:"totalAmount,omitempty"`
	IsTaxIncluded      bool          `json:"isTaxIncluded"`
	Items              []InvoiceItem `json:"items,omitempty"`
}

type InvoiceItem struct {
	ID            int64   `json:"id"`
	ProductNumber int     `json:"productNumber"`
	ProductName   string  `json:"productName"`
	Quantity      float64 `json:"quantity"`
	UnitPrice     float64 `json:"unitPrice"`
	Unit          string  `json:"unit"`
}

func (i InvoiceItem) Subtotal() float64 {
	return i.Quantity * i.UnitPrice
}

// NewID는 밀리초 타임스탬프와 랜덤 접미사로 재사용되지 않는 ID를 생성합니다
func NewID(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), uuid.NewString()[:8])
}

// EncodeData는 바이트를 base64 data URI로 인코딩합니다
func EncodeData(content []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return dataurl.New(content, mediaType).String()
}

func DecodeData(data string) ([]byte, string, error) {
	du, err := dataurl.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode file data: %w", err)
	}
	return du.Data, du.ContentType(), nil
}
