package invoice

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"taeu.kr/invoicedesk/internal/library"
)

// 값이 비어 있을 때 표시하는 문자열
const unsetLabel = "未設定"

// minTableRows는 명세 테이블의 최소 행 수입니다
const minTableRows = 5

var (
	ErrFolderRequired = errors.New("フォルダが選択されていません。")
	ErrRender         = errors.New("failed to render invoice")
	ErrNotInvoice     = errors.New("file has no invoice data")
)

// Request는 청구서 작성 폼 입력입니다
type Request struct {
	FolderID      string                `json:"folderId"`
	InvoiceData   library.InvoiceData   `json:"invoiceData"`
	Items         []library.InvoiceItem `json:"items"`
	IsTaxIncluded bool                  `json:"isTaxIncluded"`
}

func (req *Request) Validate() error {
	if strings.TrimSpace(req.FolderID) == "" {
		return ErrFolderRequired
	}

	err := validation.ValidateStruct(req,
		validation.Field(&req.Items, validation.Each(validation.By(validateItem))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", library.ErrValidation, err)
	}
	return nil
}

func validateItem(value any) error {
	item, ok := value.(library.InvoiceItem)
	if !ok {
		return errors.New("invalid item")
	}
	return validation.ValidateStruct(&item,
		validation.Field(&item.ProductName, validation.RuneLength(0, 200)),
		validation.Field(&item.Quantity, validation.Min(0.0)),
		validation.Field(&item.UnitPrice, validation.Min(0.0)),
	)
}

type Line struct {
	Item         library.InvoiceItem
	Subtotal     float64
	Tax          float64
	TotalWithTax float64
}

// Summary는 청구서 금액 계산 결과입니다
type Summary struct {
	Lines         []Line
	IsTaxIncluded bool
	// TotalAmount는 세금 조정 전 소계 합계로 저장되는 값입니다
	TotalAmount float64
	AmountDue   float64
	TableTotal  float64
	TaxRow      float64
	GrandTotal  float64
}

// Summarize는 명세와 세금 포함 여부로 청구 금액을 계산합니다
func Summarize(items []library.InvoiceItem, taxIncluded bool) Summary {
	s := Summary{
		Lines:         make([]Line, 0, len(items)),
		IsTaxIncluded: taxIncluded,
	}

	for _, item := range items {
		subtotal := item.Subtotal()
		line := Line{Item: item, Subtotal: subtotal}
		if taxIncluded {
			line.Tax = subtotal / 11
			line.TotalWithTax = subtotal
		} else {
			line.Tax = subtotal * library.TaxRate
			line.TotalWithTax = subtotal * (1 + library.TaxRate)
		}
		s.Lines = append(s.Lines, line)
		s.TotalAmount += subtotal
		s.TableTotal += math.Floor(line.TotalWithTax)
	}

	s.AmountDue = s.TotalAmount
	if !taxIncluded {
		s.AmountDue = s.TotalAmount * (1 + library.TaxRate)
	}
	s.TaxRow = math.Ceil(s.TableTotal / 11)
	s.GrandTotal = math.Ceil(s.TableTotal)
	return s
}

// FileName은 청구서 PDF 파일 이름을 만듭니다
func FileName(invoiceNumber string) string {
	number := strings.TrimSpace(invoiceNumber)
	if number == "" {
		number = unsetLabel
	}
	number = strings.NewReplacer("/", "_", "\\", "_").Replace(number)
	return "請求書_" + number + ".pdf"
}

func orUnset(value string) string {
	if strings.TrimSpace(value) == "" {
		return unsetLabel
	}
	return value
}

func formatYen(amount float64) string {
	return message.NewPrinter(language.Japanese).Sprintf("¥%d", int64(math.Round(amount)))
}

func formatNumber(value float64) string {
	p := message.NewPrinter(language.Japanese)
	if value == math.Trunc(value) {
		return p.Sprintf("%d", int64(value))
	}
	return p.Sprintf("%.2f", value)
}

// formatDate는 발행일을 2006/1/2 형식으로 표시합니다
func formatDate(value string) string {
	if strings.TrimSpace(value) == "" {
		return unsetLabel
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return value
	}
	return t.Format("2006/1/2")
}

func formatDueDate(value string) string {
	if strings.TrimSpace(value) == "" {
		return unsetLabel
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return value
	}
	return t.Format("2006年01月02日")
}
