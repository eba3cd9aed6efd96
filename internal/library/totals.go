package library

import "math"

const TaxRate = 0.1

// Total은 폴더 합계 표시 정보입니다
type Total struct {
	Amount  float64 `json:"amount"`
	Visible bool    `json:"visible"`
}

// TaxInclusiveAmount는 invoiceData의 세금 포함 금액을 반환합니다
func TaxInclusiveAmount(data *InvoiceData) (float64, bool) {
	if data == nil || data.TotalAmount == nil {
		return 0, false
	}
	amount := *data.TotalAmount
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, true
	}
	if data.IsTaxIncluded {
		return amount, true
	}
	return math.Round(amount * (1 + TaxRate)), true
}

// FolderTotal은 PDF 파일들의 세금 포함 합계를 계산합니다
func FolderTotal(files []*File) float64 {
	var total float64
	for _, f := range files {
		if f.Type != FileTypePDF || f.Metadata == nil {
			continue
		}
		if amount, ok := TaxInclusiveAmount(f.Metadata.InvoiceData); ok {
			total += amount
		}
	}
	return total
}

func hasPDF(files []*File) bool {
	for _, f := range files {
		if f.Type == FileTypePDF {
			return true
		}
	}
	return false
}
