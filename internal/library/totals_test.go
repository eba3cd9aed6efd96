package library

import (
	"math"
	"testing"
)

func pdfWithTotal(total float64, taxIncluded bool) *File {
	return &File{
		Type:     FileTypePDF,
		Metadata: &Metadata{InvoiceData: &InvoiceData{TotalAmount: &total, IsTaxIncluded: taxIncluded}},
	}
}

func TestFolderTotal(t *testing.T) {
	noAmount := &File{Type: FileTypePDF, Metadata: &Metadata{InvoiceData: &InvoiceData{}}}
	excel := &File{Type: FileTypeExcel, Metadata: &Metadata{InvoiceData: &InvoiceData{TotalAmount: ptr(5000.0)}}}

	testCases := []struct {
		name  string
		files []*File
		want  float64
	}{
		{name: "empty", files: nil, want: 0},
		{name: "tax included", files: []*File{pdfWithTotal(2500, true)}, want: 2500},
		{name: "tax excluded", files: []*File{pdfWithTotal(2500, false)}, want: 2750},
		{name: "rounds half away from zero", files: []*File{pdfWithTotal(5, false)}, want: 6},
		{name: "mixed", files: []*File{pdfWithTotal(2500, true), pdfWithTotal(2500, false)}, want: 5250},
		{name: "skips missing amount and non-pdf", files: []*File{noAmount, excel, pdfWithTotal(100, true)}, want: 100},
		{name: "NaN counts as zero", files: []*File{pdfWithTotal(math.NaN(), false), pdfWithTotal(100, true)}, want: 100},
		{name: "nil metadata", files: []*File{{Type: FileTypePDF}}, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := FolderTotal(tc.files)
			if got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			// 같은 입력은 같은 결과
			if again := FolderTotal(tc.files); again != got {
				t.Fatalf("total is not deterministic: %v vs %v", got, again)
			}
		})
	}
}

func ptr[T any](v T) *T {
	return &v
}
