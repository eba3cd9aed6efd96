package invoice

import (
	"errors"
	"testing"

	"taeu.kr/invoicedesk/internal/library"
)

func sampleItems() []library.InvoiceItem {
	return []library.InvoiceItem{
		{ID: 1, ProductNumber: 1, ProductName: "Design", Quantity: 2, UnitPrice: 1000},
		{ID: 2, ProductNumber: 2, ProductName: "Review", Quantity: 1, UnitPrice: 500},
	}
}

func TestSummarize(t *testing.T) {
	testCases := []struct {
		name        string
		taxIncluded bool
		want        Summary
	}{
		{
			name:        "tax included",
			taxIncluded: true,
			want:        Summary{TotalAmount: 2500, AmountDue: 2500, TableTotal: 2500, TaxRow: 228, GrandTotal: 2500},
		},
		{
			name:        "tax excluded",
			taxIncluded: false,
			want:        Summary{TotalAmount: 2500, TableTotal: 2750, TaxRow: 250, GrandTotal: 2750},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Summarize(sampleItems(), tc.taxIncluded)

			if got.TotalAmount != tc.want.TotalAmount {
				t.Fatalf("total amount: expected %v, got %v", tc.want.TotalAmount, got.TotalAmount)
			}
			if got.TableTotal != tc.want.TableTotal {
				t.Fatalf("table total: expected %v, got %v", tc.want.TableTotal, got.TableTotal)
			}
			if got.TaxRow != tc.want.TaxRow {
				t.Fatalf("tax row: expected %v, got %v", tc.want.TaxRow, got.TaxRow)
			}
			if got.GrandTotal != tc.want.GrandTotal {
				t.Fatalf("grand total: expected %v, got %v", tc.want.GrandTotal, got.GrandTotal)
			}
			if len(got.Lines) != 2 {
				t.Fatalf("expected 2 lines, got %d", len(got.Lines))
			}
		})
	}
}

func TestSummarize_AmountDueAndFolderTotalAgree(t *testing.T) {
	for _, taxIncluded := range []bool{true, false} {
		summary := Summarize(sampleItems(), taxIncluded)
		total := summary.TotalAmount
		file := &library.File{
			Type:     library.FileTypePDF,
			Metadata: &library.Metadata{InvoiceData: &library.InvoiceData{TotalAmount: &total, IsTaxIncluded: taxIncluded}},
		}

		want := 2500.0
		if !taxIncluded {
			want = 2750
		}
		if got := library.FolderTotal([]*library.File{file}); got != want {
			t.Fatalf("taxIncluded=%v: expected folder total %v, got %v", taxIncluded, want, got)
		}
		if got := summary.AmountDue; got < want-0.01 || got > want+0.01 {
			t.Fatalf("taxIncluded=%v: expected amount due %v, got %v", taxIncluded, want, got)
		}
	}
}

func TestSummarize_LineTax(t *testing.T) {
	included := Summarize([]library.InvoiceItem{{Quantity: 1, UnitPrice: 1100}}, true)
	if included.Lines[0].Tax != 100 || included.Lines[0].TotalWithTax != 1100 {
		t.Fatalf("unexpected tax-included line: %+v", included.Lines[0])
	}

	excluded := Summarize([]library.InvoiceItem{{Quantity: 1, UnitPrice: 1000}}, false)
	if excluded.Lines[0].Tax != 100 {
		t.Fatalf("unexpected tax-excluded tax: %+v", excluded.Lines[0])
	}
}

func TestFileName(t *testing.T) {
	testCases := map[string]string{
		"INV-001": "請求書_INV-001.pdf",
		"":        "請求書_未設定.pdf",
		"  ":      "請求書_未設定.pdf",
		"2024/05": "請求書_2024_05.pdf",
	}
	for number, want := range testCases {
		if got := FileName(number); got != want {
			t.Fatalf("FileName(%q): expected %q, got %q", number, want, got)
		}
	}
}

func TestRequestValidate(t *testing.T) {
	req := Request{Items: sampleItems()}
	if err := req.Validate(); !errors.Is(err, ErrFolderRequired) {
		t.Fatalf("expected folder required, got %v", err)
	}

	req.FolderID = "f1"
	if err := req.Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req.Items = append(req.Items, library.InvoiceItem{ProductName: "Refund", Quantity: 1, UnitPrice: -100})
	if err := req.Validate(); !errors.Is(err, library.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestFormatting(t *testing.T) {
	if got := formatYen(2750.0000000000005); got != "¥2,750" {
		t.Fatalf("formatYen: got %q", got)
	}
	if got := formatNumber(1.5); got != "1.50" {
		t.Fatalf("formatNumber: got %q", got)
	}
	if got := formatDate("2024-05-01"); got != "2024/5/1" {
		t.Fatalf("formatDate: got %q", got)
	}
	if got := formatDueDate("2024-05-31"); got != "2024年05月31日" {
		t.Fatalf("formatDueDate: got %q", got)
	}
	if got := formatDate(""); got != unsetLabel {
		t.Fatalf("formatDate empty: got %q", got)
	}
	if got := formatDueDate("next month"); got != "next month" {
		t.Fatalf("formatDueDate unparsable: got %q", got)
	}
}
