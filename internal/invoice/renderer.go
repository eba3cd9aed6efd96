package invoice

import (
	"bytes"
	"fmt"
	"math"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog/log"
	"taeu.kr/invoicedesk/internal/library"
)

const (
	fontFamily   = "NotoSansJP"
	coreFamily   = "Helvetica"
	sealRadius   = 10.0
	sealMargin   = 20.0
	rightEdge    = 200.0
	amountRight  = 100.0
	leftEdge     = 10.0
	tableTop     = 118.0
	rowHeight    = 10.0
	maxSealFont  = 12.0
	minSealFont  = 5.0
	sealPaddingW = 4.0
)

var columnWidths = []float64{80, 25, 40, 45}

// Fonts는 청구서에 사용할 TTF 폰트 경로입니다
type Fonts struct {
	Regular string
	Bold    string
}

type Renderer struct {
	fonts Fonts
}

func NewRenderer(fonts Fonts) *Renderer {
	if fonts.Regular == "" {
		log.Warn().Msg("invoice font is not configured, falling back to core font (Japanese text will not render)")
	}
	return &Renderer{fonts: fonts}
}

// setupFonts는 폰트를 등록하고 (패밀리, 굵은 스타일)을 반환합니다
func (r *Renderer) setupFonts(pdf *gofpdf.Fpdf) (string, string) {
	if r.fonts.Regular == "" {
		return coreFamily, "B"
	}

	pdf.AddUTF8Font(fontFamily, "", r.fonts.Regular)
	if r.fonts.Bold == "" {
		return fontFamily, ""
	}
	pdf.AddUTF8Font(fontFamily, "B", r.fonts.Bold)
	return fontFamily, "B"
}

// Render는 청구서 PDF를 생성합니다
func (r *Renderer) Render(data library.InvoiceData, summary Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	family, bold := r.setupFonts(pdf)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// 제목
	pdf.SetFont(family, bold, 16)
	pdf.Text(90, 20, "請求書")

	pdf.SetFont(family, "", 12)
	client := orUnset(data.Client) + " 様"
	pdf.Text(leftEdge, 30, client)
	pdf.SetLineWidth(0.3)
	pdf.Line(leftEdge, 31.5, leftEdge+pdf.GetStringWidth(client), 31.5)

	textRight(pdf, rightEdge, 30, formatDate(data.Date))
	textRight(pdf, rightEdge, 40, orUnset(data.CompanyName))
	textRight(pdf, rightEdge, 50, "請求書番号: "+orUnset(data.InvoiceNumber))
	textRight(pdf, rightEdge, 60, "案件名: "+orUnset(data.Subject))
	pdf.Text(leftEdge, 70, "適格請求書発行事業者登録番号: "+orUnset(data.RegistrationNumber))

	drawAmountDue(pdf, family, bold, summary)

	pdf.SetFont(family, "", 12)
	pdf.Text(leftEdge, 110, "お支払い期限: "+formatDueDate(data.DueDate))

	if data.Seal != "" {
		drawSeal(pdf, family, data.Seal)
	}

	finalY := drawTable(pdf, family, bold, summary)

	pdf.SetFont(family, "", 10)
	pdf.Text(leftEdge, finalY+10, "振込先:  "+orUnset(data.BankDetails))
	pdf.SetXY(leftEdge, finalY+15)
	pdf.MultiCell(rightEdge-leftEdge, 6, "備考:  "+orUnset(data.Notes), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func textRight(pdf *gofpdf.Fpdf, right, y float64, text string) {
	pdf.Text(right-pdf.GetStringWidth(text), y, text)
}

const amountDueLabel = "ご請求金額（税込）:"

// amountDueY는 청구 금액 줄의 y 좌표입니다. 세금 별도이면 아래(y=100)에 그립니다.
func amountDueY(taxIncluded bool) float64 {
	if taxIncluded {
		return 80
	}
	return 100
}

func drawAmountDue(pdf *gofpdf.Fpdf, family, bold string, summary Summary) {
	y := amountDueY(summary.IsTaxIncluded)

	pdf.SetFont(family, bold, 14)
	pdf.Text(leftEdge, y, amountDueLabel)
	textRight(pdf, amountRight, y, formatYen(summary.AmountDue))
	pdf.SetLineWidth(0.5)
	pdf.Line(leftEdge, y+2, amountRight, y+2)
	pdf.SetLineWidth(0.3)
}

// fitSealFontSize는 인감 원 안에 들어가도록 글자 크기를 줄입니다
func fitSealFontSize(measure func(size float64) float64) float64 {
	size := maxSealFont
	for measure(size) > sealRadius*2-sealPaddingW && size > minSealFont {
		size--
	}
	return size
}

func drawSeal(pdf *gofpdf.Fpdf, family, seal string) {
	pageW, pageH := pdf.GetPageSize()
	cx, cy := pageW-sealMargin, pageH-sealMargin

	pdf.SetDrawColor(255, 0, 0)
	pdf.SetTextColor(255, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Circle(cx, cy, sealRadius, "D")

	size := fitSealFontSize(func(size float64) float64 {
		pdf.SetFont(family, "", size)
		return pdf.GetStringWidth(seal)
	})
	pdf.SetFont(family, "", size)
	// pt -> mm 로 환산해 세로 중앙 정렬
	pdf.Text(cx-pdf.GetStringWidth(seal)/2, cy+size*0.3528/3, seal)

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
}

// drawTable은 명세 테이블을 그리고 마지막 y 좌표를 반환합니다
func drawTable(pdf *gofpdf.Fpdf, family, bold string, summary Summary) float64 {
	pdf.SetXY(leftEdge, tableTop)
	pdf.SetFont(family, bold, 11)
	pdf.SetFillColor(230, 230, 230)
	for i, header := range []string{"品名", "数量", "単価", "税込小計"} {
		pdf.CellFormat(columnWidths[i], rowHeight, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 11)
	rows := len(summary.Lines)
	if rows < minTableRows {
		rows = minTableRows
	}
	for i := 0; i < rows; i++ {
		pdf.SetX(leftEdge)
		if i >= len(summary.Lines) {
			for _, w := range columnWidths {
				pdf.CellFormat(w, rowHeight, "", "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
			continue
		}

		line := summary.Lines[i]
		quantity := formatNumber(line.Item.Quantity)
		if line.Item.Unit != "" {
			quantity += " " + line.Item.Unit
		}
		pdf.CellFormat(columnWidths[0], rowHeight, line.Item.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(columnWidths[1], rowHeight, quantity, "1", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[2], rowHeight, formatYen(line.Item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(columnWidths[3], rowHeight, formatYen(math.Floor(line.TotalWithTax)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelWidth := columnWidths[0] + columnWidths[1] + columnWidths[2]
	pdf.SetX(leftEdge)
	pdf.CellFormat(labelWidth, rowHeight, "消費税 (10%)", "1", 0, "R", false, 0, "")
	pdf.CellFormat(columnWidths[3], rowHeight, formatYen(summary.TaxRow), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	pdf.SetX(leftEdge)
	pdf.SetFont(family, bold, 11)
	pdf.CellFormat(labelWidth, rowHeight, "合計金額（税込）", "1", 0, "R", true, 0, "")
	pdf.CellFormat(columnWidths[3], rowHeight, formatYen(summary.GrandTotal), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	return pdf.GetY()
}
