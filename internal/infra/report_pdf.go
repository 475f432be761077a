package infra

// report_pdf.go renders a product's price ledger as a one-document PDF report
// using go-pdf/fpdf: header with the product and its market analysis, then one
// row per ledger entry, oldest first.

import (
	"fmt"
	"io"

	"repricer/internal/dto"

	"github.com/go-pdf/fpdf"
)

// RenderPriceReport writes the price history report for detail to w.
func RenderPriceReport(w io.Writer, detail *dto.ProductDetailResponse) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(contentW, 8, tr(detail.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr(fmt.Sprintf("Listing %s  |  Category %s", detail.ExternalID, detail.Category)), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Current price: "+detail.CurrentPrice.StringFixed(2), "", 1, "L", false, 0, "")
	if detail.RecommendedPrice != nil {
		line := "Last recommendation: " + detail.RecommendedPrice.StringFixed(2)
		if detail.ConfidenceScore != nil {
			line += fmt.Sprintf(" (confidence %.2f)", *detail.ConfidenceScore)
		}
		pdf.CellFormat(contentW, 5, line, "", 1, "L", false, 0, "")
	}
	if m := detail.MarketAnalysis; m != nil {
		pdf.CellFormat(contentW, 5, fmt.Sprintf("Category average %s over %d listings, trend %s",
			m.CategoryAverage.StringFixed(2), m.CompetitorCount, m.MarketTrend), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Ledger table ─────────────────────────────────────────────────────────
	colTime := contentW * 0.22
	colPrice := contentW * 0.13
	colSource := contentW * 0.15
	colReason := contentW - colTime - colPrice - colSource

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(colTime, 6, "Timestamp (UTC)", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colPrice, 6, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colSource, 6, "Source", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colReason, 6, "Reason", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, e := range detail.PriceHistory {
		reason := e.Reason
		if len(reason) > 70 {
			reason = reason[:69] + "..."
		}
		pdf.CellFormat(colTime, 5, e.Timestamp.UTC().Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
		pdf.CellFormat(colPrice, 5, e.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colSource, 5, e.Source, "", 0, "C", false, 0, "")
		pdf.CellFormat(colReason, 5, tr(reason), "", 1, "L", false, 0, "")
	}
	if len(detail.PriceHistory) == 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(contentW, 5, "No price history recorded.", "", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render report: %w", err)
	}
	return nil
}
