package notifier

import (
	"bytes"
	"fmt"
	"io"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/DaniDevGS/triven-shop/internal/orders"
)

// WriteReceiptPDF renders the receipt as a one page A4 document with a QR
// code of the confirmation code.
func WriteReceiptPDF(w io.Writer, r orders.Receipt) error {
	qrPNG, err := qrcode.Encode(r.Code, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Triven - Purchase receipt")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Order code: %s", r.Code))
	pdf.Ln(8)
	pdf.Cell(0, 8, tr(fmt.Sprintf("Customer: %s", r.Buyer)))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", r.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Ln(8)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", r.Status))
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(90, 8, "Product", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Unit", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, item := range r.Items {
		pdf.CellFormat(90, 8, tr(item.Title), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, "$"+item.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, "$"+item.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(140, 10, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 10, "$"+r.Total.StringFixed(2), "1", 1, "R", false, 0, "")

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 20, 40, 40, false, imageOpts, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}
