package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/turtacn/alchemist/pkg/errors"
)

// writePredictionPDF renders a one-page reaction report. The core PDF fonts
// are Latin-1, so arrows and Greek letters are spelled out.
func writePredictionPDF(path string, v *PredictionView) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("alchemist reaction report", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Reaction prediction", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, time.Now().UTC().Format(time.RFC1123), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Reactants: "+strings.Join(v.Reactants, ", "), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Courier", "B", 13)
	pdf.MultiCell(0, 7, latin1(v.Equation), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Standard Gibbs free energy: %.1f %s", v.DeltaG, v.Unit), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Combinations tried: %d, balanced: %d", v.Combinations, v.Valid), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, "Candidate products", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for i, c := range v.Candidates {
		pdf.CellFormat(10, 6, fmt.Sprintf("%d.", i+1), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, c, "", 1, "L", false, 0, "")
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return errors.Wrap(err, errors.CodeStorageError, "cannot write PDF report").WithDetail(path)
	}
	return nil
}

func latin1(s string) string {
	return strings.NewReplacer("→", "->", "Δ", "d").Replace(s)
}
