package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"github.com/SymptomAI/symptom-ai/internal/analysis"
)

// Service renders a recorded analysis as a downloadable PDF report, the
// printable counterpart of the results view.
type Service struct {
	fontPaths []string
	now       func() time.Time
}

func NewService() *Service {
	return &Service{
		// Common DejaVuSans locations across distros.
		fontPaths: []string{
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
		now: time.Now,
	}
}

func (s *Service) Render(symptoms string, result analysis.Result) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range s.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("load report font: %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Symptom Analysis Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", s.now().Format("01/02/2006 15:04")))
	pdf.Br(15)
	s.writeWrapped(&pdf, fmt.Sprintf("Symptoms: %s", symptoms), 12)
	pdf.Br(10)

	s.section(&pdf, "Possible Conditions")
	for _, c := range result.Conditions {
		s.writeWrapped(&pdf, fmt.Sprintf("- %s (%s, %s severity): %s", c.Name, c.Likelihood, c.Severity, c.Description), 12)
		pdf.Br(3)
	}
	pdf.Br(10)

	if len(result.OTCMedications) > 0 {
		s.section(&pdf, "Recommended Medications")
		for _, med := range result.OTCMedications {
			s.writeWrapped(&pdf, "- "+med, 12)
		}
		pdf.Br(10)
	}

	if len(result.HomeRemedies) > 0 {
		s.section(&pdf, "Home Remedies")
		for _, remedy := range result.HomeRemedies {
			s.writeWrapped(&pdf, "- "+remedy, 12)
		}
		pdf.Br(10)
	}

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Timeline: %s", result.Timeline))
	pdf.Br(12)
	pdf.Cell(nil, fmt.Sprintf("Estimated Cost: %s", result.EstimatedCost))

	pdf.SetY(800)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	s.writeWrapped(&pdf, "DISCLAIMER: This analysis is for informational purposes only and should not replace professional medical advice.", 10)

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write report pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Service) section(pdf *gopdf.GoPdf, title string) {
	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return
	}
	pdf.Cell(nil, title)
	pdf.Br(15)
	_ = pdf.SetFont("DejaVu", "", 11)
}

func (s *Service) writeWrapped(pdf *gopdf.GoPdf, text string, lineHeight float64) {
	lines, _ := pdf.SplitText(text, 500)
	for _, line := range lines {
		pdf.Cell(nil, line)
		pdf.Br(lineHeight)
	}
}
