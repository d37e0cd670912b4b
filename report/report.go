// Package report lays out an experiment record as a PDF: a header, the
// metrics, then every stored artifact in order.
//
// Positions follow a bottom-up cursor in points on a Letter page (the cursor
// starts near the top and decreases), converted to fpdf's top-down
// coordinates when drawing.
package report

import (
	"bytes"
	"fmt"
	"strconv"

	"codeberg.org/go-pdf/fpdf"

	"github.com/YuminosukeSato/scigolab/store"
)

// Layout constants in points.
const (
	margin        = 50.0
	metricIndent  = 70.0
	lineStep      = 20.0
	imageBoxW     = 500.0
	imageBoxH     = 200.0
	imageGap      = 40.0
	bottomLimit   = 50.0
	metricsHeadAt = 160.0
	metricsTopAt  = 180.0
)

// Filename is the download name of an experiment's report.
func Filename(id int64) string {
	return "experiment_" + strconv.FormatInt(id, 10) + ".pdf"
}

// placement is where one image box goes: its page and the distance of the
// box's top edge from the top of that page.
type placement struct {
	page int
	top  float64
}

// placeImages paginates n image boxes. cursor is the bottom-up position
// after the metrics section.
func placeImages(n int, cursor, pageHeight float64) []placement {
	out := make([]placement, 0, n)
	page := 0
	for i := 0; i < n; i++ {
		if cursor-imageBoxH < bottomLimit {
			page++
			cursor = pageHeight - margin
		}
		out = append(out, placement{page: page, top: pageHeight - cursor})
		cursor -= imageBoxH + imageGap
	}
	return out
}

// fit scales w×h to fit inside the image box, centered.
func fit(w, h float64) (x, dy, fw, fh float64) {
	if w <= 0 || h <= 0 {
		return margin, 0, imageBoxW, imageBoxH
	}
	scale := imageBoxW / w
	if s := imageBoxH / h; s < scale {
		scale = s
	}
	fw, fh = w*scale, h*scale
	return margin + (imageBoxW-fw)/2, (imageBoxH - fh) / 2, fw, fh
}

func build(rec *store.ExperimentRecord) (*fpdf.Fpdf, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(fmt.Sprintf("Experiment Report - ID %d", rec.ID), false)
	pdf.SetCreationDate(rec.CreatedAt)
	pdf.SetModificationDate(rec.CreatedAt)
	_, height := pdf.GetPageSize()

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(margin, 50, fmt.Sprintf("Experiment Report - ID %d", rec.ID))

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(margin, 80, "Algorithm: "+rec.Algorithm)
	pdf.Text(margin, 100, "Target: "+rec.Target)
	pdf.Text(margin, 120, "Created At: "+rec.CreatedAt.Format("2006-01-02 15:04:05"))

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(margin, metricsHeadAt, "Metrics:")
	pdf.SetFont("Helvetica", "", 12)
	top := metricsTopAt
	for _, name := range rec.Metrics.Names() {
		v, ok := rec.Metrics.Get(name)
		if !ok {
			continue
		}
		pdf.Text(metricIndent, top, fmt.Sprintf("%s: %.4f", name, v))
		top += lineStep
	}

	cursor := height - top - imageGap
	places := placeImages(len(rec.Artifacts), cursor, height)
	page := 0
	for i, a := range rec.Artifacts {
		p := places[i]
		for page < p.page {
			pdf.AddPage()
			page++
		}
		name := fmt.Sprintf("artifact-%d-%s", i, a.Label)
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(a.Data))
		if pdf.Err() {
			return nil, pdf.Error()
		}
		x, dy, w, h := fit(info.Width(), info.Height())
		pdf.ImageOptions(name, x, p.top+dy, w, h, false, opts, 0, "")
	}
	if pdf.Err() {
		return nil, pdf.Error()
	}
	return pdf, nil
}

// Assemble renders rec as a PDF. It only reads rec.
func Assemble(rec *store.ExperimentRecord) ([]byte, error) {
	pdf, err := build(rec)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
