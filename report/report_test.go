package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/YuminosukeSato/scigolab/artifacts"
	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/store"
)

func tinyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func sampleRecord(t *testing.T, nArtifacts int) *store.ExperimentRecord {
	rec := &store.ExperimentRecord{
		ID:        7,
		CreatedAt: time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC),
		Target:    "label",
		Algorithm: "logistic_regression",
		TaskKind:  catalog.Classification,
		Status:    store.StatusDone,
		Metrics: experiment.MetricBundle{
			Task:   catalog.Classification,
			Values: map[string]float64{"accuracy": 0.75, "precision": 0.8, "recall": 0.75, "f1": 0.7333},
		},
	}
	for i := 0; i < nArtifacts; i++ {
		rec.Artifacts = append(rec.Artifacts, artifacts.Artifact{
			Label:       artifacts.LabelConfusionMatrix,
			ContentType: artifacts.ContentTypePNG,
			Data:        tinyPNG(t, 40, 40),
		})
	}
	return rec
}

func TestFilename(t *testing.T) {
	if got := Filename(42); got != "experiment_42.pdf" {
		t.Errorf("Filename(42) = %q", got)
	}
}

func TestPlaceImages(t *testing.T) {
	const height = 792.0
	// Four metric lines leave the cursor at 792 - 180 - 80 - 40.
	got := placeImages(3, 492, height)
	want := []placement{
		{page: 0, top: 300},
		{page: 0, top: 540},
		{page: 1, top: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("placeImages = %+v, want %+v", got, want)
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name          string
		w, h          float64
		wantX, wantDy float64
		wantW, wantH  float64
	}{
		{name: "square", w: 288, h: 288, wantX: 200, wantDy: 0, wantW: 200, wantH: 200},
		{name: "wide", w: 1000, h: 100, wantX: 50, wantDy: 50, wantW: 500, wantH: 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, dy, w, h := fit(tt.w, tt.h)
			if !near(x, tt.wantX) || !near(dy, tt.wantDy) || !near(w, tt.wantW) || !near(h, tt.wantH) {
				t.Errorf("fit = (%v, %v, %v, %v), want (%v, %v, %v, %v)",
					x, dy, w, h, tt.wantX, tt.wantDy, tt.wantW, tt.wantH)
			}
		})
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestAssemble(t *testing.T) {
	rec := sampleRecord(t, 3)
	before := *rec
	before.Artifacts = append([]artifacts.Artifact(nil), rec.Artifacts...)

	pdf, err := build(rec)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if pdf.PageCount() != 2 {
		t.Errorf("pages = %d, want 2", pdf.PageCount())
	}

	out, err := Assemble(rec)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if !reflect.DeepEqual(*rec, before) {
		t.Error("Assemble modified the record")
	}
}

func TestAssemble_NoArtifacts(t *testing.T) {
	pdf, err := build(sampleRecord(t, 0))
	if err != nil {
		t.Fatal(err)
	}
	if pdf.PageCount() != 1 {
		t.Errorf("pages = %d, want 1", pdf.PageCount())
	}
}

func TestAssemble_BadImage(t *testing.T) {
	rec := sampleRecord(t, 1)
	rec.Artifacts[0].Data = []byte("not a png")
	if _, err := Assemble(rec); err == nil {
		t.Error("expected an error for undecodable image data")
	}
}
