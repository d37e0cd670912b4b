package server

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/YuminosukeSato/scigolab/catalog"
	"github.com/YuminosukeSato/scigolab/experiment"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/service"
	"github.com/YuminosukeSato/scigolab/store"
)

// DefaultAlgorithm is used when a run request names none.
const DefaultAlgorithm = "linear_regression"

// maxUploadBytes caps a dataset upload.
const maxUploadBytes = 64 << 20

type algorithmInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	BestFor     string `json:"best_for"`
}

type algorithmInfoResponse struct {
	Classification map[string]algorithmInfo `json:"classification_algorithms"`
	Regression     map[string]algorithmInfo `json:"regression_algorithms"`
}

func (s *Server) handleAlgorithmInfo(c *gin.Context) {
	groups := catalog.List()
	c.JSON(http.StatusOK, algorithmInfoResponse{
		Classification: infoMap(groups.Classification),
		Regression:     infoMap(groups.Regression),
	})
}

func infoMap(ds []catalog.AlgorithmDescriptor) map[string]algorithmInfo {
	m := make(map[string]algorithmInfo, len(ds))
	for _, d := range ds {
		m[d.ID] = algorithmInfo{Type: d.Kind.String(), Description: d.Description, BestFor: d.BestFor}
	}
	return m
}

type uploadResponse struct {
	DatasetID int64    `json:"dataset_id"`
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
}

func (s *Server) handleUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, errors.NewValidationError("file", "multipart field is required", nil))
		return
	}
	if fh.Size > maxUploadBytes {
		writeError(c, errors.NewValidationError("file", "file is too large", fh.Size))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, errors.Wrap(err, "open upload"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(c, errors.Wrap(err, "read upload"))
		return
	}

	rec, err := s.svc.UploadDataset(c.Request.Context(), identity(c).UserID, fh.Filename, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, uploadResponse{DatasetID: rec.ID, Name: rec.Name, Columns: columnNames(rec)})
}

func columnNames(rec *store.DatasetRecord) []string {
	names := make([]string, len(rec.Columns))
	for i, col := range rec.Columns {
		names[i] = col.Name
	}
	return names
}

func (s *Server) dataset(c *gin.Context) (*store.DatasetRecord, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	rec, err := s.svc.Dataset(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return rec, true
}

func (s *Server) handleColumns(c *gin.Context) {
	rec, ok := s.dataset(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": columnNames(rec)})
}

func (s *Server) handleInfo(c *gin.Context) {
	rec, ok := s.dataset(c)
	if !ok {
		return
	}
	dtypes := make(map[string]string, len(rec.Columns))
	for _, col := range rec.Columns {
		dtypes[col.Name] = col.DType
	}
	c.JSON(http.StatusOK, gin.H{"columns": columnNames(rec), "dtypes": dtypes})
}

type runRequest struct {
	DatasetID int64    `json:"dataset_id" binding:"required,gte=1"`
	Target    string   `json:"target" binding:"required"`
	Features  []string `json:"features"`
	Split     *float64 `json:"split"`
	Algorithm string   `json:"algorithm"`
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errors.NewValidationError("body", err.Error(), nil))
		return
	}
	split := experiment.DefaultSplitFraction
	if req.Split != nil {
		split = *req.Split
	}
	algorithm := req.Algorithm
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}

	rec, err := s.svc.Run(c.Request.Context(), identity(c).UserID, service.RunRequest{
		DatasetID: req.DatasetID,
		Target:    req.Target,
		Features:  req.Features,
		Split:     split,
		Algorithm: algorithm,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiment_id": rec.ID})
}

type artifactView struct {
	Label       string `json:"label"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// experimentView is the stored record with its artifacts base64-encoded.
// Plots repeats the artifact data in artifact order.
type experimentView struct {
	ID        int64              `json:"id"`
	DatasetID int64              `json:"dataset_id"`
	CreatedAt string             `json:"created_at"`
	Target    string             `json:"target"`
	Features  []string           `json:"features"`
	Algorithm string             `json:"algorithm"`
	TaskKind  catalog.TaskKind   `json:"task_kind"`
	Status    store.Status       `json:"status"`
	Error     string             `json:"error,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
	Plots     []string           `json:"plots"`
	Artifacts []artifactView     `json:"artifacts"`
}

type experimentSummary struct {
	ID        int64              `json:"id"`
	CreatedAt string             `json:"created_at"`
	Target    string             `json:"target"`
	Algorithm string             `json:"algorithm"`
	Status    store.Status       `json:"status"`
	Metrics   map[string]float64 `json:"metrics"`
}

func metricsOf(rec *store.ExperimentRecord) map[string]float64 {
	if rec.Metrics.Values == nil {
		return map[string]float64{}
	}
	return rec.Metrics.Values
}

func viewOf(rec *store.ExperimentRecord) experimentView {
	v := experimentView{
		ID:        rec.ID,
		DatasetID: rec.DatasetID,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		Target:    rec.Target,
		Features:  rec.Features,
		Algorithm: rec.Algorithm,
		TaskKind:  rec.TaskKind,
		Status:    rec.Status,
		Error:     rec.Error,
		Metrics:   metricsOf(rec),
		Plots:     make([]string, 0, len(rec.Artifacts)),
		Artifacts: make([]artifactView, 0, len(rec.Artifacts)),
	}
	if v.Features == nil {
		v.Features = []string{}
	}
	for _, a := range rec.Artifacts {
		enc := base64.StdEncoding.EncodeToString(a.Data)
		v.Plots = append(v.Plots, enc)
		v.Artifacts = append(v.Artifacts, artifactView{Label: a.Label, ContentType: a.ContentType, Data: enc})
	}
	return v
}

func (s *Server) handleGet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rec, err := s.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(rec))
}

func (s *Server) handleList(c *gin.Context) {
	recs, err := s.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]experimentSummary, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		out = append(out, experimentSummary{
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
			Target:    rec.Target,
			Algorithm: rec.Algorithm,
			Status:    rec.Status,
			Metrics:   metricsOf(rec),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleDownload(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	pdf, name, err := s.svc.Report(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		writeError(c, errors.NewValidationError("id", "must be a positive integer", raw))
		return 0, false
	}
	return id, true
}
