package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/export"
)

type mappingViewer interface {
	List(ctx context.Context, query MappingQuery) ([]models.MappingView, error)
}

var mappingExportHeaders = []string{"CLO", "Course", "Description", "Unit", "Title", "Career", "Level", "Confidence", "Status"}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the mapping table for download.
type ExportService struct {
	mappings  mappingViewer
	renderers map[export.Format]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(mappings mappingViewer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		mappings: mappings,
		renderers: map[export.Format]export.Renderer{
			export.FormatCSV: export.NewCSVExporter(),
			export.FormatPDF: export.NewPDFExporter(map[string]float64{"Description": 4, "Title": 2.5, "Course": 2, "Career": 2}),
		},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Mappings renders the mappings matching query in the requested format.
func (s *ExportService) Mappings(ctx context.Context, format export.Format, query MappingQuery) (*ExportFile, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	views, err := s.mappings.List(ctx, query)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   "CLO to TPQI mappings",
		Headers: mappingExportHeaders,
		Rows:    make([]map[string]string, 0, len(views)),
	}
	for _, view := range views {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"CLO":         view.CLOID,
			"Course":      view.Course,
			"Description": view.CLODescription,
			"Unit":        view.UnitCode,
			"Title":       view.UnitTitle,
			"Career":      view.Career,
			"Level":       view.Level,
			"Confidence":  strconv.FormatFloat(view.Confidence, 'f', -1, 64),
			"Status":      string(view.Status),
		})
	}

	data, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("mappings exported", zap.String("format", string(format)), zap.Int("rows", len(views)))
	return &ExportFile{
		Filename:    fmt.Sprintf("clo-mappings-%s.%s", s.now().Format("20060102-150405"), format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}
