package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
	"github.com/Phurinho/outcome-career-align/pkg/export"
)

func TestExportServiceMappingsCSV(t *testing.T) {
	w := newWorkflow(t, nil)
	ctx := context.Background()
	clo := w.createCLO(t, "Data Structures", "Apply sorting, quickly", 25)
	w.pending(t, clo.ID, "ICT001", 92)

	svc := NewExportService(w.mapSvc, nil)
	file, err := svc.Mappings(ctx, export.FormatCSV, MappingQuery{})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "CLO,Course,Description,Unit,Title,Career,Level,Confidence,Status", lines[0])
	assert.Contains(t, lines[1], `"Apply sorting, quickly",ICT001,Algorithm Implementation,Software Developer,Level 5,92,pending`)
}

func TestExportServiceCSVNeutralisesFormulaDescriptions(t *testing.T) {
	w := newWorkflow(t, nil)
	clo := w.createCLO(t, "Data Structures", "=cmd|' /C calc'!A0", 25)
	w.pending(t, clo.ID, "ICT001", 92)

	file, err := NewExportService(w.mapSvc, nil).Mappings(context.Background(), export.FormatCSV, MappingQuery{})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",'=cmd|' /C calc'!A0,ICT001,")
}

func TestExportServiceMappingsPDF(t *testing.T) {
	w := newWorkflow(t, nil)
	clo := w.createCLO(t, "Data Structures", "Apply sorting", 25)
	w.pending(t, clo.ID, "ICT001", 92)

	file, err := NewExportService(w.mapSvc, nil).Mappings(context.Background(), export.FormatPDF, MappingQuery{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	w := newWorkflow(t, nil)
	_, err := NewExportService(w.mapSvc, nil).Mappings(context.Background(), "xlsx", MappingQuery{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
