package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Phurinho/outcome-career-align/internal/models"
)

// catalogFile is the on-disk layout of a TPQI unit catalog.
type catalogFile struct {
	Units []models.Unit `yaml:"units"`
}

// DefaultUnits seeds the catalog when no file is configured.
var DefaultUnits = []models.Unit{
	{UnitCode: "ICT001", Title: "Algorithm Implementation", Career: "Software Developer", Level: "Level 5"},
	{UnitCode: "ICT008", Title: "Web Application Development", Career: "Web Developer", Level: "Level 4"},
	{UnitCode: "ICT015", Title: "Database Design & Optimization", Career: "Database Administrator", Level: "Level 4"},
	{UnitCode: "ICT022", Title: "Data Analysis & Visualization", Career: "Data Analyst", Level: "Level 4"},
	{UnitCode: "ICT031", Title: "User Interface Design", Career: "UI/UX Designer", Level: "Level 3"},
	{UnitCode: "ICT045", Title: "Continuous Integration & Deployment", Career: "DevOps Engineer", Level: "Level 5"},
}

// CatalogRepository serves read-only TPQI reference data.
type CatalogRepository struct {
	units  []models.Unit
	byCode map[string]models.Unit
}

// NewCatalogRepository builds a catalog from units, rejecting blank or duplicate codes.
func NewCatalogRepository(units []models.Unit) (*CatalogRepository, error) {
	repo := &CatalogRepository{
		units:  make([]models.Unit, 0, len(units)),
		byCode: make(map[string]models.Unit, len(units)),
	}
	for _, unit := range units {
		unit.UnitCode = strings.TrimSpace(unit.UnitCode)
		unit.Career = strings.TrimSpace(unit.Career)
		if unit.UnitCode == "" {
			return nil, fmt.Errorf("catalog unit without code: %q", unit.Title)
		}
		if unit.Career == "" {
			return nil, fmt.Errorf("catalog unit %s without career", unit.UnitCode)
		}
		if _, dup := repo.byCode[unit.UnitCode]; dup {
			return nil, fmt.Errorf("duplicate catalog unit %s", unit.UnitCode)
		}
		repo.byCode[unit.UnitCode] = unit
		repo.units = append(repo.units, unit)
	}
	return repo, nil
}

// LoadCatalog reads a YAML catalog from path, falling back to DefaultUnits when path is empty.
func LoadCatalog(path string) (*CatalogRepository, error) {
	if path == "" {
		return NewCatalogRepository(DefaultUnits)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML catalog document.
func ParseCatalog(raw []byte) (*CatalogRepository, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalogRepository(file.Units)
}

// Units returns every unit in catalog order.
func (r *CatalogRepository) Units(_ context.Context) ([]models.Unit, error) {
	return append([]models.Unit(nil), r.units...), nil
}

// Unit looks up a unit by code.
func (r *CatalogRepository) Unit(_ context.Context, code string) (models.Unit, bool, error) {
	unit, ok := r.byCode[strings.TrimSpace(code)]
	return unit, ok, nil
}

// UnitsByCareer returns units of a career, matched case-insensitively.
func (r *CatalogRepository) UnitsByCareer(_ context.Context, career string) ([]models.Unit, error) {
	career = strings.TrimSpace(career)
	result := make([]models.Unit, 0)
	for _, unit := range r.units {
		if strings.EqualFold(unit.Career, career) {
			result = append(result, unit)
		}
	}
	return result, nil
}

// Careers lists distinct careers sorted by name.
func (r *CatalogRepository) Careers(_ context.Context) ([]models.Career, error) {
	counts := make(map[string]int)
	for _, unit := range r.units {
		counts[unit.Career]++
	}
	careers := make([]models.Career, 0, len(counts))
	for name, count := range counts {
		careers = append(careers, models.Career{Name: name, UnitCount: count})
	}
	sort.Slice(careers, func(i, j int) bool { return careers[i].Name < careers[j].Name })
	return careers, nil
}
