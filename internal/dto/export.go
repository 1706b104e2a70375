package dto

// ExportQuery selects the export format plus the same filters as the mapping table.
type ExportQuery struct {
	Format string `form:"format"`
	Term   string `form:"q"`
	Status string `form:"status"`
	CLOID  string `form:"cloId"`
}
