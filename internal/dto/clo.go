package dto

// CLOListQuery filters and paginates the CLO list.
type CLOListQuery struct {
	Term     string `form:"q"`
	Page     int    `form:"page"`
	PageSize int    `form:"pageSize"`
}
