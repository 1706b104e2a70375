package models

import "time"

// CLO is a Course Learning Outcome.
type CLO struct {
	ID          string    `db:"id" json:"id"`
	Seq         int64     `db:"seq" json:"-"`
	Course      string    `db:"course" json:"course"`
	Description string    `db:"description" json:"description"`
	Weight      int       `db:"weight" json:"weight"`
	LinkedPLO   *string   `db:"linked_plo" json:"linkedPlo,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// CLOPatch carries optional field updates; nil fields are left untouched.
type CLOPatch struct {
	Course      *string
	Description *string
	Weight      *int
	LinkedPLO   *string
}

// CLOSummary enriches a CLO with its mapping statistics for list views.
type CLOSummary struct {
	CLO
	MappedUnits   int      `json:"mappedUnits"`
	AvgConfidence *float64 `json:"avgConfidence,omitempty"`
}

// WeightWarning reports a course whose CLO weights do not add up to 100.
type WeightWarning struct {
	Course string `json:"course"`
	Total  int    `json:"total"`
}

// CourseWeight summarises CLO weights for one course.
type CourseWeight struct {
	Course   string `json:"course"`
	CLOCount int    `json:"cloCount"`
	Total    int    `json:"total"`
	Balanced bool   `json:"balanced"`
}
