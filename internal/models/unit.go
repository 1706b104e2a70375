package models

// Unit is a TPQI professional-standard unit from the external catalog.
type Unit struct {
	UnitCode string `yaml:"unitCode" json:"unitCode"`
	Title    string `yaml:"title" json:"title"`
	Career   string `yaml:"career" json:"career"`
	Level    string `yaml:"level" json:"level"`
}

// Career groups catalog units.
type Career struct {
	Name      string `json:"name"`
	UnitCount int    `json:"unitCount"`
}
