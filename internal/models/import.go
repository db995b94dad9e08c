package models

// ImportRow is one parsed CSV line waiting to be submitted. Rows are never
// mutated after parsing.
type ImportRow struct {
	Line        int       `json:"line"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Km          int       `json:"km"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Status      CarStatus `json:"status"`
	Featured    bool      `json:"featured"`
	Images      []string  `json:"images"`
}

// VehicleLabel is how a row is named in error reports
func (r ImportRow) VehicleLabel() string {
	return r.Brand + " " + r.Model
}

// RowError is one failed submission
type RowError struct {
	Line    int    `json:"line"`
	Vehicle string `json:"vehicle"`
	Message string `json:"message"`
}

// ImportOutcome aggregates one import run.
// SuccessCount + len(Errors) + NotAttempted == Total.
type ImportOutcome struct {
	Total        int        `json:"total"`
	SuccessCount int        `json:"success_count"`
	Errors       []RowError `json:"errors"`
	Cancelled    bool       `json:"cancelled"`
	NotAttempted int        `json:"not_attempted"`
}
