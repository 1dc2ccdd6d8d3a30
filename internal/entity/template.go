package entity

// Template is a named extraction configuration referenced by runs.
// Timestamps are ISO-8601 strings; created_at is immutable once first set.
type Template struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	Description     string `db:"description" json:"description"`
	SchemaJSON      string `db:"schema_json" json:"schema_json"`
	ExtractionRules string `db:"extraction_rules" json:"extraction_rules"`
	IsActive        bool   `db:"is_active" json:"is_active"`
	CreatedAt       string `db:"created_at" json:"created_at"`
	UpdatedAt       string `db:"updated_at" json:"updated_at"`
}
