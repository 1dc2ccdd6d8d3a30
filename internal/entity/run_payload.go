package entity

// RunPayload holds the large result artifacts for a run, keyed by the owning
// run's id. Stored apart from Run so the metadata row stays cheap to scan.
type RunPayload struct {
	RunID                   string `db:"run_id" json:"run_id"`
	MDResults               string `db:"md_results" json:"md_results"`
	LayoutDetailsJSON       string `db:"layout_details_json" json:"layout_details_json"`
	LayoutVisualizationJSON string `db:"layout_visualization_json" json:"layout_visualization_json"`
	ExtractedFieldsJSON     string `db:"extracted_fields_json" json:"extracted_fields_json"`
	RawProviderJSON         string `db:"raw_provider_json" json:"raw_provider_json"`
}
