package entity

import "github.com/parchlabs/extraction-tracker/constants"

// Run is one execution of a template (or ad hoc rules) against a document.
//
// StartedAt and CompletedAt stay empty strings until the matching lifecycle
// transition writes them. TemplateID is a logical reference to Template.ID;
// nothing enforces it at the storage layer. Provider and DocumentKey are
// genuinely optional, unlike the timestamp fields where empty string means
// "not yet".
type Run struct {
	ID           string              `db:"id" json:"id"`
	Mode         constants.RunMode   `db:"mode" json:"mode"`
	TemplateID   string              `db:"template_id" json:"template_id"`
	Status       constants.RunStatus `db:"status" json:"status"`
	Filename     string              `db:"filename" json:"filename"`
	MimeType     string              `db:"mime_type" json:"mime_type"`
	ByteSize     int64               `db:"byte_size" json:"byte_size"`
	PageCount    int                 `db:"page_count" json:"page_count"`
	TimingJSON   string              `db:"timing_json" json:"timing_json"`
	StatsJSON    string              `db:"stats_json" json:"stats_json"`
	ErrorMessage string              `db:"error_message" json:"error_message"`
	CreatedAt    string              `db:"created_at" json:"created_at"`
	StartedAt    string              `db:"started_at" json:"started_at"`
	CompletedAt  string              `db:"completed_at" json:"completed_at"`
	Provider     *string             `db:"provider" json:"provider,omitempty"`
	DocumentKey  *string             `db:"document_key" json:"document_key,omitempty"`
}
