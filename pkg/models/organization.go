package models

import "time"

// Organization is the tenant owning workflows and the document usage counter.
type Organization struct {
	ID             string    `json:"id"              yaml:"id"`
	Name           string    `json:"name"            yaml:"name"`
	DocumentsLimit int       `json:"documents_limit" yaml:"documents_limit"` // <= 0 means unlimited
	DocumentsUsed  int       `json:"documents_used"  yaml:"-"`
	CreatedAt      time.Time `json:"created_at"      yaml:"-"`
	UpdatedAt      time.Time `json:"updated_at"      yaml:"-"`
}

// CanGenerateDocument reports whether the organization still has quota left.
func (o *Organization) CanGenerateDocument() bool {
	return o.DocumentsLimit <= 0 || o.DocumentsUsed < o.DocumentsLimit
}

// Connection stores the credentials of an external integration such as a CRM.
type Connection struct {
	ID             string            `json:"id"                    yaml:"id"`
	OrganizationID string            `json:"organization_id"       yaml:"organization_id"`
	Provider       string            `json:"provider"              yaml:"provider"`
	Name           string            `json:"name,omitempty"        yaml:"name"`
	Credentials    map[string]string `json:"credentials,omitempty" yaml:"credentials"`
	Config         map[string]any    `json:"config,omitempty"      yaml:"config"`
	CreatedAt      time.Time         `json:"created_at"            yaml:"-"`
	UpdatedAt      time.Time         `json:"updated_at"            yaml:"-"`
}
