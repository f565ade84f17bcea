package template

import "time"

// Template is the logical template record. Content lives on versions and
// translations; the template row carries identity and lifecycle state.
// template_id is unique among active templates only, so a soft-deleted id
// can be reused.
type Template struct {
	ID             string    `json:"id"`
	TemplateID     string    `json:"template_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	Channel        string    `json:"channel"`
	Category       string    `json:"category,omitempty"`
	CurrentVersion string    `json:"current_version"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TemplateVersion is an immutable content snapshot. Exactly one version per
// template carries IsCurrent at any moment.
type TemplateVersion struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Variables []string  `json:"variables"`
	IsCurrent bool      `json:"is_current"`
	CreatedAt time.Time `json:"created_at"`
}

// TemplateTranslation holds localized content, keyed by template and
// language. At most one active translation exists per pair.
type TemplateTranslation struct {
	ID           string    `json:"id"`
	TemplatePK   string    `json:"template_pk"`
	LanguageCode string    `json:"language_code"`
	Subject      string    `json:"subject,omitempty"`
	Body         string    `json:"body"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateTemplateInput is the payload for Create.
type CreateTemplateInput struct {
	TemplateID  string `json:"template_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Channel     string `json:"channel"`
	Category    string `json:"category,omitempty"`
	Subject     string `json:"subject,omitempty"`
	Body        string `json:"body"`
	Language    string `json:"language,omitempty"`
}

// UpdateTemplateInput carries the mutable fields for Update. Nil pointers
// mean "leave unchanged"; a non-nil Body or Subject forces a new version.
type UpdateTemplateInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Subject     *string `json:"subject,omitempty"`
	Body        *string `json:"body,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// ListFilter narrows List results. Filters combine with AND; Search
// matches name, description and template_id case-insensitively.
type ListFilter struct {
	Channel  string
	Category string
	Search   string
	Limit    int
	Offset   int
}

// RenderResult is the output of Render: fully substituted content plus the
// language and version that were actually used, which may differ from the
// requested language when the fallback applied.
type RenderResult struct {
	TemplateID    string   `json:"template_id"`
	Version       string   `json:"version"`
	Language      string   `json:"language"`
	Subject       string   `json:"subject,omitempty"`
	Body          string   `json:"body"`
	VariablesUsed []string `json:"variables_used"`
}

// resolvedContent is the internal product of translation resolution before
// variable substitution.
type resolvedContent struct {
	version  string
	language string
	subject  string
	body     string
}
