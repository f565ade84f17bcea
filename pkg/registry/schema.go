// pkg/registry/schema.go
package registry

// TemplateRegistry is the seed catalog format. Deployments check a registry
// file into their config repo and run the seeder against a fresh database.
type TemplateRegistry struct {
	Version     string         `json:"version"`
	LastUpdated string         `json:"lastUpdated"`
	Templates   []SeedTemplate `json:"templates"`
}

// SeedTemplate describes one template to create, with optional extra
// translations beyond the default-language content.
type SeedTemplate struct {
	TemplateID   string            `json:"templateId"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Channel      string            `json:"channel"`
	Category     string            `json:"category,omitempty"`
	Language     string            `json:"language,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	Body         string            `json:"body"`
	Translations []SeedTranslation `json:"translations,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
}

// SeedTranslation is localized content attached to a seed template.
type SeedTranslation struct {
	Language string `json:"language"`
	Subject  string `json:"subject,omitempty"`
	Body     string `json:"body"`
}
