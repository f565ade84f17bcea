// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects entries the seeder could not create.
func (r *TemplateRegistry) Validate() error {
	seen := make(map[string]struct{}, len(r.Templates))
	for i, t := range r.Templates {
		if t.TemplateID == "" {
			return fmt.Errorf("template %d: templateId is required", i)
		}
		if _, dup := seen[t.TemplateID]; dup {
			return fmt.Errorf("template %q: duplicate templateId", t.TemplateID)
		}
		seen[t.TemplateID] = struct{}{}

		if t.Body == "" {
			return fmt.Errorf("template %q: body is required", t.TemplateID)
		}
		switch t.Channel {
		case "email", "push", "sms":
		default:
			return fmt.Errorf("template %q: unknown channel %q", t.TemplateID, t.Channel)
		}
		for _, tr := range t.Translations {
			if tr.Language == "" || tr.Body == "" {
				return fmt.Errorf("template %q: translations need language and body", t.TemplateID)
			}
		}
	}
	return nil
}
