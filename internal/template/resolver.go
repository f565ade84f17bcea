package template

import (
	apperrors "notification-workers/internal/common/errors"
)

// resolveTranslation picks the content to render for a requested language.
// Resolution order: exact language match on the current version, then the
// default language, then NO_TRANSLATION_AVAILABLE. There is no partial
// matching; "en-GB" does not fall back to "en" implicitly, only the final
// default-language step does.
func resolveTranslation(detail *TemplateDetail, language string) (*resolvedContent, error) {
	if language == "" {
		language = DefaultLanguage
	}

	if tr := findTranslation(detail.Translations, language); tr != nil {
		return contentFrom(detail, tr), nil
	}

	if language != DefaultLanguage {
		if tr := findTranslation(detail.Translations, DefaultLanguage); tr != nil {
			return contentFrom(detail, tr), nil
		}
	}

	return nil, apperrors.NewNoTranslationAvailableError(detail.Template.TemplateID, language)
}

func findTranslation(translations []TemplateTranslation, language string) *TemplateTranslation {
	for i := range translations {
		if translations[i].LanguageCode == language {
			return &translations[i]
		}
	}
	return nil
}

func contentFrom(detail *TemplateDetail, tr *TemplateTranslation) *resolvedContent {
	return &resolvedContent{
		version:  detail.Current.Version,
		language: tr.LanguageCode,
		subject:  tr.Subject,
		body:     tr.Body,
	}
}
