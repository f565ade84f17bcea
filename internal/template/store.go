package template

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/common/metrics"
)

// DefaultLanguage is the fallback language for translation resolution and
// the language assigned to content supplied on Create and Update.
const DefaultLanguage = "en"

const initialVersion = "1.0.0"

// fallbackVersion is used when the stored current version does not parse as
// semver, so version history is never blocked by one bad row.
const fallbackVersion = "1.0.1"

// EventPublisher publishes template lifecycle events. The store treats
// publish failures as non-fatal: the mutation has already committed.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}, correlationID string) error
}

// Cache is the read cache for rendered template lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// TemplateDetail is a template joined with its current version and its
// active translations. This is the unit the cache stores.
type TemplateDetail struct {
	Template     Template              `json:"template"`
	Current      TemplateVersion       `json:"current"`
	Translations []TemplateTranslation `json:"translations"`
}

// Store persists templates in Postgres with an optional Redis read cache
// and optional lifecycle event publishing.
type Store struct {
	db       *sql.DB
	renderer *Renderer
	logger   logger.Logger
	cache    Cache
	cacheTTL time.Duration
	events   EventPublisher
}

// StoreOption configures optional Store collaborators.
type StoreOption func(*Store)

// WithCache enables the read cache with the given TTL.
func WithCache(cache Cache, ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithEventPublisher enables lifecycle event publishing.
func WithEventPublisher(events EventPublisher) StoreOption {
	return func(s *Store) {
		s.events = events
	}
}

func NewStore(db *sql.DB, log logger.Logger, opts ...StoreOption) *Store {
	s := &Store{
		db:       db,
		renderer: NewRenderer(),
		logger:   log,
		cacheTTL: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new template. The first version is 1.0.0, marked
// current, with a translation in the supplied language (default "en")
// mirroring its content. An active duplicate template_id fails with
// DUPLICATE_TEMPLATE_ID; soft-deleted ids are reusable.
func (s *Store) Create(ctx context.Context, input CreateTemplateInput) (*Template, error) {
	language := input.Language
	if language == "" {
		language = DefaultLanguage
	}

	variables := joinVariables(
		s.renderer.ExtractVariables(input.Body),
		s.renderer.ExtractVariables(input.Subject),
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("create_template", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	tmpl := &Template{
		ID:             uuid.NewString(),
		TemplateID:     input.TemplateID,
		Name:           input.Name,
		Description:    input.Description,
		Channel:        input.Channel,
		Category:       input.Category,
		CurrentVersion: initialVersion,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notification_templates
			(id, template_id, name, description, channel, category, current_version, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		tmpl.ID, tmpl.TemplateID, tmpl.Name, tmpl.Description, tmpl.Channel, tmpl.Category,
		tmpl.CurrentVersion, tmpl.IsActive, tmpl.CreatedAt, tmpl.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.NewDuplicateTemplateIDError(input.TemplateID)
		}
		return nil, apperrors.NewQueryExecutionFailedError("create_template", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO template_versions
			(id, template_pk, version, subject, body, variables, is_current, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), tmpl.ID, initialVersion, input.Subject, input.Body,
		pq.Array(variables), true, now,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("create_template_version", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO template_translations
			(id, template_pk, language_code, subject, body, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.NewString(), tmpl.ID, language, input.Subject, input.Body, true, now, now,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("create_template_translation", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("create_template", err)
	}

	s.logger.Info("Template created", map[string]interface{}{
		"template_id": tmpl.TemplateID,
		"channel":     tmpl.Channel,
		"version":     initialVersion,
	})

	s.publishEvent(ctx, "template.created", map[string]interface{}{
		"template_id": tmpl.TemplateID,
		"channel":     tmpl.Channel,
		"version":     initialVersion,
	})

	return tmpl, nil
}

// Get returns an active template with its current version and active
// translations. Inactive and unknown templates both surface as
// TEMPLATE_NOT_FOUND.
func (s *Store) Get(ctx context.Context, templateID string) (*TemplateDetail, error) {
	if detail := s.cacheGet(ctx, templateID); detail != nil {
		return detail, nil
	}

	detail, err := s.loadDetail(ctx, templateID)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, templateID, detail)
	return detail, nil
}

// List returns active templates matching the filter, newest first, plus
// the total match count ignoring pagination. Filters combine with AND.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Template, int, error) {
	where := ` WHERE is_active = TRUE`
	args := []interface{}{}

	if filter.Channel != "" {
		args = append(args, filter.Channel)
		where += ` AND channel = $` + strconv.Itoa(len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		where += ` AND (name ILIKE $` + n + ` OR description ILIKE $` + n + ` OR template_id ILIKE $` + n + `)`
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_templates`+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("list_templates", err)
	}

	query := `
		SELECT id, template_id, name, description, channel, category, current_version, is_active, created_at, updated_at
		FROM notification_templates` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("list_templates", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.TemplateID, &t.Name, &t.Description, &t.Channel, &t.Category,
			&t.CurrentVersion, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, apperrors.NewQueryExecutionFailedError("list_templates", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewQueryExecutionFailedError("list_templates", err)
	}

	return templates, total, nil
}

// Update mutates template metadata and, when Body or Subject is supplied,
// cuts a new current version with a bumped patch number inside one
// transaction. The row lock serializes concurrent updates so only one new
// version can become current. The default-language translation is kept in
// sync with new content.
func (s *Store) Update(ctx context.Context, templateID string, input UpdateTemplateInput) (*Template, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update_template", err)
	}
	defer tx.Rollback()

	var tmpl Template
	err = tx.QueryRowContext(ctx, `
		SELECT id, template_id, name, description, channel, category, current_version, is_active, created_at, updated_at
		FROM notification_templates
		WHERE template_id = $1 AND is_active = TRUE
		FOR UPDATE`,
		templateID,
	).Scan(&tmpl.ID, &tmpl.TemplateID, &tmpl.Name, &tmpl.Description, &tmpl.Channel, &tmpl.Category,
		&tmpl.CurrentVersion, &tmpl.IsActive, &tmpl.CreatedAt, &tmpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update_template", err)
	}

	if input.Name != nil {
		tmpl.Name = *input.Name
	}
	if input.Description != nil {
		tmpl.Description = *input.Description
	}
	if input.Category != nil {
		tmpl.Category = *input.Category
	}
	if input.IsActive != nil {
		tmpl.IsActive = *input.IsActive
	}

	now := time.Now().UTC()
	contentChanged := input.Body != nil || input.Subject != nil

	if contentChanged {
		var current TemplateVersion
		err = tx.QueryRowContext(ctx, `
			SELECT id, version, subject, body, variables, is_current, created_at
			FROM template_versions
			WHERE template_pk = $1 AND is_current = TRUE`,
			tmpl.ID,
		).Scan(&current.ID, &current.Version, &current.Subject, &current.Body,
			pq.Array(&current.Variables), &current.IsCurrent, &current.CreatedAt)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_template", err)
		}

		subject := current.Subject
		if input.Subject != nil {
			subject = *input.Subject
		}
		body := current.Body
		if input.Body != nil {
			body = *input.Body
		}

		nextVersion := nextPatchVersion(tmpl.CurrentVersion)
		variables := joinVariables(
			s.renderer.ExtractVariables(body),
			s.renderer.ExtractVariables(subject),
		)

		_, err = tx.ExecContext(ctx, `
			UPDATE template_versions SET is_current = FALSE WHERE id = $1`,
			current.ID,
		)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_template_version", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO template_versions
				(id, template_pk, version, subject, body, variables, is_current, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			uuid.NewString(), tmpl.ID, nextVersion, subject, body, pq.Array(variables), true, now,
		)
		if err != nil {
			// A unique violation here means another transaction already cut
			// this version number or another current row; the caller can
			// retry against the new current version.
			if isUniqueViolation(err) {
				return nil, apperrors.NewVersionConflictError(templateID)
			}
			return nil, apperrors.NewQueryExecutionFailedError("update_template_version", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO template_translations
				(id, template_pk, language_code, subject, body, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (template_pk, language_code)
			DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body,
				is_active = TRUE, updated_at = EXCLUDED.updated_at`,
			uuid.NewString(), tmpl.ID, DefaultLanguage, subject, body, true, now, now,
		)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_template_translation", err)
		}

		tmpl.CurrentVersion = nextVersion
	}

	tmpl.UpdatedAt = now
	_, err = tx.ExecContext(ctx, `
		UPDATE notification_templates
		SET name = $1, description = $2, category = $3, current_version = $4, is_active = $5, updated_at = $6
		WHERE id = $7`,
		tmpl.Name, tmpl.Description, tmpl.Category, tmpl.CurrentVersion, tmpl.IsActive, tmpl.UpdatedAt, tmpl.ID,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update_template", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("update_template", err)
	}

	s.cacheInvalidate(ctx, templateID)

	s.logger.Info("Template updated", map[string]interface{}{
		"template_id":     templateID,
		"version":         tmpl.CurrentVersion,
		"content_changed": contentChanged,
	})

	s.publishEvent(ctx, "template.updated", map[string]interface{}{
		"template_id":     templateID,
		"version":         tmpl.CurrentVersion,
		"content_changed": contentChanged,
	})

	return &tmpl, nil
}

// Delete soft-deletes a template. Versions and translations are retained;
// the template stops resolving through Get, List and Render, and its id
// becomes available for reuse.
func (s *Store) Delete(ctx context.Context, templateID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notification_templates
		SET is_active = FALSE, updated_at = $1
		WHERE template_id = $2 AND is_active = TRUE`,
		time.Now().UTC(), templateID,
	)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete_template", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete_template", err)
	}
	if affected == 0 {
		return apperrors.NewTemplateNotFoundError(templateID)
	}

	s.cacheInvalidate(ctx, templateID)

	s.logger.Info("Template deleted", map[string]interface{}{"template_id": templateID})

	s.publishEvent(ctx, "template.deleted", map[string]interface{}{
		"template_id": templateID,
	})

	return nil
}

// AddTranslation upserts localized content for a template. An existing
// translation for the same language is overwritten in place.
func (s *Store) AddTranslation(ctx context.Context, templateID, languageCode, subject, body string) (*TemplateTranslation, error) {
	var templatePK string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM notification_templates
		WHERE template_id = $1 AND is_active = TRUE`,
		templateID,
	).Scan(&templatePK)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("add_translation", err)
	}

	now := time.Now().UTC()
	tr := &TemplateTranslation{
		ID:           uuid.NewString(),
		TemplatePK:   templatePK,
		LanguageCode: languageCode,
		Subject:      subject,
		Body:         body,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO template_translations
			(id, template_pk, language_code, subject, body, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (template_pk, language_code)
		DO UPDATE SET subject = EXCLUDED.subject, body = EXCLUDED.body,
			is_active = TRUE, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`,
		tr.ID, templatePK, languageCode, subject, body, true, now, now,
	).Scan(&tr.ID, &tr.CreatedAt)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("add_translation", err)
	}

	s.cacheInvalidate(ctx, templateID)

	s.logger.Info("Translation added", map[string]interface{}{
		"template_id": templateID,
		"language":    languageCode,
	})

	s.publishEvent(ctx, "template.translation_added", map[string]interface{}{
		"template_id": templateID,
		"language":    languageCode,
	})

	return tr, nil
}

// ListVersions returns every version of a template, newest first, current
// or not. Works on soft-deleted templates too so history stays auditable;
// with a reused id the most recently created template wins.
func (s *Store) ListVersions(ctx context.Context, templateID string) ([]TemplateVersion, error) {
	var templatePK string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM notification_templates
		WHERE template_id = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		templateID,
	).Scan(&templatePK)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_versions", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version, subject, body, variables, is_current, created_at
		FROM template_versions
		WHERE template_pk = $1
		ORDER BY created_at DESC`,
		templatePK,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_versions", err)
	}
	defer rows.Close()

	var versions []TemplateVersion
	for rows.Next() {
		var v TemplateVersion
		if err := rows.Scan(&v.ID, &v.Version, &v.Subject, &v.Body,
			pq.Array(&v.Variables), &v.IsCurrent, &v.CreatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_versions", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_versions", err)
	}

	return versions, nil
}

// Render picks the best translation for the requested language and
// substitutes variables into subject and body. Validation covers both
// fields at once, so the missing-variable list is complete.
func (s *Store) Render(ctx context.Context, templateID, language string, data map[string]interface{}) (*RenderResult, error) {
	start := time.Now()
	result, err := s.render(ctx, templateID, language, data)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.TemplateRenderDuration.With(prometheus.Labels{"status": status}).Observe(time.Since(start).Seconds())
	return result, err
}

func (s *Store) render(ctx context.Context, templateID, language string, data map[string]interface{}) (*RenderResult, error) {
	detail, err := s.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}

	content, err := resolveTranslation(detail, language)
	if err != nil {
		return nil, err
	}

	variablesUsed := joinVariables(
		s.renderer.ExtractVariables(content.body),
		s.renderer.ExtractVariables(content.subject),
	)

	var missing []string
	for _, v := range variablesUsed {
		if _, ok := data[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.NewMissingVariablesError(missing)
	}

	body, err := s.renderer.Render(content.body, data)
	if err != nil {
		return nil, err
	}

	subject := ""
	if content.subject != "" {
		subject, err = s.renderer.Render(content.subject, data)
		if err != nil {
			return nil, err
		}
	}

	return &RenderResult{
		TemplateID:    templateID,
		Version:       content.version,
		Language:      content.language,
		Subject:       subject,
		Body:          body,
		VariablesUsed: variablesUsed,
	}, nil
}

// loadDetail fetches the active template, its current version and its
// active translations.
func (s *Store) loadDetail(ctx context.Context, templateID string) (*TemplateDetail, error) {
	var detail TemplateDetail
	t := &detail.Template
	err := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, name, description, channel, category, current_version, is_active, created_at, updated_at
		FROM notification_templates
		WHERE template_id = $1 AND is_active = TRUE`,
		templateID,
	).Scan(&t.ID, &t.TemplateID, &t.Name, &t.Description, &t.Channel, &t.Category,
		&t.CurrentVersion, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewTemplateNotFoundError(templateID)
	}
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_template", err)
	}

	v := &detail.Current
	err = s.db.QueryRowContext(ctx, `
		SELECT id, version, subject, body, variables, is_current, created_at
		FROM template_versions
		WHERE template_pk = $1 AND is_current = TRUE`,
		t.ID,
	).Scan(&v.ID, &v.Version, &v.Subject, &v.Body, pq.Array(&v.Variables), &v.IsCurrent, &v.CreatedAt)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_template_version", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_pk, language_code, subject, body, is_active, created_at, updated_at
		FROM template_translations
		WHERE template_pk = $1 AND is_active = TRUE`,
		t.ID,
	)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_template_translations", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tr TemplateTranslation
		if err := rows.Scan(&tr.ID, &tr.TemplatePK, &tr.LanguageCode, &tr.Subject, &tr.Body,
			&tr.IsActive, &tr.CreatedAt, &tr.UpdatedAt); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("get_template_translations", err)
		}
		detail.Translations = append(detail.Translations, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("get_template_translations", err)
	}

	return &detail, nil
}

func (s *Store) cacheKey(templateID string) string {
	return "template:" + templateID
}

func (s *Store) cacheGet(ctx context.Context, templateID string) *TemplateDetail {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(templateID))
	if err != nil {
		return nil
	}
	var detail TemplateDetail
	if err := json.Unmarshal([]byte(raw), &detail); err != nil {
		s.logger.Warn("Discarding corrupt cache entry", map[string]interface{}{
			"template_id": templateID,
			"error":       err.Error(),
		})
		return nil
	}
	return &detail
}

func (s *Store) cacheSet(ctx context.Context, templateID string, detail *TemplateDetail) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(templateID), string(raw), s.cacheTTL); err != nil {
		s.logger.Warn("Cache write failed", map[string]interface{}{
			"template_id": templateID,
			"error":       err.Error(),
		})
	}
}

func (s *Store) cacheInvalidate(ctx context.Context, templateID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(templateID)); err != nil {
		s.logger.Warn("Cache invalidation failed", map[string]interface{}{
			"template_id": templateID,
			"error":       err.Error(),
		})
	}
}

// publishEvent emits a lifecycle event. Each mutation gets its own
// correlation id so the event can be tied back to the write that produced
// it. Failures are logged and swallowed so a broker outage never rolls back
// a committed write.
func (s *Store) publishEvent(ctx context.Context, routingKey string, payload map[string]interface{}) {
	if s.events == nil {
		return
	}
	correlationID := uuid.NewString()
	payload["correlation_id"] = correlationID
	if err := s.events.Publish(ctx, routingKey, payload, correlationID); err != nil {
		s.logger.Warn("Template event publish failed", map[string]interface{}{
			"routing_key":    routingKey,
			"correlation_id": correlationID,
			"error":          err.Error(),
		})
	}
}

// nextPatchVersion bumps the patch component. An unparseable current
// version falls back to 1.0.1 instead of failing the update.
func nextPatchVersion(current string) string {
	v, err := semver.NewVersion(current)
	if err != nil {
		return fallbackVersion
	}
	next := v.IncPatch()
	return next.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
