package template

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-workers/internal/common/database"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
)

// ==========================
// Test Helpers
// ==========================

type capturedEvent struct {
	RoutingKey    string
	Payload       interface{}
	CorrelationID string
}

// capturingPublisher records events instead of publishing them.
type capturingPublisher struct {
	events []capturedEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, payload interface{}, correlationID string) error {
	p.events = append(p.events, capturedEvent{RoutingKey: routingKey, Payload: payload, CorrelationID: correlationID})
	return p.err
}

func templateColumns() []string {
	return []string{"id", "template_id", "name", "description", "channel", "category",
		"current_version", "is_active", "created_at", "updated_at"}
}

func versionColumns() []string {
	return []string{"id", "version", "subject", "body", "variables", "is_current", "created_at"}
}

func translationColumns() []string {
	return []string{"id", "template_pk", "language_code", "subject", "body", "is_active", "created_at", "updated_at"}
}

func templateRow(t time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(templateColumns()).
		AddRow("pk-1", "order-shipped", "Order Shipped", "", "email", "orders", "1.0.0", true, t, t)
}

func versionRow(t time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(versionColumns()).
		AddRow("ver-1", "1.0.0", "Order {{order_id}}", "Hi {{name}}, order {{order_id}} shipped.",
			pq.Array([]string{"name", "order_id"}), true, t)
}

// ==========================
// Create
// ==========================

func TestStore_Create_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notification_templates`).
		WithArgs(sqlmock.AnyArg(), "order-shipped", "Order Shipped", "", "email", "orders",
			"1.0.0", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO template_versions`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "1.0.0", "Order {{order_id}}",
			"Hi {{name}}, order {{order_id}} shipped.", sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO template_translations`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "en", "Order {{order_id}}",
			"Hi {{name}}, order {{order_id}} shipped.", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	events := &capturingPublisher{}
	store := NewStore(db, logger.NewTestLogger(t), WithEventPublisher(events))

	tmpl, err := store.Create(context.Background(), CreateTemplateInput{
		TemplateID: "order-shipped",
		Name:       "Order Shipped",
		Channel:    "email",
		Category:   "orders",
		Subject:    "Order {{order_id}}",
		Body:       "Hi {{name}}, order {{order_id}} shipped.",
	})

	require.NoError(t, err)
	assert.Equal(t, "order-shipped", tmpl.TemplateID)
	assert.Equal(t, "1.0.0", tmpl.CurrentVersion)
	assert.True(t, tmpl.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events.events, 1)
	assert.Equal(t, "template.created", events.events[0].RoutingKey)
	assert.NotEmpty(t, events.events[0].CorrelationID)
}

func TestStore_Create_DuplicateTemplateID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notification_templates`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	store := NewStore(db, logger.NewTestLogger(t))

	_, err = store.Create(context.Background(), CreateTemplateInput{
		TemplateID: "order-shipped",
		Name:       "Order Shipped",
		Channel:    "email",
		Body:       "Hi {{name}}",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDuplicateTemplateID, apperrors.CodeOf(err))
	assert.False(t, apperrors.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Get
// ==========================

func expectDetailQueries(mock sqlmock.Sqlmock, now time.Time) {
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("order-shipped").
		WillReturnRows(templateRow(now))
	mock.ExpectQuery(`FROM template_versions`).
		WithArgs("pk-1").
		WillReturnRows(versionRow(now))
	mock.ExpectQuery(`FROM template_translations`).
		WithArgs("pk-1").
		WillReturnRows(sqlmock.NewRows(translationColumns()).
			AddRow("tr-1", "pk-1", "en", "Order {{order_id}}", "Hi {{name}}, order {{order_id}} shipped.", true, now, now).
			AddRow("tr-2", "pk-1", "de", "Bestellung {{order_id}}", "Hallo {{name}}, Bestellung {{order_id}} versandt.", true, now, now))
}

func TestStore_Get_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDetailQueries(mock, time.Now().UTC())

	store := NewStore(db, logger.NewTestLogger(t))

	detail, err := store.Get(context.Background(), "order-shipped")
	require.NoError(t, err)
	assert.Equal(t, "order-shipped", detail.Template.TemplateID)
	assert.Equal(t, "orders", detail.Template.Category)
	assert.Equal(t, "1.0.0", detail.Current.Version)
	assert.True(t, detail.Current.IsCurrent)
	assert.Len(t, detail.Translations, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(templateColumns()))

	store := NewStore(db, logger.NewTestLogger(t))

	_, err = store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, apperrors.CodeOf(err))
}

func TestStore_Get_CacheHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rdb, redisMock := redismock.NewClientMock()
	detail := TemplateDetail{
		Template: Template{TemplateID: "order-shipped", CurrentVersion: "1.0.0", IsActive: true},
		Current:  TemplateVersion{ID: "ver-1", Version: "1.0.0", Body: "Hi {{name}}", IsCurrent: true},
		Translations: []TemplateTranslation{
			{TemplatePK: "pk-1", LanguageCode: "en", Body: "Hi {{name}}", IsActive: true},
		},
	}
	raw, err := json.Marshal(&detail)
	require.NoError(t, err)
	redisMock.ExpectGet("template:order-shipped").SetVal(string(raw))

	store := NewStore(db, logger.NewTestLogger(t), WithCache(&database.RedisClient{Client: rdb}, time.Minute))

	got, err := store.Get(context.Background(), "order-shipped")
	require.NoError(t, err)
	assert.Equal(t, "order-shipped", got.Template.TemplateID)

	// No SQL expectations were registered, so any query would have failed.
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

// ==========================
// List
// ==========================

func TestStore_List_FiltersAndTotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notification_templates`).
		WithArgs("email", "%ship%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("email", "%ship%", 5, 5).
		WillReturnRows(templateRow(now))

	store := NewStore(db, logger.NewTestLogger(t))

	items, total, err := store.List(context.Background(), ListFilter{
		Channel: "email",
		Search:  "ship",
		Limit:   5,
		Offset:  5,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, total, "total ignores pagination")
	require.Len(t, items, 1)
	assert.Equal(t, "order-shipped", items[0].TemplateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_List_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notification_templates`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM notification_templates`).
		WillReturnRows(sqlmock.NewRows(templateColumns()))

	store := NewStore(db, logger.NewTestLogger(t))

	items, total, err := store.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}

// ==========================
// Update
// ==========================

func TestStore_Update_ContentChangeBumpsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	newBody := "Hi {{name}}, your parcel {{order_id}} is on its way."

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("order-shipped").
		WillReturnRows(templateRow(now))
	mock.ExpectQuery(`FROM template_versions`).
		WithArgs("pk-1").
		WillReturnRows(versionRow(now))
	mock.ExpectExec(`UPDATE template_versions SET is_current = FALSE`).
		WithArgs("ver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO template_versions`).
		WithArgs(sqlmock.AnyArg(), "pk-1", "1.0.1", "Order {{order_id}}", newBody,
			sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO template_translations`).
		WithArgs(sqlmock.AnyArg(), "pk-1", "en", "Order {{order_id}}", newBody,
			true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE notification_templates`).
		WithArgs("Order Shipped", "", "orders", "1.0.1", true, sqlmock.AnyArg(), "pk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	events := &capturingPublisher{}
	store := NewStore(db, logger.NewTestLogger(t), WithEventPublisher(events))

	tmpl, err := store.Update(context.Background(), "order-shipped", UpdateTemplateInput{
		Body: &newBody,
	})

	require.NoError(t, err)
	assert.Equal(t, "1.0.1", tmpl.CurrentVersion)
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events.events, 1)
	assert.Equal(t, "template.updated", events.events[0].RoutingKey)
}

func TestStore_Update_MetadataOnlyKeepsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	newName := "Order Shipped v2"

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("order-shipped").
		WillReturnRows(templateRow(now))
	mock.ExpectExec(`UPDATE notification_templates`).
		WithArgs(newName, "", "orders", "1.0.0", true, sqlmock.AnyArg(), "pk-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewStore(db, logger.NewTestLogger(t))

	tmpl, err := store.Update(context.Background(), "order-shipped", UpdateTemplateInput{
		Name: &newName,
	})

	require.NoError(t, err)
	assert.Equal(t, "1.0.0", tmpl.CurrentVersion)
	assert.Equal(t, newName, tmpl.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update_ConcurrentVersionConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	newBody := "Hi {{name}}"

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("order-shipped").
		WillReturnRows(templateRow(now))
	mock.ExpectQuery(`FROM template_versions`).
		WithArgs("pk-1").
		WillReturnRows(versionRow(now))
	mock.ExpectExec(`UPDATE template_versions SET is_current = FALSE`).
		WithArgs("ver-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO template_versions`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	store := NewStore(db, logger.NewTestLogger(t))

	_, err = store.Update(context.Background(), "order-shipped", UpdateTemplateInput{
		Body: &newBody,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeVersionConflict, apperrors.CodeOf(err))
	assert.True(t, apperrors.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Update_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM notification_templates`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(templateColumns()))
	mock.ExpectRollback()

	store := NewStore(db, logger.NewTestLogger(t))

	name := "whatever"
	_, err = store.Update(context.Background(), "missing", UpdateTemplateInput{Name: &name})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, apperrors.CodeOf(err))
}

// ==========================
// Delete
// ==========================

func TestStore_Delete_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE notification_templates`).
		WithArgs(sqlmock.AnyArg(), "order-shipped").
		WillReturnResult(sqlmock.NewResult(0, 1))

	events := &capturingPublisher{}
	store := NewStore(db, logger.NewTestLogger(t), WithEventPublisher(events))

	require.NoError(t, store.Delete(context.Background(), "order-shipped"))
	assert.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, events.events, 1)
	assert.Equal(t, "template.deleted", events.events[0].RoutingKey)
}

func TestStore_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE notification_templates`).
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, logger.NewTestLogger(t))

	err = store.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, apperrors.CodeOf(err))
}

// ==========================
// Translations
// ==========================

func TestStore_AddTranslation_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM notification_templates`).
		WithArgs("order-shipped").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pk-1"))
	mock.ExpectQuery(`INSERT INTO template_translations`).
		WithArgs(sqlmock.AnyArg(), "pk-1", "fr", "Commande {{order_id}}",
			"Bonjour {{name}}", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("tr-9", time.Now()))

	store := NewStore(db, logger.NewTestLogger(t))

	tr, err := store.AddTranslation(context.Background(), "order-shipped", "fr",
		"Commande {{order_id}}", "Bonjour {{name}}")
	require.NoError(t, err)
	assert.Equal(t, "fr", tr.LanguageCode)
	assert.Equal(t, "pk-1", tr.TemplatePK)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AddTranslation_TemplateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM notification_templates`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewStore(db, logger.NewTestLogger(t))

	_, err = store.AddTranslation(context.Background(), "missing", "fr", "", "Bonjour")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, apperrors.CodeOf(err))
}

// ==========================
// Versions
// ==========================

func TestStore_ListVersions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id FROM notification_templates`).
		WithArgs("order-shipped").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("pk-1"))
	mock.ExpectQuery(`FROM template_versions`).
		WithArgs("pk-1").
		WillReturnRows(sqlmock.NewRows(versionColumns()).
			AddRow("ver-2", "1.0.1", "", "New body", pq.Array([]string{}), true, now).
			AddRow("ver-1", "1.0.0", "", "Old body", pq.Array([]string{}), false, now.Add(-time.Hour)))

	store := NewStore(db, logger.NewTestLogger(t))

	versions, err := store.ListVersions(context.Background(), "order-shipped")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0.1", versions[0].Version)
	assert.True(t, versions[0].IsCurrent)
	assert.False(t, versions[1].IsCurrent)
}

// ==========================
// Render
// ==========================

func TestStore_Render_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDetailQueries(mock, time.Now().UTC())

	store := NewStore(db, logger.NewTestLogger(t))

	result, err := store.Render(context.Background(), "order-shipped", "en", map[string]interface{}{
		"name":     "Ada",
		"order_id": "A-1042",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, order A-1042 shipped.", result.Body)
	assert.Equal(t, "Order A-1042", result.Subject)
	assert.Equal(t, "en", result.Language)
	assert.Equal(t, "1.0.0", result.Version)
	assert.Equal(t, []string{"name", "order_id"}, result.VariablesUsed)
}

func TestStore_Render_ExactLanguageMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDetailQueries(mock, time.Now().UTC())

	store := NewStore(db, logger.NewTestLogger(t))

	result, err := store.Render(context.Background(), "order-shipped", "de", map[string]interface{}{
		"name":     "Ada",
		"order_id": "A-1042",
	})
	require.NoError(t, err)
	assert.Equal(t, "de", result.Language)
	assert.Equal(t, "Hallo Ada, Bestellung A-1042 versandt.", result.Body)
}

func TestStore_Render_FallbackToDefaultLanguage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDetailQueries(mock, time.Now().UTC())

	store := NewStore(db, logger.NewTestLogger(t))

	result, err := store.Render(context.Background(), "order-shipped", "fr", map[string]interface{}{
		"name":     "Ada",
		"order_id": "A-1042",
	})
	require.NoError(t, err)
	// The fr translation does not exist, so en content was used and the
	// result reports the language that actually rendered.
	assert.Equal(t, "en", result.Language)
}

func TestStore_Render_MissingVariables(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectDetailQueries(mock, time.Now().UTC())

	store := NewStore(db, logger.NewTestLogger(t))

	_, err = store.Render(context.Background(), "order-shipped", "en", map[string]interface{}{
		"name": "Ada",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMissingVariables, apperrors.CodeOf(err))
	assert.Equal(t, []string{"order_id"}, apperrors.MissingVariablesOf(err))
}

// ==========================
// Version math
// ==========================

func TestNextPatchVersion(t *testing.T) {
	tests := []struct {
		current  string
		expected string
	}{
		{"1.0.0", "1.0.1"},
		{"1.0.9", "1.0.10"},
		{"2.3.4", "2.3.5"},
		{"not-a-version", "1.0.1"},
		{"", "1.0.1"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, nextPatchVersion(tt.current), "current=%q", tt.current)
	}
}
