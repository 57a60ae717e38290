package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-template-platform/internal/dialogstore"
	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/middleware"
	"event-template-platform/internal/models"
	"event-template-platform/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	router   http.Handler
	svc      *services.MockTemplateService
	dialogs  *DialogHandler
	redis    *miniredis.Miniredis
	store    *dialogstore.Store
	cookie   *http.Cookie
	other    *http.Cookie
	attendee *http.Cookie
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, nil)
}

// newTestEnvWithStore builds a test env whose dialog handler sees the store
// through wrap.
func newTestEnvWithStore(t *testing.T, wrap func(DialogStore) DialogStore) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := dialogstore.New(rdb, "test:", time.Minute)

	logger := zap.NewNop()
	sessions := middleware.NewCookieStore("test-secret", false)
	cookie, err := middleware.SessionCookie(sessions, &models.User{ID: 7, Role: models.RoleOrganizer})
	require.NoError(t, err)
	other, err := middleware.SessionCookie(sessions, &models.User{ID: 8, Role: models.RoleOrganizer})
	require.NoError(t, err)
	attendee, err := middleware.SessionCookie(sessions, &models.User{ID: 9, Role: models.RoleAttendee})
	require.NoError(t, err)

	svc := services.NewMockTemplateService()
	var dialogStore DialogStore = store
	if wrap != nil {
		dialogStore = wrap(store)
	}
	dialogs := NewDialogHandler(dialogStore, svc, time.Second, logger)
	t.Cleanup(dialogs.Wait)

	router := NewRouter(RouterConfig{
		Documents: NewDocumentHandler(svc, logger),
		Methods:   NewMethodHandler(svc, logger),
		Dialogs:   dialogs,
		Health:    NewHealthHandler(map[string]HealthCheck{"redis": store.Ping}, logger),
		Auth:      middleware.NewAuthMiddleware(sessions, logger),
		Logger:    logger,
	})

	return &testEnv{
		router:   router,
		svc:      svc,
		dialogs:  dialogs,
		redis:    mr,
		store:    store,
		cookie:   cookie,
		other:    other,
		attendee: attendee,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return e.request(t, method, path, body, e.cookie)
}

func gigNight() models.Document {
	return models.Document{
		"name":          "Gig Night",
		"template_name": "Gig Night",
		"category":      "Music",
		"host":          "",
		"template_ticket_types": []any{
			map[string]any{"title": "Early Bird"},
			map[string]any{"title": "Regular"},
			map[string]any{"title": "VIP"},
		},
	}
}

func summerFest() models.Document {
	return models.Document{"name": "42", "title": "Summer Fest", "category": "Music"}
}

func decodeDialog(t *testing.T, rr *httptest.ResponseRecorder) dialogResponse {
	t.Helper()
	var resp dialogResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func findOption(t *testing.T, v eventtemplate.View, name string) eventtemplate.Option {
	t.Helper()
	for _, sec := range v.Sections {
		for _, o := range sec.Options {
			if o.Name == name {
				return o
			}
		}
	}
	t.Fatalf("option %s not rendered", name)
	return eventtemplate.Option{}
}

func TestGetResource(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeTemplate, gigNight())

	rr := env.do(t, http.MethodGet, "/api/resource/Event%20Template/Gig%20Night", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data models.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Gig Night", body.Data.Name())
	assert.Equal(t, "Music", body.Data.String("category"))
}

func TestGetResource_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/resource/Event%20Template/Nope", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nope not found")
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/api/resource/Event%20Template/Gig%20Night", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"Not logged in"}`, rr.Body.String())
}

func TestCount(t *testing.T) {
	env := newTestEnv(t)
	env.svc.SetCount(models.DoctypeAddOn, "42", 3)

	rr := env.do(t, http.MethodGet, "/api/count/Ticket%20Add-on?event=42", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":3}`, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/api/count/Ticket%20Add-on", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateFromTemplateMethod(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeTemplate, gigNight())

	rr := env.do(t, http.MethodPost, "/api/method/create_from_template", map[string]any{
		"template_name":     "Gig Night",
		"options":           map[string]any{"category": 1, "ticket_types": 1, "host": 0},
		"additional_fields": map[string]string{"host": "The Band"},
	})

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"message":"101"}`, rr.Body.String())

	calls := env.svc.CreateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].User)
	assert.Equal(t, []string{"category", "ticket_types"}, calls[0].Options)
	assert.Equal(t, map[string]string{"host": "The Band"}, calls[0].Fields)
}

func TestCreateTemplateFromEventMethod_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "duplicate name is shown verbatim",
			err:      models.NewValidationError("Event Template Gig Night already exists"),
			wantCode: http.StatusExpectationFailed,
			wantBody: `{"error":"Event Template Gig Night already exists"}`,
		},
		{
			name:     "forbidden",
			err:      models.ErrForbidden,
			wantCode: http.StatusForbidden,
			wantBody: `{"error":"permission denied"}`,
		},
		{
			name:     "internal errors are hidden",
			err:      assert.AnError,
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"Internal Server Error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.svc.SaveErr = tt.err

			rr := env.do(t, http.MethodPost, "/api/method/create_template_from_event", map[string]any{
				"event_name":    "42",
				"template_name": "Gig Night",
				"options":       map[string]any{"category": 1},
			})

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.JSONEq(t, tt.wantBody, rr.Body.String())
		})
	}
}

func TestMethod_InvalidBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/method/create_from_template", bytes.NewBufferString("{"))
	req.AddCookie(env.cookie)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusExpectationFailed, rr.Code)
	assert.Empty(t, env.svc.CreateCalls())
}

func TestCreateDialogFlow(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeTemplate, gigNight())

	rr := env.do(t, http.MethodPost, "/api/dialogs/create-from-template", map[string]string{"template": "Gig Night"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	opened := decodeDialog(t, rr)
	require.NotEmpty(t, opened.ID)
	assert.Equal(t, eventtemplate.StateLoaded, opened.State)
	assert.True(t, opened.SummaryVisible)
	assert.Equal(t, "(3)", findOption(t, opened.View, "ticket_types").Note)

	base := "/api/dialogs/" + opened.ID

	rr = env.do(t, http.MethodPut, base+"/overrides/host", map[string]string{"value": "The Band"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "The Band", decodeDialog(t, rr).Overrides["host"])

	rr = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	done := decodeDialog(t, rr)
	assert.Equal(t, eventtemplate.StateDone, done.State)
	assert.Equal(t, "/app/buzz-event/101", done.Route)
	assert.Equal(t, "Event created successfully", done.SuccessMessage)

	calls := env.svc.CreateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Gig Night", calls[0].Template)
	assert.Equal(t, []string{"category", "ticket_types"}, calls[0].Options)
	assert.Equal(t, map[string]string{"host": "The Band"}, calls[0].Fields)

	rr = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, eventtemplate.StateDone, decodeDialog(t, rr).State)

	rr = env.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = env.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestCreateDialog_SubmitWithMissingMandatory(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeTemplate, gigNight())
	opened := decodeDialog(t, env.do(t, http.MethodPost, "/api/dialogs/create-from-template", map[string]string{"template": "Gig Night"}))

	rr := env.do(t, http.MethodPost, "/api/dialogs/"+opened.ID+"/submit", nil)

	assert.Equal(t, http.StatusExpectationFailed, rr.Code)
	var body dialogErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Missing required fields: Host", body.Error)
	assert.Equal(t, []string{"host"}, body.Fields)
	require.NotNil(t, body.Dialog)
	assert.Equal(t, eventtemplate.StateLoaded, body.Dialog.State)
	assert.Empty(t, env.svc.CreateCalls())
}

func TestCreateDialog_MissingTemplateIsShownInDialog(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/dialogs/create-from-template", map[string]string{"template": "Nope"})

	require.Equal(t, http.StatusCreated, rr.Code)
	opened := decodeDialog(t, rr)
	assert.Equal(t, eventtemplate.StateIdle, opened.State)
	assert.NotEmpty(t, opened.Error)
	assert.Empty(t, opened.Sections)

	env.svc.Put(models.DoctypeTemplate, gigNight())
	rr = env.do(t, http.MethodPut, "/api/dialogs/"+opened.ID+"/template", map[string]string{"template": "Gig Night"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	chosen := decodeDialog(t, rr)
	assert.Equal(t, eventtemplate.StateLoaded, chosen.State)
	assert.Empty(t, chosen.Error)
}

func TestCreateDialog_OptionActions(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeTemplate, gigNight())
	opened := decodeDialog(t, env.do(t, http.MethodPost, "/api/dialogs/create-from-template", map[string]string{"template": "Gig Night"}))
	base := "/api/dialogs/" + opened.ID

	rr := env.do(t, http.MethodPut, base+"/options/category", map[string]bool{"selected": false})
	require.Equal(t, http.StatusOK, rr.Code)
	v := decodeDialog(t, rr)
	assert.False(t, findOption(t, v.View, "category").Selected)
	assert.True(t, v.Mandatory[0].Visible, "category must now be entered")

	rr = env.do(t, http.MethodPut, base+"/options/host", map[string]bool{"selected": true})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, base+"/unselect-all", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, findOption(t, decodeDialog(t, rr).View, "ticket_types").Selected)

	rr = env.do(t, http.MethodPost, base+"/select-all", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	v = decodeDialog(t, rr)
	assert.True(t, findOption(t, v.View, "ticket_types").Selected)
	assert.False(t, findOption(t, v.View, "host").Selected)

	rr = env.do(t, http.MethodPut, base+"/template-name", map[string]string{"template_name": "X"})
	assert.Equal(t, http.StatusExpectationFailed, rr.Code, "template name belongs to the save dialog")
}

func TestDialogsArePrivate(t *testing.T) {
	env := newTestEnv(t)
	opened := decodeDialog(t, env.do(t, http.MethodPost, "/api/dialogs/create-from-template", nil))

	rr := env.request(t, http.MethodGet, "/api/dialogs/"+opened.ID, nil, env.other)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.request(t, http.MethodDelete, "/api/dialogs/"+opened.ID, nil, env.other)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/dialogs/"+opened.ID, nil).Code, "still there for its owner")
}

func TestSaveDialogFlow(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeEvent, summerFest())
	env.svc.SetCount(models.DoctypeTicketType, "42", 2)
	env.svc.SetCount(models.DoctypeAddOn, "42", 0)
	env.svc.SetCount(models.DoctypeCustomField, "42", 4)

	rr := env.do(t, http.MethodPost, "/api/dialogs/save-as-template", map[string]string{"event": "42"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	opened := decodeDialog(t, rr)
	assert.Equal(t, "Summer Fest Template", opened.TemplateName)
	assert.Equal(t, "Loading...", findOption(t, opened.View, "ticket_types").Note)

	env.dialogs.Wait()
	base := "/api/dialogs/" + opened.ID

	rr = env.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	loaded := decodeDialog(t, rr)
	assert.Equal(t, "(2)", findOption(t, loaded.View, "ticket_types").Note)
	assert.Equal(t, "(None)", findOption(t, loaded.View, "add_ons").Note)
	assert.False(t, findOption(t, loaded.View, "add_ons").Selectable)
	assert.Equal(t, "(4)", findOption(t, loaded.View, "custom_fields").Note)

	rr = env.do(t, http.MethodPut, base+"/template-name", map[string]string{"template_name": "Festival Base"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	done := decodeDialog(t, rr)
	assert.Equal(t, "Template Festival Base created successfully", done.SuccessMessage)
	assert.Equal(t, "/app/event-template/Festival%20Base", done.Route)

	saves := env.svc.SaveCalls()
	require.Len(t, saves, 1)
	assert.Equal(t, "42", saves[0].Event)
	assert.Equal(t, []string{"category", "ticket_types", "custom_fields"}, saves[0].Options)
}

func TestSaveDialog_DuplicateNameThenRetry(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeEvent, summerFest())
	env.svc.Put(models.DoctypeTemplate, models.Document{"name": "Summer Fest Template"})

	opened := decodeDialog(t, env.do(t, http.MethodPost, "/api/dialogs/save-as-template", map[string]string{"event": "42"}))
	env.dialogs.Wait()
	base := "/api/dialogs/" + opened.ID

	rr := env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusExpectationFailed, rr.Code)
	var body dialogErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Event Template Summer Fest Template already exists", body.Error)
	assert.Equal(t, eventtemplate.StateFailed, body.Dialog.State)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPut, base+"/template-name", map[string]string{"template_name": "Summer Fest 2"}).Code)
	rr = env.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Summer Fest 2", decodeDialog(t, rr).Result)
}

func TestSaveDialog_MissingEvent(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/dialogs/save-as-template", map[string]string{"event": "7"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodPost, "/api/dialogs/save-as-template", map[string]string{})
	assert.Equal(t, http.StatusExpectationFailed, rr.Code)
}

func TestSaveDialog_CountsAfterCloseAreDropped(t *testing.T) {
	env := newTestEnv(t)
	env.svc.Put(models.DoctypeEvent, summerFest())
	release := make(chan struct{})
	env.svc.Block[models.DoctypeTicketType] = release
	env.svc.SetCount(models.DoctypeTicketType, "42", 2)

	opened := decodeDialog(t, env.do(t, http.MethodPost, "/api/dialogs/save-as-template", map[string]string{"event": "42"}))
	require.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/api/dialogs/"+opened.ID, nil).Code)

	close(release)
	env.dialogs.Wait()

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/dialogs/"+opened.ID, nil).Code)
	assert.Empty(t, env.redis.Keys())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"ok"}}`, rr.Body.String())

	env.redis.Close()
	rr = env.request(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"unavailable"`)
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rr := env.request(t, http.MethodGet, "/nope", nil, nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"error":"Not Found"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("x"), http.StatusExpectationFailed},
		{models.ErrTemplateNotFound, http.StatusNotFound},
		{dialogstore.ErrDialogNotFound, http.StatusNotFound},
		{models.ErrForbidden, http.StatusForbidden},
		{models.ErrUnauthorized, http.StatusUnauthorized},
		{dialogstore.ErrConflict, http.StatusConflict},
		{eventtemplate.ErrInvalidState, http.StatusConflict},
		{models.ErrUnknownDoctype, http.StatusBadRequest},
		{eventtemplate.ErrOptionDisabled, http.StatusBadRequest},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.err), tt.err.Error())
	}
}
