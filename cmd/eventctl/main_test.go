package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"event-template-platform/internal/config"
	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/handlers"
	"event-template-platform/internal/middleware"
	"event-template-platform/internal/models"
	"event-template-platform/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "eventctl-test-secret"

func newServer(t *testing.T) (*httptest.Server, *services.MockTemplateService) {
	t.Helper()
	logger := zap.NewNop()
	svc := services.NewMockTemplateService()
	svc.Put(models.DoctypeTemplate, models.Document{
		"name":          "Gig Night",
		"template_name": "Gig Night",
		"category":      "Music",
		"host":          "",
		"about":         "Live music",
	})
	svc.Put(models.DoctypeEvent, models.Document{"name": "42", "title": "Summer Fest", "category": "Music"})
	svc.SetCount(models.DoctypeTicketType, "42", 3)

	router := handlers.NewRouter(handlers.RouterConfig{
		Documents: handlers.NewDocumentHandler(svc, logger),
		Methods:   handlers.NewMethodHandler(svc, logger),
		Health:    handlers.NewHealthHandler(nil, logger),
		Auth:      middleware.NewAuthMiddleware(middleware.NewCookieStore(secret, false), logger),
		Logger:    logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, svc
}

func testOptions(url string) options {
	return options{url: url, userID: 7, role: string(models.RoleOrganizer)}
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{Secret: secret},
		Gateway: config.GatewayConfig{Timeout: 5 * time.Second},
	}
}

func TestCreateFromTemplate(t *testing.T) {
	srv, svc := newServer(t)
	opts := testOptions(srv.URL)
	opts.template = "Gig Night"
	opts.overrides = []string{"host=The Band"}
	opts.exclude = []string{"about"}

	gw, err := newGateway(testConfig(), opts, zap.NewNop())
	require.NoError(t, err)

	view, err := createFromTemplate(context.Background(), gw, opts)
	require.NoError(t, err)

	assert.Equal(t, eventtemplate.StateDone, view.State)
	assert.Equal(t, "/app/buzz-event/101", view.Route)
	calls := svc.CreateCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, 7, calls[0].User)
	assert.Equal(t, map[string]string{"host": "The Band"}, calls[0].Fields)
	assert.Equal(t, []string{"category"}, calls[0].Options)
}

func TestCreateFromTemplate_DryRunDoesNotSubmit(t *testing.T) {
	srv, svc := newServer(t)
	opts := testOptions(srv.URL)
	opts.template = "Gig Night"
	opts.dryRun = true

	gw, err := newGateway(testConfig(), opts, zap.NewNop())
	require.NoError(t, err)

	view, err := createFromTemplate(context.Background(), gw, opts)
	require.NoError(t, err)
	assert.Equal(t, eventtemplate.StateLoaded, view.State)
	assert.True(t, view.SummaryVisible)
	assert.Empty(t, svc.CreateCalls())
}

func TestCreateFromTemplate_BadOverride(t *testing.T) {
	srv, _ := newServer(t)
	opts := testOptions(srv.URL)
	opts.template = "Gig Night"
	opts.overrides = []string{"host"}

	gw, err := newGateway(testConfig(), opts, zap.NewNop())
	require.NoError(t, err)

	_, err = createFromTemplate(context.Background(), gw, opts)
	assert.ErrorContains(t, err, "expected field=value")
}

func TestSaveAsTemplate(t *testing.T) {
	srv, svc := newServer(t)
	opts := testOptions(srv.URL)
	opts.event = "42"

	gw, err := newGateway(testConfig(), opts, zap.NewNop())
	require.NoError(t, err)

	view, err := saveAsTemplate(context.Background(), gw, opts)
	require.NoError(t, err)

	assert.Equal(t, "Summer Fest Template", view.TemplateName)
	assert.Equal(t, "/app/event-template/Summer%20Fest%20Template", view.Route)
	saves := svc.SaveCalls()
	require.Len(t, saves, 1)
	assert.Equal(t, []string{"category", "ticket_types"}, saves[0].Options)
}

func TestSaveAsTemplate_RequiresEvent(t *testing.T) {
	_, err := saveAsTemplate(context.Background(), nil, options{})
	assert.ErrorContains(t, err, "--event is required")
}

func TestNewGateway_RejectsUnknownRole(t *testing.T) {
	opts := testOptions("http://localhost")
	opts.role = "superuser"
	_, err := newGateway(testConfig(), opts, zap.NewNop())
	assert.Error(t, err)
}
