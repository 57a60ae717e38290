package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"event-template-platform/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc, opts ...Option) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", zap.NewNop(), opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestGateway_FetchDocument(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/resource/Event Template/Gig Night", r.URL.Path)
		assert.Equal(t, "/api/resource/Event%20Template/Gig%20Night", r.URL.EscapedPath())
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"name":      "Gig Night",
			"category":  "Music",
			"apply_tax": 1,
		}})
	})

	doc, err := gw.FetchDocument(context.Background(), models.DoctypeTemplate, "Gig Night")

	require.NoError(t, err)
	assert.Equal(t, "Gig Night", doc.Name())
	assert.Equal(t, "Music", doc.String("category"))
	assert.Equal(t, float64(1), doc["apply_tax"])
}

func TestGateway_FetchDocumentNotFound(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "Event Template Nope not found"})
	})

	_, err := gw.FetchDocument(context.Background(), models.DoctypeTemplate, "Nope")

	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Contains(t, err.Error(), "Nope not found")
}

func TestGateway_CountLinked(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/count/Ticket Add-on", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("event"))
		writeJSON(w, http.StatusOK, map[string]int{"count": 3})
	})

	n, err := gw.CountLinked(context.Background(), models.DoctypeAddOn, "42")

	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGateway_CreateFromTemplate(t *testing.T) {
	session := &http.Cookie{Name: "session", Value: "abc"}
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/method/create_from_template", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		c, err := r.Cookie("session")
		require.NoError(t, err)
		assert.Equal(t, "abc", c.Value)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Gig Night", body["template_name"])
		assert.Equal(t, map[string]any{"category": float64(1), "ticket_types": float64(1)}, body["options"])
		assert.Equal(t, map[string]any{"host": "The Band"}, body["additional_fields"])

		writeJSON(w, http.StatusOK, map[string]string{"message": "101"})
	}, WithCookie(session))

	name, err := gw.CreateFromTemplate(context.Background(), "Gig Night",
		[]string{"category", "ticket_types"}, map[string]string{"host": "The Band"})

	require.NoError(t, err)
	assert.Equal(t, "101", name)
}

func TestGateway_CreateFromTemplateSendsEmptyOverrides(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{}, body["additional_fields"])
		writeJSON(w, http.StatusOK, map[string]string{"message": "7"})
	})

	_, err := gw.CreateFromTemplate(context.Background(), "Gig Night", nil, nil)
	require.NoError(t, err)
}

func TestGateway_ValidationErrorIsVerbatim(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusExpectationFailed, ErrorResponse{
			Error:  "Missing required fields: Host",
			Fields: []string{"host"},
		})
	})

	_, err := gw.CreateTemplateFromEvent(context.Background(), "42", "Base", []string{"category"})

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Missing required fields: Host", ve.Message)
	assert.Equal(t, "Missing required fields: Host", err.Error())
	assert.Equal(t, []string{"host"}, ve.Fields)
}

func TestGateway_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) { assert.ErrorIs(t, err, models.ErrForbidden) }},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) { assert.ErrorIs(t, err, models.ErrUnauthorized) }},
		{"unprocessable", http.StatusUnprocessableEntity, func(t *testing.T, err error) { assert.True(t, models.IsValidationError(err)) }},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) { assert.EqualError(t, err, "HTTP 500: boom") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, ErrorResponse{Error: "boom"})
			})
			_, err := gw.CreateTemplateFromEvent(context.Background(), "42", "Base", nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGateway_NonJSONError(t *testing.T) {
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})

	_, err := gw.CountLinked(context.Background(), models.DoctypeAddOn, "42")

	assert.ErrorContains(t, err, "HTTP 502: Bad Gateway")
}

func TestGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	gw := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, WithTimeout(20*time.Millisecond))
	defer close(release)

	_, err := gw.CountLinked(context.Background(), models.DoctypeAddOn, "42")

	assert.Error(t, err)
}
