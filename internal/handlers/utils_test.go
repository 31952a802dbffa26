package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"booking-system/internal/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReferenceFromPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		prefix  string
		want    string
		wantErr bool
	}{
		{"plain reference", "/api/bookings/BK-TEST12345678", "/api/bookings/", "BK-TEST12345678", false},
		{"with action suffix", "/api/bookings/BK-TEST12345678/cancel", "/api/bookings/", "BK-TEST12345678", false},
		{"empty reference", "/api/bookings/", "/api/bookings/", "", true},
		{"wrong prefix", "/api/other/BK-TEST12345678", "/api/bookings/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractReferenceFromPath(tt.path, tt.prefix)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractUUIDFromPath(t *testing.T) {
	id := uuid.New()

	got, err := extractUUIDFromPath("/api/payments/intents/"+id.String(), "/api/payments/intents/")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = extractUUIDFromPath("/api/payments/intents/not-a-uuid", "/api/payments/intents/")
	assert.Error(t, err)
}

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", defaultListLimit, 0},
		{"explicit values", "?limit=10&offset=20", 10, 20},
		{"limit above cap ignored", "?limit=500", defaultListLimit, 0},
		{"negative values ignored", "?limit=-5&offset=-1", defaultListLimit, 0},
		{"non-numeric ignored", "?limit=abc&offset=xyz", defaultListLimit, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookings"+tt.query, nil)
			limit, offset := parseListParams(req)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestExtractUserID(t *testing.T) {
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("X-User-ID", id.String())

	got, err := extractUserID(req)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	_, err = extractUserID(req)
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("X-User-ID", "not-a-uuid")
	_, err = extractUserID(req)
	assert.Error(t, err)
}

func TestWriteServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperror.NotFound("missing", nil), http.StatusNotFound},
		{"validation", apperror.Validation("bad input", nil), http.StatusBadRequest},
		{"conflict", apperror.Conflict("already exists", nil), http.StatusConflict},
		{"provider transient", apperror.ProviderTransient("timeout", nil), http.StatusBadGateway},
		{"provider permanent", apperror.ProviderPermanent("unmatched", nil), http.StatusUnprocessableEntity},
		{"ledger integrity is opaque", apperror.LedgerIntegrity("negative balance", nil), http.StatusInternalServerError},
		{"unclassified", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, newTestLogger(), tt.err, "internal message")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestWriteServiceErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, newTestLogger(), apperror.LedgerIntegrity("cashback balance went negative", nil), "Failed to process payment")

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "Failed to process payment", resp.Message)
	assert.NotContains(t, resp.Message, "cashback")
}
