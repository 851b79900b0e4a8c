package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentwire/leadharvest/internal/backend"
	"github.com/talentwire/leadharvest/internal/harvest"
	"github.com/talentwire/leadharvest/internal/retry"
)

func newTestClient(t *testing.T, baseURL string) *backend.Client {
	t.Helper()
	c, err := backend.NewClient(backend.Options{
		BaseURL:     baseURL,
		Token:       "test-token",
		SourceEmail: "operator@talentwire.io",
		JobSource:   "linkedin",
	})
	require.NoError(t, err)
	return c
}

func TestBulkUpsert(t *testing.T) {
	t.Parallel()

	var captured struct {
		Contacts []map[string]any `json:"contacts"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/vendor_contacts/bulk", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(backend.BulkResult{Inserted: 1, Duplicates: 1})
	}))
	defer srv.Close()

	contacts := []harvest.ContactRecord{
		{FullName: "Jane Doe", Email: "jane.doe@acme.com", Company: "Acme"},
		{FullName: "Bob Roe", Email: "bob@corp.io", Phone: "(214) 555-1234"},
	}
	result, err := newTestClient(t, srv.URL).BulkUpsert(context.Background(), contacts)
	require.NoError(t, err)
	assert.Equal(t, backend.BulkResult{Inserted: 1, Duplicates: 1}, result)

	require.Len(t, captured.Contacts, 2)
	assert.Equal(t, "jane.doe@acme.com", captured.Contacts[0]["email"])
	assert.Equal(t, "operator@talentwire.io", captured.Contacts[0]["source_email"])
	assert.Equal(t, "linkedin", captured.Contacts[0]["job_source"])
}

func TestBulkUpsertEmptyBatchSkipsRequest(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty batch")
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv.URL).BulkUpsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result)
}

func TestBulkUpsertCredentialExpired(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).BulkUpsert(context.Background(), []harvest.ContactRecord{{Email: "a@b.io"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, backend.ErrCredentialExpired)
	assert.True(t, retry.IsPermanent(err), "credential errors must not be retried")
}

func TestBulkUpsertServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).BulkUpsert(context.Background(), []harvest.ContactRecord{{Email: "a@b.io"}})
	require.Error(t, err)
	assert.False(t, retry.IsPermanent(err))
	assert.Contains(t, err.Error(), "502")
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	_, err := backend.NewClient(backend.Options{Token: "x"})
	assert.Error(t, err)

	_, err = backend.NewClient(backend.Options{BaseURL: "http://x"})
	assert.Error(t, err)
}
