package dnsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"maildash/backend/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.Config{
		Cloudflare: config.CloudflareConfig{
			BaseURL: server.URL,
			APIKey:  "test-api-key",
			ZoneID:  "zone-1",
		},
		Mail: config.MailConfig{ApexDomain: "example.com"},
	}, zap.NewNop())
}

func cfSuccess(t *testing.T, w http.ResponseWriter, result interface{}) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"errors":  []interface{}{},
		"result":  result,
	}))
}

func TestListForwardRecords(t *testing.T) {
	t.Run("只保留forward-email记录", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/zones/zone-1/dns_records", r.URL.Path)
			assert.Equal(t, "TXT", r.URL.Query().Get("type"))
			assert.Equal(t, "example.com", r.URL.Query().Get("name"))
			assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

			cfSuccess(t, w, []Record{
				{ID: "rec-1", Content: "forward-email=alice:alice@personal.org"},
				{ID: "rec-2", Content: "v=spf1 include:smtp2go.com ~all"},
			})
		})

		records, err := client.ListForwardRecords(context.Background())

		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "rec-1", records[0].ID)
	})

	t.Run("API错误被透传", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"errors":  []map[string]interface{}{{"code": 9109, "message": "Invalid access token"}},
			}))
		})

		_, err := client.ListForwardRecords(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid access token")
	})
}

func TestFindRecordByAlias(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		cfSuccess(t, w, []Record{
			{ID: "rec-1", Content: "forward-email=alice:alice@personal.org,bob:bob@other.org"},
		})
	})

	t.Run("命中", func(t *testing.T) {
		record, err := client.FindRecordByAlias(context.Background(), "bob")

		require.NoError(t, err)
		assert.Equal(t, "rec-1", record.ID)
	})

	t.Run("未命中", func(t *testing.T) {
		_, err := client.FindRecordByAlias(context.Background(), "carol")
		assert.ErrorIs(t, err, ErrRecordNotFound)
	})
}

func TestCreateRecord(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var payload Record
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "TXT", payload.Type)
		assert.Equal(t, "@", payload.Name)
		assert.False(t, payload.Proxied)

		payload.ID = "rec-9"
		cfSuccess(t, w, payload)
	})

	record, err := client.CreateRecord(context.Background(), "forward-email=alice:alice@personal.org")

	require.NoError(t, err)
	assert.Equal(t, "rec-9", record.ID)
}

func TestPatchAndDeleteRecord(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		cfSuccess(t, w, nil)
	})

	require.NoError(t, client.PatchRecordContent(context.Background(), "rec-1", "forward-email=alice:alice@personal.org"))
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/zones/zone-1/dns_records/rec-1", gotPath)

	require.NoError(t, client.DeleteRecord(context.Background(), "rec-1"))
	assert.Equal(t, http.MethodDelete, gotMethod)
}

func TestNotConfigured(t *testing.T) {
	client := NewClient(&config.Config{}, zap.NewNop())

	assert.False(t, client.Configured())

	_, err := client.ListForwardRecords(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = client.CreateRecord(context.Background(), "forward-email=alice:a@b.com")
	assert.ErrorIs(t, err, ErrNotConfigured)

	assert.ErrorIs(t, client.PatchRecordContent(context.Background(), "rec-1", "x"), ErrNotConfigured)
	assert.ErrorIs(t, client.DeleteRecord(context.Background(), "rec-1"), ErrNotConfigured)
}
