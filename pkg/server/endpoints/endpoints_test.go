package endpoints

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/credvault/pkg/access"
	"github.com/doodlesbykumbi/credvault/pkg/audit"
	"github.com/doodlesbykumbi/credvault/pkg/cipher"
	"github.com/doodlesbykumbi/credvault/pkg/config"
	"github.com/doodlesbykumbi/credvault/pkg/content"
	"github.com/doodlesbykumbi/credvault/pkg/policy"
	"github.com/doodlesbykumbi/credvault/pkg/server"
	"github.com/doodlesbykumbi/credvault/pkg/server/middleware"
	"github.com/doodlesbykumbi/credvault/pkg/store/memory"
	"github.com/doodlesbykumbi/credvault/pkg/vault"
)

const testPolicy = `
users:
  - {id: root, name: Root, role: global_admin}
  - {id: alice, name: Alice}
  - {id: bob, name: Bob}
groups:
  - {id: db-editors, name: DB editors, actions: [EDIT]}
memberships:
  - {user: alice, group: db-editors, categories: [database], environments: [production]}
`

type harness struct {
	handler http.Handler
	auth    *middleware.JWTAuthenticator
	mem     *memory.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	mem := memory.New()
	_, err := policy.NewLoader(mem).WithLogger(logger).LoadFromReader(ctx, strings.NewReader(testPolicy))
	require.NoError(t, err)

	keys, err := cipher.NewKeyring(bytes.Repeat([]byte{1}, 32))
	require.NoError(t, err)
	recorder := audit.NewRecorder(mem, mem, mem, audit.Options{Log: logger, AuditPersonal: true})
	svc, err := vault.NewService(vault.Options{
		Credentials: mem,
		Users:       mem,
		Keys:        keys,
		Content:     content.NewMemoryStore(),
		Audit:       recorder,
		Log:         logger,
	})
	require.NoError(t, err)

	auth, err := middleware.NewJWTAuthenticator(middleware.JWTOptions{
		Secret: []byte(strings.Repeat("k", 32)),
		Log:    logger,
	})
	require.NoError(t, err)

	cfg, err := config.Load()
	require.NoError(t, err)

	srv := server.NewServer(server.Options{
		Vault:         svc,
		Access:        access.NewBuilder(mem),
		Audit:         recorder,
		Health:        mem,
		Config:        cfg,
		JWTMiddleware: auth,
		Log:           logger,
		Version:       "test",
	})
	RegisterAll(srv)
	return &harness{handler: srv.Handler(), auth: auth, mem: mem}
}

func (h *harness) do(t *testing.T, user, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "192.0.2.10:1234"
	if user != "" {
		token, err := h.auth.Issue(user, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func passwordBody(name, category, env string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "PASSWORD",
		"name":        name,
		"category":    category,
		"environment": env,
		"fields":      map[string]string{"username": "svc", "password": "hunter2"},
	}
}

func (h *harness) create(t *testing.T, user string, body map[string]interface{}) string {
	t.Helper()
	rec := h.do(t, user, "POST", "/credentials", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var res struct {
		ID string `json:"id"`
	}
	decode(t, rec, &res)
	return res.ID
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	h := newHarness(t)
	rec := h.do(t, "", "GET", "/credentials", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndGetCredential(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "alice", passwordBody("db", "database", "production"))

	rec := h.do(t, "alice", "GET", "/credentials/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d struct {
		Name    string            `json:"name"`
		Version int               `json:"version"`
		Fields  map[string]string `json:"fields"`
	}
	decode(t, rec, &d)
	assert.Equal(t, "db", d.Name)
	assert.Equal(t, 1, d.Version)
	assert.Equal(t, "hunter2", d.Fields["password"])

	rows := h.mem.AuditRows()
	require.NotEmpty(t, rows)
	assert.Equal(t, "192.0.2.10", rows[len(rows)-1].SourceAddress)
}

func TestCreateCredentialErrors(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name string
		user string
		body interface{}
		code int
		key  string
	}{
		{"unknown type", "alice", map[string]interface{}{"type": "SSH"}, http.StatusUnprocessableEntity, "type"},
		{"missing name", "alice", passwordBody("", "database", "production"), http.StatusUnprocessableEntity, "name"},
		{"out of scope", "alice", passwordBody("x", "network", "lab"), http.StatusForbidden, ""},
		{"malformed fields", "alice", map[string]interface{}{"type": "TOKEN", "name": "t", "category": "database", "environment": "production", "fields": "oops"}, http.StatusUnprocessableEntity, "fields"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, tt.user, "POST", "/credentials", tt.body)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			if tt.key != "" {
				var body struct {
					Errors map[string]string `json:"errors"`
				}
				decode(t, rec, &body)
				assert.Contains(t, body.Errors, tt.key)
			}
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/credentials", strings.NewReader("{"))
		token, err := h.auth.Issue("alice", time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHiddenAndMissingBothReturnNotFound(t *testing.T) {
	h := newHarness(t)
	personal := passwordBody("mine", "misc", "home")
	personal["isPersonal"] = true
	id := h.create(t, "bob", personal)

	for _, path := range []string{"/credentials/" + id, "/credentials/nope"} {
		rec := h.do(t, "root", "GET", path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body map[string]string
		decode(t, rec, &body)
		assert.Equal(t, "Not found", body["error"])
	}
}

func TestUpdateCredential(t *testing.T) {
	h := newHarness(t)
	body := passwordBody("db", "database", "production")
	body["expiresAt"] = time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	id := h.create(t, "root", body)

	rec := h.do(t, "alice", "PATCH", "/credentials/"+id, map[string]interface{}{
		"version": 1,
		"name":    "db (rotated)",
		"type":    "PASSWORD",
		"fields":  map[string]string{"username": "svc2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d struct {
		Name      string            `json:"name"`
		Version   int               `json:"version"`
		ExpiresAt *time.Time        `json:"expiresAt"`
		Fields    map[string]string `json:"fields"`
	}
	decode(t, rec, &d)
	assert.Equal(t, 2, d.Version)
	assert.Equal(t, "svc2", d.Fields["username"])
	assert.Equal(t, "hunter2", d.Fields["password"])
	assert.NotNil(t, d.ExpiresAt)

	rec = h.do(t, "alice", "PATCH", "/credentials/"+id, map[string]interface{}{"version": 1, "name": "stale"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, "alice", "PATCH", "/credentials/"+id, map[string]interface{}{"version": 2, "expiresAt": nil})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d.ExpiresAt = nil
	decode(t, rec, &d)
	assert.Nil(t, d.ExpiresAt)

	rec = h.do(t, "alice", "PATCH", "/credentials/"+id, map[string]interface{}{
		"version": 3,
		"fields":  map[string]string{"username": "x"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteCredential(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "root", passwordBody("db", "database", "production"))

	assert.Equal(t, http.StatusForbidden, h.do(t, "alice", "DELETE", "/credentials/"+id, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(t, "bob", "DELETE", "/credentials/"+id, nil).Code)
	assert.Equal(t, http.StatusNoContent, h.do(t, "root", "DELETE", "/credentials/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, "root", "DELETE", "/credentials/"+id, nil).Code)
}

func TestListCredentials(t *testing.T) {
	h := newHarness(t)
	h.create(t, "root", passwordBody("db", "database", "production"))
	h.create(t, "root", passwordBody("router", "network", "lab"))

	rec := h.do(t, "alice", "GET", "/credentials?sort=name", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]interface{}
	decode(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "db", items[0]["name"])
	assert.NotContains(t, items[0], "fields")

	rec = h.do(t, "alice", "GET", "/credentials?limit=abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.do(t, "alice", "GET", "/credentials?type=nope", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFileContentDownload(t *testing.T) {
	h := newHarness(t)
	data := []byte("ssh-ed25519 AAAA")
	id := h.create(t, "alice", map[string]interface{}{
		"type":        "FILE",
		"name":        "deploy key",
		"category":    "database",
		"environment": "production",
		"fields": map[string]string{
			"fileName": "id.pub",
			"fileType": "text/plain",
			"content":  base64.StdEncoding.EncodeToString(data),
		},
	})

	rec := h.do(t, "alice", "GET", "/credentials/"+id+"/content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, data, rec.Body.Bytes())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "id.pub")
}

func TestShares(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "alice", passwordBody("db", "database", "production"))

	rec := h.do(t, "alice", "POST", "/credentials/"+id+"/shares", map[string]string{"userId": "bob", "permission": "read"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(t, "alice", "POST", "/credentials/"+id+"/shares", map[string]string{"userId": "bob", "permission": "OWN"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = h.do(t, "alice", "GET", "/credentials/"+id+"/shares", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var shares []map[string]interface{}
	decode(t, rec, &shares)
	require.Len(t, shares, 1)
	assert.Equal(t, "READ", shares[0]["permission"])
}

func TestAuditEndpoint(t *testing.T) {
	h := newHarness(t)
	id := h.create(t, "alice", passwordBody("db", "database", "production"))
	require.Equal(t, http.StatusOK, h.do(t, "alice", "GET", "/credentials/"+id, nil).Code)

	assert.Equal(t, http.StatusForbidden, h.do(t, "alice", "GET", "/audit", nil).Code)

	rec := h.do(t, "root", "GET", "/audit?action=VIEW&actor=alice&pageSize=10", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page audit.Page
	decode(t, rec, &page)
	assert.Equal(t, int64(1), page.TotalCount)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Alice", page.Rows[0].ActorName)
	assert.Equal(t, 10, page.PageSize)

	rec = h.do(t, "root", "GET", "/audit?from=yesterday", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = h.do(t, "root", "GET", "/audit?action=EXPLODE", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestStatusAndMetrics(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, "", "GET", "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	decode(t, rec, &status)
	assert.Equal(t, StatusResponse{Status: "ok", Version: "test", Database: "ok"}, status)

	h.mem.FailOn("CheckConnectivity", errors.New("down"))
	rec = h.do(t, "", "GET", "/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = h.do(t, "", "GET", "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "credvault_http_requests_total")
}
