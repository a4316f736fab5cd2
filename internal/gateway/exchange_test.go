// ABOUTME: Tests for the session minter's exchange endpoint
// ABOUTME: Covers one-shot consumption, device binding, tenant isolation, error codes

package gateway

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardgate/wardgate/internal/cookie"
	"github.com/wardgate/wardgate/internal/cryptoutil"
	"github.com/wardgate/wardgate/internal/store"
)

func seedExchange(kv *store.MockKV, token, tenantName, deviceKey string) {
	hash := cryptoutil.NewProvider().SHA256Hex([]byte(deviceKey))
	kv.Seed("exchange:"+token, fmt.Sprintf(`{"tenant":%q,"device_hash":%q,"created_at":1700000000}`, tenantName, hash))
}

func exchangeRequestFor(token, deviceKey string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, ExchangePath, strings.NewReader(fmt.Sprintf(`{"exchangeToken":%q}`, token)))
	r.Host = "alice." + testTenantDomain
	if deviceKey != "" {
		r.Header.Set("Cookie", cookie.DeviceName+"="+deviceKey)
	}
	return r
}

func TestExchange_Success(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	seedExchange(kv, "tok-1", "alice", testDeviceKey)
	g, _ := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", testDeviceKey))

	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, cookie.SessionName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 604800, c.MaxAge)
	assert.Empty(t, c.Domain, "session cookie must be host-only")

	assert.False(t, kv.Has("exchange:tok-1"), "record must be consumed on success")
}

func TestExchange_MintedSessionGrantsAccess(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	seedExchange(kv, "tok-1", "alice", testDeviceKey)
	g, backend := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", testDeviceKey))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Result().Cookies()[0].Value

	r := tenantRequest(http.MethodGet, "/app")
	r.Header.Set("Cookie", cookie.SessionName+"="+token+"; "+cookie.DeviceName+"="+testDeviceKey)
	rec = httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, backend.hits)
}

func TestExchange_SecondConsumptionFails(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	seedExchange(kv, "tok-1", "alice", testDeviceKey)
	g, _ := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", testDeviceKey))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", testDeviceKey))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired session token"}`, rec.Body.String())
}

func TestExchange_UnknownToken(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	g, _ := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("doesnotexist", testDeviceKey))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired session token"}`, rec.Body.String())
}

func TestExchange_MalformedBody(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	g, _ := newTestGateway(t, kv)

	for _, body := range []string{"", "{not json", `{"exchangeToken":""}`, `{}`} {
		r := httptest.NewRequest(http.MethodPost, ExchangePath, strings.NewReader(body))
		r.Host = "alice." + testTenantDomain
		rec := httptest.NewRecorder()
		g.Handler().ServeHTTP(rec, r)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestExchange_CrossTenantToken(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	seedExchange(kv, "tok-bob", "bob", testDeviceKey)
	g, _ := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-bob", testDeviceKey))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, kv.Has("exchange:tok-bob"), "cross-tenant attempt must not consume the record")
}

func TestExchange_MissingDeviceCookie(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	seedExchange(kv, "tok-1", "alice", testDeviceKey)
	g, _ := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", ""))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, kv.Has("exchange:tok-1"), "record must remain for a retry with the device key")
}

func TestExchange_DeviceMismatchLeavesRecord(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	seedExchange(kv, "tok-1", "alice", testDeviceKey)
	g, _ := newTestGateway(t, kv)

	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", "some-other-device"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.True(t, kv.Has("exchange:tok-1"), "failed device binding must not consume the record")

	// The same token still works with the right device key
	rec = httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, exchangeRequestFor("tok-1", testDeviceKey))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestExchange_GetMethodNotRouted(t *testing.T) {
	kv := store.NewMockKV()
	seedTenant(kv, "alice", "bk_alice", true)
	g, _ := newTestGateway(t, kv)

	// A GET to the exchange path is an ordinary unauthenticated request
	r := tenantRequest(http.MethodGet, ExchangePath)
	r.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	g.Handler().ServeHTTP(rec, r)

	assert.Contains(t, rec.Body.String(), "Verification required")
}
