package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "console_session", strings.Repeat("s", 40), time.Hour, false), mr
}

func commit(t *testing.T, sm *SessionManager, sess *Session) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	sm, mr := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("theme", "dark")
	cookie := commit(t, sm, sess)
	assert.Equal(t, sess.ID, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	assert.True(t, mr.Exists(sm.redisKey(sess.ID)))
	assert.False(t, mr.Exists("console:session:"+sess.ID), "raw cookie value must not be a redis key")
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL(sm.redisKey(sess.ID)).Seconds(), 1)

	loaded, err := sm.Load(ctx, requestWith(cookie))
	require.NoError(t, err)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "dark", loaded.Get("theme"))
	assert.False(t, loaded.Dirty())
}

func TestSessionRenewDropsPreviousID(t *testing.T) {
	sm, mr := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.Set("k", "v")
	cookie := commit(t, sm, sess)

	loaded, err := sm.Load(ctx, requestWith(cookie))
	require.NoError(t, err)
	oldID := loaded.ID
	sm.Renew(loaded)
	renewed := commit(t, sm, loaded)

	assert.NotEqual(t, oldID, renewed.Value)
	assert.False(t, mr.Exists(sm.redisKey(oldID)))
	again, err := sm.Load(ctx, requestWith(renewed))
	require.NoError(t, err)
	assert.Equal(t, "v", again.Get("k"))
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	sm, mr := newSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	commit(t, sm, sess)
	require.True(t, mr.Exists(sm.redisKey(sess.ID)))

	sm.Destroy(sess)
	cookie := commit(t, sm, sess)
	assert.Equal(t, -1, cookie.MaxAge)
	assert.False(t, mr.Exists(sm.redisKey(sess.ID)))
}

func TestSessionCorruptPayloadStartsFresh(t *testing.T) {
	sm, mr := newSessionManager(t)
	require.NoError(t, mr.Set(sm.redisKey("abc"), "{not json"))

	sess, err := sm.Load(context.Background(), requestWith(&http.Cookie{Name: "console_session", Value: "abc"}))
	require.NoError(t, err)
	assert.NotEqual(t, "abc", sess.ID)
	assert.Empty(t, sess.Get("theme"))
}

func TestStoreKeyHandlesLongSecrets(t *testing.T) {
	assert.Nil(t, storeKey(""))
	assert.Len(t, storeKey(strings.Repeat("x", 100)), 32)
	assert.Equal(t, []byte("short"), storeKey("short"))
}

func TestCSRFTokens(t *testing.T) {
	m := NewCSRFManager(strings.Repeat("c", 32))
	sess := &Session{ID: "s1"}
	ctx := context.Background()

	require.ErrorIs(t, m.VerifyToken(ctx, sess, "anything"), ErrCSRFTokenMissing)

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	again, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, token, again)

	assert.NoError(t, m.VerifyToken(ctx, sess, token))
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	assert.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)

	m.Rotate(sess)
	fresh, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	assert.NotEqual(t, token, fresh)
}

func TestTokenFromRequestPrefersForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(CSRFFormField+"=form-token"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(CSRFHeader, "header-token")
	assert.Equal(t, "form-token", TokenFromRequest(req))

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(CSRFHeader, "header-token")
	assert.Equal(t, "header-token", TokenFromRequest(req))
}

func TestPagination(t *testing.T) {
	p := NewPagination(1, 20, 45)
	assert.Equal(t, 3, p.Pages)
	assert.False(t, p.HasPrev())
	assert.True(t, p.HasNext())
	assert.Equal(t, 1, p.Prev())
	assert.Equal(t, 2, p.Next())
	assert.Equal(t, 1, p.From())
	assert.Equal(t, 20, p.To())

	last := NewPagination(3, 20, 45)
	assert.False(t, last.HasNext())
	assert.Equal(t, 3, last.Next())
	assert.Equal(t, 41, last.From())
	assert.Equal(t, 45, last.To())
	assert.Equal(t, 3, last.Clamp(9))
	assert.Equal(t, 1, last.Clamp(0))

	empty := NewPagination(0, 0, 0)
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPageSize}, empty)
	assert.Equal(t, 0, empty.From())
	assert.False(t, empty.HasNext())

	assert.Equal(t, 3, Pagination{Page: 1, Total: 45}.Normalize().Pages)
	kept := Pagination{Page: 2, Limit: 10, Total: 45, Pages: 5}
	assert.Equal(t, kept, kept.Normalize())
}
