package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpad/inkpad/internal/config"
	"github.com/inkpad/inkpad/internal/models"
	"github.com/inkpad/inkpad/internal/sessions"
	"github.com/inkpad/inkpad/internal/users"
)

// fake user repo
type fakeUserRepo struct{}

func (f *fakeUserRepo) UpsertBySub(ctx context.Context, u *models.User) (*models.User, error) {
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	return u, nil
}

func (f *fakeUserRepo) GetBySub(ctx context.Context, sub string) (*models.User, error) {
	return &models.User{Sub: sub, Email: "a@b.c", Name: "Alice"}, nil
}

// fake sessions repo
type fakeSessionsRepo struct {
	store map[string]*sessions.Session
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *sessions.Session) error {
	if f.store == nil {
		f.store = map[string]*sessions.Session{}
	}
	f.store[s.RefreshToken] = s
	return nil
}

func (f *fakeSessionsRepo) GetByRefresh(ctx context.Context, refresh string) (*sessions.Session, error) {
	s, ok := f.store[refresh]
	if !ok {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSessionsRepo) DeleteByRefresh(ctx context.Context, refresh string) error {
	delete(f.store, refresh)
	return nil
}

func authTestConfig(issuer string) *config.Config {
	cfg := &config.Config{}
	cfg.OIDC.IssuerURL = issuer
	cfg.OIDC.ClientID = "cid"
	cfg.OIDC.ClientSecret = "csecret"
	cfg.JWT.Secret = "auth-test-secret-32-bytes-xxxxxx"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 7 * 24 * time.Hour
	return cfg
}

func TestLoginAuthCodeSuccess(t *testing.T) {
	// craft an id_token with payload claims
	claims := map[string]interface{}{"sub": "test-sub", "email": "a@b.c", "name": "Alice"}
	b, _ := json.Marshal(claims)
	payload := base64.RawURLEncoding.EncodeToString(b)
	idToken := "hdr." + payload + ".sig"

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at", "id_token": idToken})
	}))
	defer tokenSrv.Close()

	cfg := authTestConfig(tokenSrv.URL)
	uSvc := users.NewService(&fakeUserRepo{})
	sSvc := sessions.NewService(&fakeSessionsRepo{})
	h := NewAuthHandler(cfg, uSvc, sSvc)

	// OIDC discovery is not served by the stub; fall back to payload parsing
	t.Setenv("ALLOW_INSECURE_TOKEN", "true")

	r := gin.New()
	h.Register(r.Group("/"))

	reqBody := `{"mode":"auth_code","code":"abc","redirect_uri":"http://localhost/cb"}`
	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got["accessToken"])
	assert.NotEmpty(t, got["refreshToken"])
	user := got["user"].(map[string]interface{})
	assert.Equal(t, "test-sub", user["sub"])
}

func TestLoginRejectsUnknownMode(t *testing.T) {
	h := NewAuthHandler(authTestConfig("http://unused"), users.NewService(&fakeUserRepo{}), sessions.NewService(&fakeSessionsRepo{}))
	r := gin.New()
	h.Register(r.Group("/"))

	req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"mode":"magic"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestAuthCodeToken_Success(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at", "id_token": "idtok"})
	}))
	defer tokenSrv.Close()

	cfg := config.OIDCConfig{IssuerURL: tokenSrv.URL, ClientID: "cid", ClientSecret: "csecret"}
	tr, err := requestAuthCodeToken(context.Background(), cfg, "code", "http://cb")
	assert.NoError(t, err)
	assert.Equal(t, "at", tr.AccessToken)
	assert.Equal(t, "idtok", tr.IDToken)
}

func TestRequestAuthCodeToken_Error(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Code not valid"}`))
	}))
	defer tokenSrv.Close()

	cfg := config.OIDCConfig{IssuerURL: tokenSrv.URL, ClientID: "cid", ClientSecret: "csecret"}
	_, err := requestAuthCodeToken(context.Background(), cfg, "bad", "http://cb")
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "token endpoint returned 400")
	}
}

// Some providers reject client_secret_post; the client must retry with Basic auth.
func TestRequestAuthCodeToken_FallbackToBasic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "basic-ok", "id_token": "idtok"})
			return
		}
		w.WriteHeader(401)
		_, _ = w.Write([]byte(`{"error":"unauthorized_client"}`))
	}))
	defer srv.Close()

	cfg := config.OIDCConfig{IssuerURL: srv.URL, ClientID: "cid", ClientSecret: "csecret"}
	tr, err := requestAuthCodeToken(context.Background(), cfg, "code", "http://cb")
	if assert.NoError(t, err) {
		assert.Equal(t, "basic-ok", tr.AccessToken)
	}
}

func TestRefresh_Success(t *testing.T) {
	cfg := authTestConfig("http://unused")
	uSvc := users.NewService(&fakeUserRepo{})
	sSvc := sessions.NewService(&fakeSessionsRepo{})
	h := NewAuthHandler(cfg, uSvc, sSvc)

	rt, err := sSvc.CreateSession(context.Background(), "sub-refresh", time.Hour)
	require.NoError(t, err)

	rg := gin.New()
	rg.POST("/auth/refresh", h.Refresh)

	body := fmt.Sprintf(`{"refresh_token":"%s"}`, rt)
	req := httptest.NewRequest("POST", "/auth/refresh", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rg.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got["access_token"])
}

func TestRefresh_InvalidRefresh(t *testing.T) {
	cfg := authTestConfig("http://unused")
	h := NewAuthHandler(cfg, users.NewService(&fakeUserRepo{}), sessions.NewService(&fakeSessionsRepo{}))

	rg := gin.New()
	rg.POST("/auth/refresh", h.Refresh)

	req := httptest.NewRequest("POST", "/auth/refresh", strings.NewReader(`{"refresh_token":"does-not-exist"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	rg.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_BlacklistsAccessAndDeletesRefresh(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	sessions.SetBlacklistClient(client)

	cfg := authTestConfig("http://unused")
	sSvc := sessions.NewService(&fakeSessionsRepo{})
	h := NewAuthHandler(cfg, users.NewService(&fakeUserRepo{}), sSvc)

	rt, err := sSvc.CreateSession(context.Background(), "sub-1", time.Hour)
	require.NoError(t, err)

	exp := time.Now().Add(2 * time.Minute).Unix()
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"sub-1","exp":%d}`, exp)))
	access := "hdr." + payload + ".sig"

	rp := gin.New()
	h.Register(rp.Group("/"))

	body := fmt.Sprintf(`{"refresh_token":"%s"}`, rt)
	req := httptest.NewRequest("POST", "/auth/logout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+access)
	w := httptest.NewRecorder()
	rp.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	// refresh session should be gone
	sess, err := sSvc.ValidateRefresh(context.Background(), rt)
	assert.NoError(t, err)
	assert.Nil(t, sess)

	// access token blacklisted in redis
	assert.True(t, m.Exists("blacklist:access:"+access))
}

func TestParseExpFromJWT_VariousFormats(t *testing.T) {
	extra := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"s1","exp":1700000000}`))
	expTime, err := parseExpFromJWT("hdr." + extra + ".sig")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), expTime.Unix())

	nopayload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"s2"}`))
	if _, err := parseExpFromJWT("hdr." + nopayload + ".sig"); err == nil {
		t.Fatalf("expected error for missing exp claim")
	}

	if _, err := parseExpFromJWT("not-a-jwt"); err == nil {
		t.Fatalf("expected error for malformed token")
	}
}
