package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
	"github.com/DaniDevGS/triven-shop/internal/db/dbtest"
	"github.com/DaniDevGS/triven-shop/internal/models"
	"github.com/DaniDevGS/triven-shop/internal/session"
)

func TestSignupRules(t *testing.T) {
	ctx := context.Background()
	svc := NewService(dbtest.Open(t), nil, nil)

	_, err := svc.Signup(ctx, SignupInput{Username: "ana", Email: "ana@example.com", Password1: "s3cret!!", Password2: "s3cret!!"})
	require.NoError(t, err)

	cases := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"passwords differ", SignupInput{Username: "bob", Password1: "aaaa1111", Password2: "aaaa2222"}, "password2"},
		{"password equals username", SignupInput{Username: "bob", Password1: "bob", Password2: "bob"}, "password1"},
		{"email taken", SignupInput{Username: "bob", Email: "ana@example.com", Password1: "x1y2z3w4", Password2: "x1y2z3w4"}, "email"},
		{"username taken", SignupInput{Username: "ana", Password1: "x1y2z3w4", Password2: "x1y2z3w4"}, "username"},
		{"username missing", SignupInput{Username: " ", Password1: "x1y2z3w4", Password2: "x1y2z3w4"}, "username"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tc.in)
			var verr *apperrors.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	t.Run("email is optional", func(t *testing.T) {
		u, err := svc.Signup(ctx, SignupInput{Username: "carla", Password1: "x1y2z3w4", Password2: "x1y2z3w4"})
		require.NoError(t, err)
		assert.Nil(t, u.Email)
		_, err = svc.Signup(ctx, SignupInput{Username: "dario", Password1: "x1y2z3w4", Password2: "x1y2z3w4"})
		require.NoError(t, err)
	})
}

func TestSignin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(dbtest.Open(t), nil, nil)
	created, err := svc.Signup(ctx, SignupInput{Username: "ana", Password1: "s3cret!!", Password2: "s3cret!!"})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!!", created.PasswordHash)

	user, err := svc.Signin(ctx, "ana", "s3cret!!")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = svc.Signin(ctx, "ana", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Signin(ctx, "nobody", "s3cret!!")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIsManager(t *testing.T) {
	svc := NewService(nil, nil, []string{"boss"})
	assert.True(t, svc.IsManager(&models.User{Username: "boss"}))
	assert.True(t, svc.IsManager(&models.User{Username: "ana", IsManager: true}))
	assert.False(t, svc.IsManager(&models.User{Username: "ana"}))
	assert.False(t, svc.IsManager(nil))
}

func TestUpsertFederated(t *testing.T) {
	ctx := context.Background()
	svc := NewService(dbtest.Open(t), nil, nil)
	_, err := svc.Signup(ctx, SignupInput{Username: "ana", Password1: "s3cret!!", Password2: "s3cret!!"})
	require.NoError(t, err)

	first, err := svc.upsertFederated(ctx, oidcClaims{Sub: "sub-1", Email: "luis@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "luis", first.Username)

	again, err := svc.upsertFederated(ctx, oidcClaims{Sub: "sub-1", PreferredUsername: "other"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	clash, err := svc.upsertFederated(ctx, oidcClaims{Sub: "sub-2", PreferredUsername: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "oidc-sub-2", clash.Username)
}

func newRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(sessions.Sessions(SessionName, cookie.NewStore([]byte("test-secret"))))
	r.POST("/auth/signup", svc.HandleSignup)
	r.POST("/auth/signin", svc.HandleSignin)
	r.POST("/auth/signout", svc.HandleSignout)
	r.GET("/auth/login", svc.HandleLogin)

	r.GET("/sid", func(c *gin.Context) {
		id, err := SessionID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id)
	})

	api := r.Group("/api", svc.RequireAuth())
	api.GET("/me", func(c *gin.Context) { c.JSON(http.StatusOK, CurrentUser(c)) })
	api.GET("/admin", svc.RequireManager(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func do(r http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionFlow(t *testing.T) {
	svc := NewService(dbtest.Open(t), nil, []string{"boss"})
	r := newRouter(svc)

	t.Run("anonymous is rejected", func(t *testing.T) {
		w := do(r, http.MethodGet, "/api/me", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("signup signs in", func(t *testing.T) {
		w := do(r, http.MethodPost, "/auth/signup", SignupInput{Username: "ana", Password1: "s3cret!!", Password2: "s3cret!!"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		me := do(r, http.MethodGet, "/api/me", nil, w.Result().Cookies())
		assert.Equal(t, http.StatusOK, me.Code)
		assert.Contains(t, me.Body.String(), `"username":"ana"`)
		assert.NotContains(t, me.Body.String(), "password")

		admin := do(r, http.MethodGet, "/api/admin", nil, w.Result().Cookies())
		assert.Equal(t, http.StatusForbidden, admin.Code)
	})

	t.Run("signup validation", func(t *testing.T) {
		w := do(r, http.MethodPost, "/auth/signup", SignupInput{Username: "x", Password1: "a", Password2: "b"}, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "password2")
	})

	t.Run("manager by configured username", func(t *testing.T) {
		w := do(r, http.MethodPost, "/auth/signup", SignupInput{Username: "boss", Password1: "s3cret!!", Password2: "s3cret!!"}, nil)
		require.Equal(t, http.StatusCreated, w.Code)

		signin := do(r, http.MethodPost, "/auth/signin", signinRequest{Username: "boss", Password: "s3cret!!"}, nil)
		require.Equal(t, http.StatusOK, signin.Code)

		admin := do(r, http.MethodGet, "/api/admin", nil, signin.Result().Cookies())
		assert.Equal(t, http.StatusNoContent, admin.Code)

		out := do(r, http.MethodPost, "/auth/signout", nil, signin.Result().Cookies())
		require.Equal(t, http.StatusOK, out.Code)
		after := do(r, http.MethodGet, "/api/me", nil, out.Result().Cookies())
		assert.Equal(t, http.StatusUnauthorized, after.Code)
	})

	t.Run("bad credentials", func(t *testing.T) {
		w := do(r, http.MethodPost, "/auth/signin", signinRequest{Username: "ana", Password: "nope"}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("session id is stable", func(t *testing.T) {
		first := do(r, http.MethodGet, "/sid", nil, nil)
		require.Equal(t, http.StatusOK, first.Code)
		second := do(r, http.MethodGet, "/sid", nil, first.Result().Cookies())
		assert.Equal(t, first.Body.String(), second.Body.String())
		assert.NotEmpty(t, first.Body.String())
	})

	t.Run("federated login disabled", func(t *testing.T) {
		w := do(r, http.MethodGet, "/auth/login", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSignoutDeletesSessionState(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()
	r := newRouter(NewService(dbtest.Open(t), store, nil))

	signup := do(r, http.MethodPost, "/auth/signup", SignupInput{Username: "ana", Password1: "s3cret!!", Password2: "s3cret!!"}, nil)
	require.Equal(t, http.StatusCreated, signup.Code)

	sid := do(r, http.MethodGet, "/sid", nil, signup.Result().Cookies())
	require.Equal(t, http.StatusOK, sid.Code)
	id := sid.Body.String()
	require.NoError(t, store.Save(ctx, id, session.State{CheckoutToken: "ABCD1234"}))

	out := do(r, http.MethodPost, "/auth/signout", nil, sid.Result().Cookies())
	require.Equal(t, http.StatusOK, out.Code)

	st, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, st.CheckoutToken)
	assert.True(t, st.Cart.IsEmpty())

	next := do(r, http.MethodGet, "/sid", nil, out.Result().Cookies())
	assert.NotEqual(t, id, next.Body.String())
}
