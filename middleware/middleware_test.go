package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cleanclip/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, sub string, method jwt.SigningMethod, key interface{}) string {
	t.Helper()
	token := jwt.NewWithClaims(method, Claims{
		Email: "owner@sparkle.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	InitAuth(testSecret)
	r := gin.New()
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.String(http.StatusOK, id.String()+" "+GetEmail(c))
	})

	userID := uuid.New()
	valid := signToken(t, userID.String(), jwt.SigningMethodHS256, []byte(testSecret))

	w := serve(r, "Bearer "+valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String()+" owner@sparkle.test", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, valid).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer garbage").Code)

	wrongKey := signToken(t, userID.String(), jwt.SigningMethodHS256, []byte("other"))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+wrongKey).Code)

	badSubject := signToken(t, "not-a-uuid", jwt.SigningMethodHS256, []byte(testSecret))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+badSubject).Code)

	hs512 := signToken(t, userID.String(), jwt.SigningMethodHS512, []byte(testSecret))
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+hs512).Code)
}

type stubEnsurer struct {
	user *model.User
	err  error
}

func (s stubEnsurer) EnsureUser(_ context.Context, userID uuid.UUID, email string) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u := *s.user
	u.ID = userID
	u.Email = email
	return &u, nil
}

func subscriptionRouter(userID uuid.UUID, ensurer UserEnsurer) *gin.Engine {
	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	}, LoadUser(ensurer), RequireSubscription(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireSubscription(t *testing.T) {
	cases := map[model.SubscriptionStatus]int{
		model.SubscriptionActive:   http.StatusNoContent,
		model.SubscriptionTrialing: http.StatusNoContent,
		model.SubscriptionPastDue:  http.StatusPaymentRequired,
		model.SubscriptionCanceled: http.StatusPaymentRequired,
	}
	for status, want := range cases {
		r := subscriptionRouter(uuid.New(), stubEnsurer{user: &model.User{SubscriptionStatus: status}})
		assert.Equal(t, want, serve(r, "").Code, string(status))
	}
}

func TestLoadUser_StoreError(t *testing.T) {
	r := subscriptionRouter(uuid.New(), stubEnsurer{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, serve(r, "").Code)
}

func TestRequireAdmin(t *testing.T) {
	admin, other := uuid.New(), uuid.New()
	build := func(id uuid.UUID) *gin.Engine {
		r := gin.New()
		r.GET("/me", func(c *gin.Context) {
			c.Set("user_id", id)
			c.Next()
		}, RequireAdmin([]uuid.UUID{admin}), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		return r
	}

	assert.Equal(t, http.StatusNoContent, serve(build(admin), "").Code)
	assert.Equal(t, http.StatusForbidden, serve(build(other), "").Code)
}

func TestErrorHandlerMiddleware_RecoversPanic(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandlerMiddleware())
	r.GET("/me", func(c *gin.Context) {
		panic("boom")
	})

	w := serve(r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}
