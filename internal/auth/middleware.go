package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

const (
	SessionName = "gosess"

	userKey      = "user_id"
	sessionIDKey = "sid"
	stateKey     = "oidc_state"
	contextUser  = "user"
)

// RequireAuth ensures the visitor is signed in and puts *models.User on the
// context.
func (s *Service) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		userID, ok := sess.Get(userKey).(uint)
		if !ok || userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := s.User(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		c.Set(contextUser, user)
		c.Next()
	}
}

// RequireManager must run after RequireAuth.
func (s *Service) RequireManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.IsManager(CurrentUser(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "manager access required"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(contextUser)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// SessionID returns the opaque id keying the visitor's server-side state,
// assigning one on first use.
func SessionID(c *gin.Context) (string, error) {
	sess := sessions.Default(c)
	if id, ok := sess.Get(sessionIDKey).(string); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	sess.Set(sessionIDKey, id)
	return id, sess.Save()
}

// login binds the cookie session to user. A different account signing in on
// the same browser starts from fresh server-side state.
func (s *Service) login(c *gin.Context, user *models.User) error {
	sess := sessions.Default(c)
	if prev, _ := sess.Get(userKey).(uint); prev != user.ID {
		s.dropState(c, sess)
	}
	sess.Set(userKey, user.ID)
	return sess.Save()
}

// dropState forgets the session id and deletes the cart and checkout token
// stored under it.
func (s *Service) dropState(c *gin.Context, sess sessions.Session) {
	id, _ := sess.Get(sessionIDKey).(string)
	sess.Delete(sessionIDKey)
	if id == "" || s.sessions == nil {
		return
	}
	if err := s.sessions.Delete(c.Request.Context(), id); err != nil {
		slog.Warn("failed to delete session state",
			slog.String("sid", id),
			slog.String(logkey.ERROR, err.Error()))
	}
}
