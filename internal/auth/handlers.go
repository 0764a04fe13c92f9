package auth

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DaniDevGS/triven-shop/internal/apperrors"
)

type signinRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/signup
func (s *Service) HandleSignup(c *gin.Context) {
	var req SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := s.Signup(c.Request.Context(), req)
	if err != nil {
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	if err := s.login(c, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "signed up", "user": user, "is_manager": s.IsManager(user)})
}

// POST /auth/signin
func (s *Service) HandleSignin(c *gin.Context) {
	var req signinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := s.Signin(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	if err := s.login(c, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed in", "user": user, "is_manager": s.IsManager(user)})
}

// POST /auth/signout
func (s *Service) HandleSignout(c *gin.Context) {
	sess := sessions.Default(c)
	s.dropState(c, sess)
	sess.Delete(userKey)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// GET /auth/login
func (s *Service) HandleLogin(c *gin.Context) {
	if !s.OIDCEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "federated login is not configured"})
		return
	}
	state := uuid.NewString()
	sess := sessions.Default(c)
	sess.Set(stateKey, state)
	if err := sess.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.Redirect(http.StatusFound, s.authCodeURL(state))
}

// GET /auth/callback
func (s *Service) HandleCallback(c *gin.Context) {
	if !s.OIDCEnabled() {
		c.JSON(http.StatusNotFound, gin.H{"error": "federated login is not configured"})
		return
	}

	sess := sessions.Default(c)
	expected, _ := sess.Get(stateKey).(string)
	if expected == "" || c.Query("state") != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}
	sess.Delete(stateKey)

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code missing"})
		return
	}

	claims, err := s.exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	user, err := s.upsertFederated(c.Request.Context(), claims)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	if err := s.login(c, user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged in", "user": user, "is_manager": s.IsManager(user)})
}
