package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"presence/internal/auth"
	"presence/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        auth.Profile `json:"user"`
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithCause(c, http.StatusBadRequest, "email and password are required", err)
		return
	}

	res, err := a.auth.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidInput):
		obs.LoginAttempt("invalid")
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	case errors.Is(err, auth.ErrNotFound):
		obs.LoginAttempt("not_found")
		fail(c, http.StatusNotFound, "Email is not found!")
		return
	case errors.Is(err, auth.ErrUnauthorized):
		obs.LoginAttempt("wrong_password")
		fail(c, http.StatusUnauthorized, "Wrong password!")
		return
	default:
		obs.LoginAttempt("error")
		internalError(c, "login", err)
		return
	}

	obs.LoginAttempt("ok")
	success(c, http.StatusOK, "Login successful", loginResponse{
		AccessToken: res.Token.AccessToken,
		ExpiresAt:   res.Token.ExpiresAt,
		User:        res.User,
	})
}
