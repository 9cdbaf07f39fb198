package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"presence/internal/users"
)

type editUserRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Password *string `json:"password"`
}

func (a *API) getUser(c *gin.Context) {
	u, err := a.users.GetByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		internalError(c, "get user", err)
		return
	}
	if u == nil {
		// absence is a valid result, not an error
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"code":    http.StatusOK,
			"message": "User retrieved successfully",
			"data":    nil,
		})
		return
	}
	success(c, http.StatusOK, "User retrieved successfully", u)
}

func (a *API) editUser(c *gin.Context) {
	var req editUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failWithCause(c, http.StatusBadRequest, "name and email are required", err)
		return
	}

	err := a.users.Edit(c.Request.Context(), c.Param("userId"), users.EditInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case err == nil:
		success(c, http.StatusOK, "User updated successfully", nil)
	case errors.Is(err, users.ErrInvalidInput):
		fail(c, http.StatusBadRequest, "name and email are required")
	case errors.Is(err, users.ErrNotFound):
		fail(c, http.StatusNotFound, "User is not found!")
	default:
		internalError(c, "edit user", err)
	}
}
