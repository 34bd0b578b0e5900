package controllers

import (
	"net/http"

	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/ctx"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// Signup handles POST /api/auth/signup.
func (ac *AuthController) Signup(c *ctx.Context) {
	var in services.SignupInput
	if !c.DecodeJSON(&in) {
		return
	}

	user, err := ac.auth.Signup(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, map[string]any{
		"message": "Signup successful",
		"user":    user.Account(),
	})
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *ctx.Context) {
	var in services.LoginInput
	if !c.DecodeJSON(&in) {
		return
	}

	user, err := ac.auth.Login(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user.Account(),
	})
}
