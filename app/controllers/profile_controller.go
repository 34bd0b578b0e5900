package controllers

import (
	"net/http"

	"github.com/farm2home/farm2home/app/services"
	"github.com/farm2home/farm2home/pkg/ctx"
)

// ProfileController serves one role's profile endpoints; routes mount one
// per role.
type ProfileController struct {
	profiles *services.ProfileService
	role     string
}

func NewProfileController(profiles *services.ProfileService, role string) *ProfileController {
	return &ProfileController{profiles: profiles, role: role}
}

// Show handles GET /api/{role}/{email}. A missing profile renders the
// empty template.
func (pc *ProfileController) Show(c *ctx.Context) {
	profile, err := pc.profiles.Get(c.Context(), pathParam(c, "email"), pc.role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Save handles POST /api/{role}.
func (pc *ProfileController) Save(c *ctx.Context) {
	var body map[string]any
	if !c.DecodeJSON(&body) {
		return
	}

	if err := pc.profiles.Save(c.Context(), pc.role, body); err != nil {
		fail(c, err)
		return
	}
	c.Message(http.StatusOK, "Profile saved successfully!")
}
