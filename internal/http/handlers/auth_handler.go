// README: Registration and login handlers issuing bearer tokens.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/milagros-hr/proyecto-transport/internal/modules/users"
	"github.com/milagros-hr/proyecto-transport/internal/types"
)

type TokenIssuer interface {
	Issue(id types.ID, role types.Role) (string, error)
}

type AuthHandler struct {
	users  *users.Directory
	tokens TokenIssuer
}

func NewAuthHandler(dir *users.Directory, tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{users: dir, tokens: tokens}
}

type vehicleReq struct {
	Plate string `json:"plate" binding:"required,max=16"`
	Model string `json:"model" binding:"max=60"`
	Color string `json:"color" binding:"max=30"`
	Seats int    `json:"seats" binding:"gte=0,lte=12"`
}

type registerReq struct {
	Role     string      `json:"role" binding:"required,oneof=rider driver"`
	Name     string      `json:"name" binding:"required,max=100"`
	Email    string      `json:"email" binding:"required,email"`
	Phone    string      `json:"phone" binding:"max=20"`
	Password string      `json:"password" binding:"required,min=6,max=72"`
	Vehicle  *vehicleReq `json:"vehicle"`
}

type loginReq struct {
	Role     string `json:"role" binding:"required,oneof=rider driver"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenResp struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if !bindJSON(c, &req, false) {
		return
	}
	cmd := users.RegisterCommand{
		Role:     types.Role(req.Role),
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	}
	if req.Vehicle != nil {
		cmd.Vehicle = &users.Vehicle{Plate: req.Vehicle.Plate, Model: req.Vehicle.Model, Color: req.Vehicle.Color, Seats: req.Vehicle.Seats}
	}
	u, err := h.users.Register(c.Request.Context(), cmd)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if !bindJSON(c, &req, false) {
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password, types.Role(req.Role))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, u)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, u *users.User) {
	token, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, status, tokenResp{Token: token, User: u.Public()})
}
