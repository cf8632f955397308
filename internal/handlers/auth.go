package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"turtlecrossing/internal/middleware"
	"turtlecrossing/internal/services"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/register.html", nil)
}

func (h *AuthHandler) Register(c *gin.Context) {
	reg := services.Registration{
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
		Password: c.PostForm("password"),
		FullName: c.PostForm("full_name"),
	}
	user, err := h.users.Register(c.Request.Context(), reg)
	if err != nil {
		code := errorStatus(err)
		if code == http.StatusInternalServerError {
			abortWithError(c, err)
			return
		}
		Render(c, code, "auth/register.html", gin.H{"Error": err.Error(), "Username": reg.Username, "Email": reg.Email})
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	_ = session.Save()
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	username := c.PostForm("username")
	user, err := h.users.Authenticate(c.Request.Context(), username, c.PostForm("password"))
	if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrInactive) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": err.Error(), "Username": username})
		return
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	_ = session.Save()
	c.Redirect(http.StatusFound, backTo(c))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusFound, "/")
}
