package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homecare-dashboard/internal/auth"
	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/session"
	"homecare-dashboard/internal/store"
)

// loginNotices are checked in order; the first query key present wins.
var loginNotices = []struct{ key, msg string }{
	{"deleted", "Account deleted successfully!"},
	{"logged_out", "Logged out successfully!"},
	{"created", "Account created successfully! Please log in."},
}

func (h *Handler) LoginPage(c *gin.Context) {
	data := gin.H{"Title": "Log in"}
	for _, n := range loginNotices {
		if c.Query(n.key) != "" {
			data["Notice"] = n.msg
			break
		}
	}
	h.render(c, http.StatusOK, "login.html", data)
}

func (h *Handler) Login(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
	password := c.PostForm("password")
	data := gin.H{"Title": "Log in", "Email": email}

	if email == "" || password == "" {
		data["Error"] = "Please enter both email and password"
		h.render(c, http.StatusBadRequest, "login.html", data)
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, err, "logging in")
		return
	}
	if err != nil || !auth.CheckPassword(u.PasswordHash, password) {
		data["Error"] = "Invalid email or password"
		h.render(c, http.StatusUnauthorized, "login.html", data)
		return
	}

	id, err := h.sessions.Create(c.Request.Context(), session.Data{UserID: u.ID, Name: u.Name})
	if err != nil {
		h.fail(c, err, "logging in")
		return
	}
	h.setSessionCookie(c, id)
	h.log.WithField("user_id", u.ID).Info("user logged in")
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (h *Handler) SignupPage(c *gin.Context) {
	h.render(c, http.StatusOK, "signup.html", gin.H{
		"Title":      "Sign up",
		"Form":       profileForm{Age: 25, Weight: 70, Height: 170, BloodType: "A+"},
		"BloodTypes": BloodTypes,
	})
}

func (h *Handler) Signup(c *gin.Context) {
	f, err := parseProfile(c)
	if err == nil {
		err = f.validate(true)
	}
	data := gin.H{"Title": "Sign up", "Form": f, "BloodTypes": BloodTypes}
	if err != nil {
		data["Error"] = err.Error()
		h.render(c, http.StatusBadRequest, "signup.html", data)
		return
	}

	hash, err := auth.HashPassword(f.Password)
	if err != nil {
		h.fail(c, err, "creating your account")
		return
	}
	u := &model.User{ID: uuid.New().String(), PasswordHash: hash}
	f.apply(u)

	if err := h.store.CreateUser(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			data["Error"] = "Registration failed. Email may already exist."
			h.render(c, http.StatusConflict, "signup.html", data)
			return
		}
		h.fail(c, err, "creating your account")
		return
	}
	h.log.WithField("user_id", u.ID).Info("user registered")
	c.Redirect(http.StatusSeeOther, "/login?created=1")
}

func (h *Handler) Logout(c *gin.Context) {
	if id, err := c.Cookie(middleware.CookieName); err == nil && id != "" {
		if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
			h.log.WithError(err).Warn("delete session")
		}
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login?logged_out=1")
}

type tokenRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Token exchanges credentials for an API bearer token.
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	u, err := h.store.UserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	tok, err := auth.MakeToken(u.ID, u.Name, h.cfg.JWTSecret, h.cfg.JWTTTL)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user_id": u.ID, "name": u.Name})
}
