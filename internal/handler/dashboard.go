package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare-dashboard/internal/auth"
	"homecare-dashboard/internal/medication"
	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/store"
	"homecare-dashboard/internal/vitals"
)

// currentUser loads the signed-in account. When the account is gone (deleted
// from another browser) the session is dropped and the browser is sent back
// to the login page.
func (h *Handler) currentUser(c *gin.Context) (*model.User, bool) {
	u, err := h.store.UserByID(c.Request.Context(), middleware.UserID(c))
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.endSession(c)
		c.Redirect(http.StatusFound, "/login")
		return nil, false
	case err != nil:
		h.fail(c, err, "loading your profile")
		return nil, false
	}
	return u, true
}

// endSession deletes the server-side session and clears the cookie.
func (h *Handler) endSession(c *gin.Context) {
	if id, _, ok := middleware.CurrentSession(c); ok {
		if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
			h.log.WithError(err).Warn("delete session")
		}
	}
	h.clearSessionCookie(c)
}

// Dashboard shows the latest reading (or defaults), the last week of blood
// pressure and the profile card.
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	h.seedDemo(c, vitals.DashboardProfile)

	latest, err := h.store.LatestVital(ctx, uid)
	isDefault := false
	if errors.Is(err, store.ErrNotFound) {
		d := vitals.DefaultSummary
		latest, isDefault, err = &d, true, nil
	}
	if err != nil {
		h.fail(c, err, "loading your vitals")
		return
	}

	now := h.now()
	from, to := vitals.Window(now, 7)
	history, err := h.store.ListVitals(ctx, uid, from, to, true)
	if err != nil {
		h.fail(c, err, "loading your blood pressure history")
		return
	}

	meds, err := h.store.ListMedications(ctx, uid)
	if err != nil {
		h.fail(c, err, "loading your medications")
		return
	}
	today := vitals.Day(now)
	var dueToday []model.Medication
	for _, m := range meds {
		if medication.Active(m, today) {
			dueToday = append(dueToday, m)
		}
	}

	h.render(c, http.StatusOK, "dashboard.html", gin.H{
		"Title":     "Dashboard",
		"User":      u,
		"Latest":    latest,
		"IsDefault": isDefault,
		"History":   history,
		"Trend":     vitals.Summarize(history),
		"DueToday":  dueToday,
	})
}

func (h *Handler) EditProfilePage(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "profile_edit.html", gin.H{
		"Title": "Edit profile", "Form": profileOf(u), "BloodTypes": BloodTypes,
	})
}

// EditProfile saves the profile. Leaving the password blank keeps the
// current one.
func (h *Handler) EditProfile(c *gin.Context) {
	ctx := c.Request.Context()

	f, err := parseProfile(c)
	if err == nil {
		err = f.validate(false)
	}
	data := gin.H{"Title": "Edit profile", "Form": f, "BloodTypes": BloodTypes}
	if err != nil {
		data["Error"] = err.Error()
		h.render(c, http.StatusBadRequest, "profile_edit.html", data)
		return
	}

	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	f.apply(u)
	u.PasswordHash = ""
	if f.Password != "" {
		if u.PasswordHash, err = auth.HashPassword(f.Password); err != nil {
			h.fail(c, err, "updating your profile")
			return
		}
	}
	if err := h.store.UpdateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			data["Error"] = "That email is already used by another account."
			h.render(c, http.StatusConflict, "profile_edit.html", data)
			return
		}
		h.fail(c, err, "updating your profile")
		return
	}

	if id, sess, ok := middleware.CurrentSession(c); ok {
		sess.Name = u.Name
		if err := h.sessions.Save(ctx, id, *sess); err != nil {
			h.log.WithError(err).Warn("refresh session name")
		}
	}
	h.redirect(c, "/dashboard", "Profile updated successfully!")
}

func (h *Handler) DeleteProfilePage(c *gin.Context) {
	h.render(c, http.StatusOK, "profile_delete.html", gin.H{"Title": "Delete account"})
}

// DeleteProfile removes the account and everything it owns, then ends the
// session.
func (h *Handler) DeleteProfile(c *gin.Context) {
	if c.PostForm("confirm") == "" {
		h.render(c, http.StatusBadRequest, "profile_delete.html", gin.H{
			"Title": "Delete account",
			"Error": "Please confirm that you understand this action is irreversible.",
		})
		return
	}

	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	if err := h.reports.Purge(ctx, uid); err != nil {
		h.log.WithError(err).WithField("user_id", uid).Warn("purge report files")
	}
	err := h.store.DeleteUser(ctx, uid)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.fail(c, err, "deleting your account")
		return
	}
	h.endSession(c)
	h.log.WithField("user_id", uid).Info("account deleted")
	c.Redirect(http.StatusSeeOther, "/login?deleted=1")
}
