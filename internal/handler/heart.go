package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/store"
	"homecare-dashboard/internal/vitals"
)

const historyDays = 30

// Heart renders one of the results, history or diagnosis tabs.
func (h *Handler) Heart(c *gin.Context) {
	switch c.DefaultQuery("tab", "results") {
	case "history":
		h.heartHistory(c)
	case "diagnosis":
		h.render(c, http.StatusOK, "heart.html", gin.H{
			"Title": "Heart health", "Tab": "diagnosis",
			"Form": readingForm{Date: h.now().Format(vitals.DateLayout)},
		})
	default:
		h.heartResults(c)
	}
}

func (h *Handler) heartResults(c *gin.Context) {
	uid := middleware.UserID(c)
	h.seedDemo(c, vitals.HeartProfile)

	latest, err := h.store.LatestVital(c.Request.Context(), uid)
	isDefault := false
	if errors.Is(err, store.ErrNotFound) {
		d := vitals.DefaultHeart
		latest, isDefault, err = &d, true, nil
	}
	if err != nil {
		h.fail(c, err, "loading your results")
		return
	}
	h.render(c, http.StatusOK, "heart.html", gin.H{
		"Title": "Heart health", "Tab": "results", "Latest": latest, "IsDefault": isDefault,
	})
}

func (h *Handler) heartHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	data := gin.H{"Title": "Heart health", "Tab": "history", "Days": historyDays}

	if raw := c.Query("date"); raw != "" {
		data["Date"] = raw
		day, err := vitals.ParseDay(raw)
		if err != nil {
			data["Error"] = err.Error()
			h.render(c, http.StatusBadRequest, "heart.html", data)
			return
		}
		v, err := h.store.VitalByDate(ctx, uid, day)
		switch {
		case errors.Is(err, store.ErrNotFound):
			data["Rows"] = []model.VitalResult{}
		case err != nil:
			h.fail(c, err, "loading your history")
			return
		default:
			data["Rows"] = []model.VitalResult{*v}
		}
		h.render(c, http.StatusOK, "heart.html", data)
		return
	}

	from, to := vitals.Window(h.now(), historyDays)
	rows, err := h.store.ListVitals(ctx, uid, from, to, false)
	if err != nil {
		h.fail(c, err, "loading your history")
		return
	}
	data["Rows"] = rows
	h.render(c, http.StatusOK, "heart.html", data)
}

// Diagnose records a reading for the chosen day (today by default). A
// second submission for the same day replaces the first.
func (h *Handler) Diagnose(c *gin.Context) {
	f, r, verrs := parseReading(c)
	day := vitals.Day(h.now())
	if f.Date != "" && verrs == nil {
		d, err := vitals.ParseDay(f.Date)
		switch {
		case err != nil:
			verrs = vitals.ValidationError{"date": err.Error()}
		case d.After(day):
			verrs = vitals.ValidationError{"date": "date cannot be in the future"}
		default:
			day = d
		}
	}
	if verrs != nil {
		h.render(c, http.StatusBadRequest, "heart.html", gin.H{
			"Title": "Heart health", "Tab": "diagnosis", "Form": f, "Errors": verrs,
			"Error": "Please fix the highlighted fields",
		})
		return
	}

	v := r.Result(middleware.UserID(c), day)
	if _, err := h.store.SaveVital(c.Request.Context(), &v); err != nil {
		h.fail(c, err, "saving your results")
		return
	}
	h.redirect(c, "/heart?tab=results", "Results saved successfully!")
}

func (h *Handler) loadRecord(c *gin.Context) (*model.VitalResult, bool) {
	v, err := h.store.VitalByID(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "loading the record")
		return nil, false
	}
	return v, true
}

func (h *Handler) EditRecordPage(c *gin.Context) {
	v, ok := h.loadRecord(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "record_edit.html", gin.H{
		"Title": "Edit record", "Record": v, "Form": readingFormOf(v),
	})
}

func (h *Handler) EditRecord(c *gin.Context) {
	v, ok := h.loadRecord(c)
	if !ok {
		return
	}
	f, r, verrs := parseReading(c)
	if verrs != nil {
		f.Date = v.Day.Format(vitals.DateLayout)
		h.render(c, http.StatusBadRequest, "record_edit.html", gin.H{
			"Title": "Edit record", "Record": v, "Form": f, "Errors": verrs,
			"Error": "Failed to update record",
		})
		return
	}

	updated := r.Result(v.UserID, v.Day)
	updated.ID = v.ID
	if err := h.store.UpdateVital(c.Request.Context(), &updated); err != nil {
		h.fail(c, err, "updating the record")
		return
	}
	h.redirect(c, "/heart?tab=history", "Record updated successfully!")
}

func (h *Handler) DeleteRecordPage(c *gin.Context) {
	v, ok := h.loadRecord(c)
	if !ok {
		return
	}
	h.render(c, http.StatusOK, "record_delete.html", gin.H{"Title": "Delete record", "Record": v})
}

func (h *Handler) DeleteRecord(c *gin.Context) {
	if err := h.store.DeleteVital(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		h.fail(c, err, "deleting the record")
		return
	}
	h.redirect(c, "/heart?tab=history", "Record deleted successfully!")
}
