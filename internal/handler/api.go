package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"homecare-dashboard/internal/export"
	"homecare-dashboard/internal/medication"
	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/store"
	"homecare-dashboard/internal/vitals"
)

const (
	defaultAPIDays = 30
	maxAPIDays     = 365
	maxImportBytes = 1 << 20
)

type vitalJSON struct {
	ID           string  `json:"id"`
	Date         string  `json:"date"`
	Systolic     int     `json:"systolic"`
	Diastolic    int     `json:"diastolic"`
	BloodStatus  string  `json:"blood_status"`
	Category     string  `json:"category"`
	HeartRate    int     `json:"heart_rate"`
	Temperature  float64 `json:"temperature"`
	Glucose      int     `json:"glucose"`
	WaterBalance int     `json:"water_balance"`
}

func toVitalJSON(v model.VitalResult) vitalJSON {
	return vitalJSON{
		ID:           v.ID,
		Date:         v.Day.Format(vitals.DateLayout),
		Systolic:     v.Systolic,
		Diastolic:    v.Diastolic,
		BloodStatus:  v.BloodStatus,
		Category:     string(vitals.Classify(v.Systolic, v.Diastolic)),
		HeartRate:    v.HeartRate,
		Temperature:  v.Temperature,
		Glucose:      v.Glucose,
		WaterBalance: v.WaterBalance,
	}
}

type medicationJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Time     string  `json:"time"`
	Dose     float64 `json:"dose"`
	Type     string  `json:"type"`
	StartDay string  `json:"start_day,omitempty"`
	EndDay   string  `json:"end_day,omitempty"`
	Duration string  `json:"duration,omitempty"`
	Comments string  `json:"comments,omitempty"`
	Active   bool    `json:"active"`
	NextDue  string  `json:"next_due,omitempty"`
}

func apiDays(c *gin.Context) (int, error) {
	raw := c.Query("days")
	if raw == "" {
		return defaultAPIDays, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxAPIDays {
		return 0, fmt.Errorf("days must be between 1 and %d", maxAPIDays)
	}
	return n, nil
}

func (h *Handler) windowRows(c *gin.Context, ascending bool) ([]model.VitalResult, bool) {
	days, err := apiDays(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	from, to := vitals.Window(h.now(), days)
	rows, err := h.store.ListVitals(c.Request.Context(), middleware.UserID(c), from, to, ascending)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return nil, false
	}
	return rows, true
}

func (h *Handler) APIVitals(c *gin.Context) {
	rows, ok := h.windowRows(c, false)
	if !ok {
		return
	}
	out := make([]vitalJSON, 0, len(rows))
	for _, r := range rows {
		out = append(out, toVitalJSON(r))
	}
	c.JSON(http.StatusOK, gin.H{"vitals": out})
}

// ExportVitals streams the window oldest first in the framed binary format.
func (h *Handler) ExportVitals(c *gin.Context) {
	rows, ok := h.windowRows(c, true)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, rows); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="vitals-%s.bin"`, h.now().Format("20060102")))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// ImportVitals accepts an exported stream. Every record is validated and its
// blood status recomputed; nothing is written unless all records pass.
func (h *Handler) ImportVitals(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	rows, err := export.Decode(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	today := vitals.Day(h.now())
	seen := map[time.Time]bool{}
	clean := make([]model.VitalResult, 0, len(rows))
	for i, row := range rows {
		if row.Day.After(today) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("record %d: date is in the future", i+1)})
			return
		}
		if seen[row.Day] {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("record %d: duplicate date %s", i+1, row.Day.Format(vitals.DateLayout))})
			return
		}
		seen[row.Day] = true
		r := vitals.ReadingOf(row)
		if err := r.Validate(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("record %d: %v", i+1, err)})
			return
		}
		clean = append(clean, r.Result("", row.Day))
	}

	if err := h.store.ImportVitals(c.Request.Context(), middleware.UserID(c), clean); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": len(clean)})
}

func (h *Handler) APIMedications(c *gin.Context) {
	meds, err := h.store.ListMedications(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	now := h.now()
	today := vitals.Day(now)
	out := make([]medicationJSON, 0, len(meds))
	for _, m := range meds {
		j := medicationJSON{
			ID: m.ID, Name: m.Name, Time: medication.FormatHour(m.Hour), Dose: m.Dose, Type: m.Type,
			Duration: m.Duration, Comments: m.Comments, Active: medication.Active(m, today),
		}
		if m.StartDay != nil {
			j.StartDay = m.StartDay.Format(vitals.DateLayout)
		}
		if m.EndDay != nil {
			j.EndDay = m.EndDay.Format(vitals.DateLayout)
		}
		if next, ok := medication.NextDue(m, now); ok {
			j.NextDue = next.Format(time.RFC3339)
		}
		out = append(out, j)
	}
	c.JSON(http.StatusOK, gin.H{"medications": out})
}

type deviceRequest struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform"`
}

var platforms = map[string]bool{"android": true, "ios": true, "web": true}

func (h *Handler) RegisterDevice(c *gin.Context) {
	var req deviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token required"})
		return
	}
	req.Platform = strings.ToLower(strings.TrimSpace(req.Platform))
	if req.Platform == "" {
		req.Platform = "android"
	}
	if !platforms[req.Platform] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "platform must be android, ios or web"})
		return
	}
	d := &model.DeviceToken{Token: strings.TrimSpace(req.Token), UserID: middleware.UserID(c), Platform: req.Platform}
	if err := h.store.SaveDeviceToken(c.Request.Context(), d); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) UnregisterDevice(c *gin.Context) {
	err := h.store.DeleteDeviceToken(c.Request.Context(), middleware.UserID(c), c.Param("token"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown device"})
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		c.Status(http.StatusNoContent)
	}
}
