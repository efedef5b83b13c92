package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/store"
	"homecare-dashboard/internal/vitals"
)

var MedicationTypes = []string{"Tablet", "Capsule", "Liquid", "Injection", "Inhaler", "Drops", "Cream"}

func (h *Handler) medicationsPage(c *gin.Context, code int, data gin.H) {
	meds, err := h.store.ListMedications(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "loading your medications")
		return
	}
	data["Title"] = "Medications"
	data["Medications"] = meds
	data["Types"] = MedicationTypes
	data["Today"] = vitals.Day(h.now())
	if _, ok := data["Form"]; !ok {
		data["Form"] = medicationForm{Hour: "8", Dose: "1", Type: "Tablet"}
	}
	h.render(c, code, "medications.html", data)
}

func (h *Handler) Medications(c *gin.Context) {
	h.medicationsPage(c, http.StatusOK, gin.H{})
}

func (h *Handler) AddMedication(c *gin.Context) {
	f, in, err := parseMedication(c)
	if err != nil {
		h.medicationsPage(c, http.StatusBadRequest, gin.H{"Form": f, "Error": err.Error()})
		return
	}

	m := in.Medication(middleware.UserID(c))
	m.ID = uuid.New().String()
	if err := h.store.CreateMedication(c.Request.Context(), &m); err != nil {
		h.fail(c, err, "adding the medication")
		return
	}
	h.redirect(c, "/medications", "Medication added successfully!")
}

func (h *Handler) DeleteMedication(c *gin.Context) {
	err := h.store.DeleteMedication(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.redirect(c, "/medications", "Medication not found.")
	case err != nil:
		h.fail(c, err, "deleting the medication")
	default:
		h.redirect(c, "/medications", "Medication deleted successfully!")
	}
}
