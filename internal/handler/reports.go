package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"homecare-dashboard/internal/middleware"
	"homecare-dashboard/internal/model"
	"homecare-dashboard/internal/report"
)

const reportListLimit = 20

func (h *Handler) reportsPage(c *gin.Context, code int, data gin.H) {
	ctx := c.Request.Context()
	uid := middleware.UserID(c)
	list, err := h.store.ListReports(ctx, uid, reportListLimit)
	if err != nil {
		h.fail(c, err, "loading your reports")
		return
	}
	counts, err := h.store.ReportCounts(ctx, uid)
	if err != nil {
		h.fail(c, err, "loading your reports")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	data["Title"] = "Reports"
	data["Reports"] = list
	data["Total"] = total
	data["Completed"] = counts[model.ReportCompleted]
	data["Failed"] = counts[model.ReportFailed]
	data["Kinds"] = report.Kinds
	data["Ranges"] = report.Ranges
	h.render(c, code, "reports.html", data)
}

func (h *Handler) Reports(c *gin.Context) {
	h.reportsPage(c, http.StatusOK, gin.H{})
}

func (h *Handler) GenerateReport(c *gin.Context) {
	kind := c.PostForm("kind")
	days, _ := strconv.Atoi(c.PostForm("range"))

	r, err := h.reports.Generate(c.Request.Context(), middleware.UserID(c), kind, days)
	switch {
	case errors.Is(err, report.ErrInvalid):
		h.reportsPage(c, http.StatusBadRequest, gin.H{"Error": "Please choose a report type and date range."})
	case err != nil && r != nil:
		// the row exists and is marked failed; the list shows it
		h.redirect(c, "/reports", "Report generation failed. Please try again.")
	case err != nil:
		h.fail(c, err, "generating the report")
	default:
		title, _ := report.KindTitle(r.Kind)
		h.redirect(c, "/reports", fmt.Sprintf("✅ %s generated successfully!", title))
	}
}

func (h *Handler) DownloadReport(c *gin.Context) {
	name, body, err := h.reports.Open(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	switch {
	case errors.Is(err, report.ErrNotReady):
		h.redirect(c, "/reports", "That report is not ready for download.")
		return
	case err != nil:
		h.fail(c, err, "downloading the report")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, report.ContentType, body)
}

