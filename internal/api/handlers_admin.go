package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hireflow/hireflow/internal/repository"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// ExportApplicants streams an .xlsx workbook for the requested
// applicant ids, normalized across both upstream collections.
func (h *Handler) ExportApplicants(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "At least one applicant id is required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	data, err := h.exports.Export(c.Request.Context(), req.IDs)
	if err != nil {
		log.Error().Err(err).Int("ids", len(req.IDs)).Msg("Applicant export failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Export failed",
			Code:  "EXPORT_FAILED",
		})
		return
	}

	filename := fmt.Sprintf("applicants-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ListTestResults returns all stored results for a test, for the
// employer dashboard.
func (h *Handler) ListTestResults(results *repository.ResultsRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		all, err := results.GetResultsByTestID(c.Request.Context(), c.Param("id"))
		if err != nil {
			log.Error().Err(err).Str("testId", c.Param("id")).Msg("Failed to list results")
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "results": all})
	}
}
