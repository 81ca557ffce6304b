package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tmarsden/tradescout-backend/internal/app/service"
	apperrors "github.com/tmarsden/tradescout-backend/internal/errors"
	"github.com/tmarsden/tradescout-backend/internal/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExportController struct {
	exportService service.ExportService
}

func NewExportController(exportService service.ExportService) *ExportController {
	return &ExportController{exportService: exportService}
}

// Download streams an XLSX lead sheet for the stored records around a point.
func (ctrl *ExportController) Download(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	query, ok := parseNearbyQuery(c)
	if !ok {
		return
	}

	content, result, err := ctrl.exportService.ExportNearby(c.Request.Context(), query)
	if err != nil {
		log.Error("Export failed", err, nil)
		apperrors.Respond(c, err)
		return
	}

	log.Info("Export generated", map[string]interface{}{
		"filename": result.Filename,
		"records":  result.RecordCount,
	})

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// Upload generates a lead sheet and stores it in object storage, answering
// with the file and presigned download URLs.
func (ctrl *ExportController) Upload(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	query, ok := parseNearbyQuery(c)
	if !ok {
		return
	}

	result, err := ctrl.exportService.ExportAndUpload(c.Request.Context(), query)
	if err != nil {
		log.Error("Export upload failed", err, nil)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.ExportUploadFailed,
			"Failed to store the export. Please try again later")
		return
	}

	log.Info("Export uploaded", map[string]interface{}{
		"filename": result.Filename,
		"records":  result.RecordCount,
	})

	c.JSON(http.StatusOK, result)
}
