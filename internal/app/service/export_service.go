package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmarsden/tradescout-backend/internal/app/model"
	"github.com/tmarsden/tradescout-backend/internal/app/repository"
	"github.com/tmarsden/tradescout-backend/internal/storage"
	"github.com/tmarsden/tradescout-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const exportSheetName = "Leads"

var exportColumns = []string{
	"Name", "Category", "Status", "Address", "Postcode",
	"Phone", "Website", "Rating", "Reviews",
	"Company Number", "Company Name", "Directors", "Distance (m)",
}

// ExportResult describes one generated lead sheet.
type ExportResult struct {
	Filename    string `json:"filename"`
	RecordCount int    `json:"record_count"`
	FileURL     string `json:"file_url,omitempty"`     // set when uploaded to object storage
	DownloadURL string `json:"download_url,omitempty"` // time-limited presigned link
}

// ExportService turns stored business records into XLSX lead sheets.
type ExportService interface {
	ExportNearby(ctx context.Context, query NearbyQuery) ([]byte, *ExportResult, error)
	ExportAndUpload(ctx context.Context, query NearbyQuery) (*ExportResult, error)
}

type exportService struct {
	repo    repository.BusinessRepository
	storage *storage.S3Storage // nil disables uploads
}

// NewExportService wires the export pipeline. storage may be nil; exports
// are then download-only.
func NewExportService(repo repository.BusinessRepository, s3Storage *storage.S3Storage) ExportService {
	return &exportService{repo: repo, storage: s3Storage}
}

// ExportNearby generates an XLSX workbook of the records around a point.
func (s *exportService) ExportNearby(ctx context.Context, query NearbyQuery) ([]byte, *ExportResult, error) {
	if err := query.Point.Validate(); err != nil {
		return nil, nil, err
	}
	if query.RadiusMeters <= 0 {
		query.RadiusMeters = 20000
	}
	if query.Limit <= 0 {
		query.Limit = model.MaxResultCap
	}

	filter := repository.NearFilter{
		Category:     query.Category,
		VerifiedOnly: query.VerifiedOnly,
		MinRating:    query.MinRating,
	}
	businesses, err := s.repo.FindNear(query.Point, query.RadiusMeters, filter, query.Limit, query.Offset)
	if err != nil {
		return nil, nil, err
	}

	content, err := buildWorkbook(businesses)
	if err != nil {
		return nil, nil, err
	}

	result := &ExportResult{
		Filename:    exportFilename(query.Category),
		RecordCount: len(businesses),
	}
	return content, result, nil
}

// ExportAndUpload generates a workbook and stores it in object storage,
// returning the public and presigned URLs.
func (s *exportService) ExportAndUpload(ctx context.Context, query NearbyQuery) (*ExportResult, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("object storage is not configured")
	}

	content, result, err := s.ExportNearby(ctx, query)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s", time.Now().Format("2006-01-02"), result.Filename)
	fileURL, err := s.storage.UploadObject(ctx, key,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
	if err != nil {
		return nil, err
	}
	result.FileURL = fileURL

	downloadURL, err := s.storage.PresignDownload(ctx, key, 15*time.Minute)
	if err != nil {
		// the object is uploaded; a missing presigned link is not fatal
		logger.Warn("Failed to presign export download", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	} else {
		result.DownloadURL = downloadURL
	}
	return result, nil
}

func buildWorkbook(businesses []model.BusinessWithDistance) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(sheet)
	f.DeleteSheet("Sheet1")

	for col, header := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(exportSheetName, cell, header)
	}

	for i, business := range businesses {
		row := i + 2
		values := []interface{}{
			business.Name,
			business.Category,
			string(business.Status),
			business.Address,
			business.Postcode,
			business.PhoneNumber,
			business.Website,
			business.Rating,
			business.RatingCount,
			"", "", "",
			fmt.Sprintf("%.0f", business.DistanceMeters),
		}
		if business.Registry != nil {
			values[9] = business.Registry.CompanyNumber
			values[10] = business.Registry.CompanyName
			values[11] = directorNames(business.Registry.Directors)
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(exportSheetName, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func directorNames(directors []model.Director) string {
	names := make([]string, len(directors))
	for i, director := range directors {
		names[i] = director.Name
	}
	return strings.Join(names, "; ")
}

func exportFilename(category string) string {
	prefix := "leads"
	if category != "" {
		prefix = fmt.Sprintf("leads-%s", category)
	}
	return fmt.Sprintf("%s-%s.xlsx", prefix, uuid.New().String()[:8])
}
