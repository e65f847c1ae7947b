package reports

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/adherence"
	"github.com/mealminder/server/internal/blob"
	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/config"
	"github.com/mealminder/server/internal/storage"
)

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrRangeTooLarge  = errors.New("date range too large")
	ErrReportNotFound = errors.New("report not found")
)

// Service generates adherence report artifacts and stores them either in the
// blob store or inline in the reports storage (local mode).
type Service struct {
	config    *config.Config
	adherence *adherence.Service
	generator *Generator
	storage   storage.ReportsStorage
	blobStore blob.Store
	clock     clock.Clock
}

func NewService(cfg *config.Config, adherenceService *adherence.Service, generator *Generator, reportsStorage storage.ReportsStorage, blobStore blob.Store, clk clock.Clock) *Service {
	return &Service{
		config:    cfg,
		adherence: adherenceService,
		generator: generator,
		storage:   reportsStorage,
		blobStore: blobStore,
		clock:     clk,
	}
}

// Create evaluates the range, renders the artifact and persists it.
func (s *Service) Create(ctx context.Context, ownerUserID string, req CreateReportRequest) (ReportDTO, error) {
	if err := req.Validate(); err != nil {
		return ReportDTO{}, fmt.Errorf("%w: %s", ErrInvalidRequest, err.Error())
	}

	loc := s.clock.Location()
	fromDay, err := clock.ParseDate(req.From, loc)
	if err != nil {
		return ReportDTO{}, ErrInvalidRequest
	}
	toDay, err := clock.ParseDate(req.To, loc)
	if err != nil {
		return ReportDTO{}, ErrInvalidRequest
	}
	if toDay.Before(fromDay) {
		return ReportDTO{}, ErrInvalidRequest
	}
	if toDay.Sub(fromDay) > time.Duration(s.config.ReportsMaxRangeDays)*24*time.Hour {
		return ReportDTO{}, ErrRangeTooLarge
	}

	trend, err := s.adherence.Trend(ctx, ownerUserID, req.From, req.To)
	if err != nil {
		return ReportDTO{}, fmt.Errorf("failed to evaluate range: %w", err)
	}

	data, err := s.generator.Generate(req.Format, trend)
	if err != nil {
		return ReportDTO{}, fmt.Errorf("failed to generate report: %w", err)
	}

	meta := &storage.ReportMeta{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		Format:      req.Format,
		FromDate:    req.From,
		ToDate:      req.To,
		SizeBytes:   int64(len(data)),
		Status:      StatusReady,
	}

	if s.blobStore != nil {
		key := fmt.Sprintf("reports/%s/%s.%s", ownerUserID, meta.ID, req.Format)
		if _, err := s.blobStore.PutObject(ctx, key, data, contentTypeFor(req.Format)); err != nil {
			return ReportDTO{}, fmt.Errorf("failed to store report: %w", err)
		}
		meta.ObjectKey = &key
	} else {
		meta.Data = data
	}

	if err := s.storage.CreateReport(ctx, meta); err != nil {
		return ReportDTO{}, fmt.Errorf("failed to persist report meta: %w", err)
	}

	dto := toReportDTO(*meta)
	s.attachDownloadURL(ctx, &dto, *meta)
	return dto, nil
}

func (s *Service) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (ReportDTO, error) {
	meta, found, err := s.storage.GetReport(ctx, ownerUserID, id)
	if err != nil {
		return ReportDTO{}, fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return ReportDTO{}, ErrReportNotFound
	}

	dto := toReportDTO(meta)
	s.attachDownloadURL(ctx, &dto, meta)
	return dto, nil
}

func (s *Service) List(ctx context.Context, ownerUserID string, limit, offset int) (ListReportsResponse, error) {
	rows, err := s.storage.ListReports(ctx, ownerUserID, limit, offset)
	if err != nil {
		return ListReportsResponse{}, fmt.Errorf("failed to list reports: %w", err)
	}

	resp := ListReportsResponse{Reports: []ReportDTO{}}
	for _, row := range rows {
		resp.Reports = append(resp.Reports, toReportDTO(row))
	}
	return resp, nil
}

// Download returns the artifact bytes and content type, fetching from the
// blob store when the report was stored there.
func (s *Service) Download(ctx context.Context, ownerUserID string, id uuid.UUID) ([]byte, string, error) {
	meta, found, err := s.storage.GetReport(ctx, ownerUserID, id)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get report: %w", err)
	}
	if !found {
		return nil, "", ErrReportNotFound
	}

	contentType := contentTypeFor(meta.Format)

	if meta.ObjectKey != nil && s.blobStore != nil {
		data, err := s.blobStore.GetObject(ctx, *meta.ObjectKey)
		if err != nil {
			return nil, "", fmt.Errorf("failed to fetch report artifact: %w", err)
		}
		return data, contentType, nil
	}

	if len(meta.Data) == 0 {
		return nil, "", ErrReportNotFound
	}
	return meta.Data, contentType, nil
}

func (s *Service) attachDownloadURL(ctx context.Context, dto *ReportDTO, meta storage.ReportMeta) {
	if meta.ObjectKey == nil || s.blobStore == nil {
		return
	}
	url, err := s.blobStore.PresignGet(ctx, *meta.ObjectKey, s.config.Blob.S3.PresignTTLSeconds)
	if err != nil {
		log.Printf("reports: presign failed for %s: %v", meta.ID, err)
		return
	}
	dto.DownloadURL = url
}

func contentTypeFor(format string) string {
	if format == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}
