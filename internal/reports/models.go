package reports

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/storage"
)

const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

const (
	StatusReady  = "ready"
	StatusFailed = "failed"
)

type CreateReportRequest struct {
	Format string `json:"format"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type ReportDTO struct {
	ID          uuid.UUID `json:"id"`
	Format      string    `json:"format"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	SizeBytes   int64     `json:"size_bytes"`
	Status      string    `json:"status"`
	Error       *string   `json:"error,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListReportsResponse struct {
	Reports []ReportDTO `json:"reports"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r CreateReportRequest) Validate() error {
	if r.Format != FormatPDF && r.Format != FormatCSV {
		return fmt.Errorf("format must be pdf or csv")
	}
	if r.From == "" || r.To == "" {
		return fmt.Errorf("from and to are required")
	}
	return nil
}

func toReportDTO(row storage.ReportMeta) ReportDTO {
	return ReportDTO{
		ID:        row.ID,
		Format:    row.Format,
		From:      row.FromDate,
		To:        row.ToDate,
		SizeBytes: row.SizeBytes,
		Status:    row.Status,
		Error:     row.Error,
		CreatedAt: row.CreatedAt,
	}
}
