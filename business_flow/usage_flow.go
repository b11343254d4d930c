package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/xuri/excelize/v2"
)

// Usage export formats
const (
	ExportFormatCSV  = "csv"
	ExportFormatJSON = "json"
	ExportFormatXLSX = "xlsx"
)

// UsageFlow defines usage record operations for owned, active numbers
type UsageFlow interface {
	FetchCallRecords(ctx context.Context, customerID uint, numberUUID string, req *dto.UsageQueryRequest) (*dto.CallRecordsResponse, error)
	FetchSmsRecords(ctx context.Context, customerID uint, numberUUID string, req *dto.UsageQueryRequest) (*dto.SmsRecordsResponse, error)
	Stats(ctx context.Context, customerID uint, numberUUID string, req *dto.UsageQueryRequest) (*dto.UsageStatsResponse, error)
	ExportCallRecords(ctx context.Context, customerID uint, numberUUID, format string, req *dto.UsageQueryRequest) (*dto.UsageExport, error)
	ExportSmsRecords(ctx context.Context, customerID uint, numberUUID, format string, req *dto.UsageQueryRequest) (*dto.UsageExport, error)
}

// UsageFlowImpl implements the usage business logic
type UsageFlowImpl struct {
	numberRepo repository.PurchasedNumberRepository
	provider   services.TelephonyProvider
	logger     *log.Logger
}

// NewUsageFlow creates a new usage flow
func NewUsageFlow(numberRepo repository.PurchasedNumberRepository, provider services.TelephonyProvider) UsageFlow {
	return &UsageFlowImpl{
		numberRepo: numberRepo,
		provider:   provider,
		logger:     log.New(os.Stdout, "[UsageFlow] ", log.LstdFlags),
	}
}

// activeNumber loads the number and enforces ownership and activation
func (f *UsageFlowImpl) activeNumber(ctx context.Context, customerID uint, numberUUID string) (*models.PurchasedNumber, error) {
	number, err := f.numberRepo.ByUUID(ctx, numberUUID)
	if err != nil {
		return nil, fmt.Errorf("failed to load number: %w", err)
	}
	if number == nil || number.CustomerID != customerID {
		return nil, NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
	}
	if !number.IsProvisioned() || number.ProviderNumberID == nil {
		return nil, NewBusinessError("NUMBER_NOT_ACTIVE", "number is not active", ErrNumberNotActive)
	}
	return number, nil
}

// dateRange validates and converts the query bounds
func dateRange(req *dto.UsageQueryRequest) (*models.DateRange, error) {
	if req == nil {
		return nil, nil
	}
	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "start date cannot be after end date", ErrStartDateAfterEndDate)
	}
	if req.StartDate == nil && req.EndDate == nil {
		return nil, nil
	}
	return &models.DateRange{Start: req.StartDate, End: req.EndDate}, nil
}

// FetchCallRecords returns the number's call detail records inside the range
func (f *UsageFlowImpl) FetchCallRecords(ctx context.Context, customerID uint, numberUUID string, req *dto.UsageQueryRequest) (*dto.CallRecordsResponse, error) {
	number, err := f.activeNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}
	rng, err := dateRange(req)
	if err != nil {
		return nil, err
	}

	records, err := f.provider.GetCallRecords(ctx, *number.ProviderNumberID, rng)
	if err != nil {
		return nil, NewBusinessError("UPSTREAM_FAILURE", "upstream provider request failed", errors.Join(ErrUpstreamFailure, err))
	}

	return &dto.CallRecordsResponse{
		NumberUUID: number.UUID.String(),
		Records:    filterCallRecords(records, rng),
	}, nil
}

// FetchSmsRecords returns the number's SMS detail records inside the range
func (f *UsageFlowImpl) FetchSmsRecords(ctx context.Context, customerID uint, numberUUID string, req *dto.UsageQueryRequest) (*dto.SmsRecordsResponse, error) {
	number, err := f.activeNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}
	rng, err := dateRange(req)
	if err != nil {
		return nil, err
	}

	records, err := f.provider.GetSmsRecords(ctx, *number.ProviderNumberID, rng)
	if err != nil {
		return nil, NewBusinessError("UPSTREAM_FAILURE", "upstream provider request failed", errors.Join(ErrUpstreamFailure, err))
	}

	return &dto.SmsRecordsResponse{
		NumberUUID: number.UUID.String(),
		Records:    filterSmsRecords(records, rng),
	}, nil
}

// filterCallRecords drops records outside the range. Providers are expected
// to honor the range themselves; this is the local guarantee.
func filterCallRecords(records []models.CallRecord, rng *models.DateRange) []models.CallRecord {
	if rng == nil {
		if records == nil {
			return []models.CallRecord{}
		}
		return records
	}
	out := make([]models.CallRecord, 0, len(records))
	for _, r := range records {
		if rng.Contains(r.StartedAt) {
			out = append(out, r)
		}
	}
	return out
}

func filterSmsRecords(records []models.SmsRecord, rng *models.DateRange) []models.SmsRecord {
	if rng == nil {
		if records == nil {
			return []models.SmsRecord{}
		}
		return records
	}
	out := make([]models.SmsRecord, 0, len(records))
	for _, r := range records {
		if rng.Contains(r.SentAt) {
			out = append(out, r)
		}
	}
	return out
}

// CallStats aggregates call records
func CallStats(records []models.CallRecord) dto.CallUsageStats {
	stats := dto.CallUsageStats{}
	for _, r := range records {
		stats.TotalCalls++
		if r.Direction == "inbound" {
			stats.InboundCalls++
		} else {
			stats.OutboundCalls++
		}
		stats.TotalDuration += r.Duration
		stats.TotalCost += r.Cost
	}
	if stats.TotalCalls > 0 {
		stats.AverageDuration = stats.TotalDuration / stats.TotalCalls
	}
	return stats
}

// SmsStats aggregates SMS records
func SmsStats(records []models.SmsRecord) dto.SmsUsageStats {
	stats := dto.SmsUsageStats{}
	for _, r := range records {
		stats.TotalMessages++
		if r.Direction == "inbound" {
			stats.InboundMessages++
		} else {
			stats.OutboundMessages++
		}
		stats.TotalSegments += r.Segments
		stats.TotalCost += r.Cost
	}
	return stats
}

// Stats returns call and SMS aggregates for the number
func (f *UsageFlowImpl) Stats(ctx context.Context, customerID uint, numberUUID string, req *dto.UsageQueryRequest) (*dto.UsageStatsResponse, error) {
	number, err := f.activeNumber(ctx, customerID, numberUUID)
	if err != nil {
		return nil, err
	}
	rng, err := dateRange(req)
	if err != nil {
		return nil, err
	}

	calls, err := f.provider.GetCallRecords(ctx, *number.ProviderNumberID, rng)
	if err != nil {
		return nil, NewBusinessError("UPSTREAM_FAILURE", "upstream provider request failed", errors.Join(ErrUpstreamFailure, err))
	}
	messages, err := f.provider.GetSmsRecords(ctx, *number.ProviderNumberID, rng)
	if err != nil {
		return nil, NewBusinessError("UPSTREAM_FAILURE", "upstream provider request failed", errors.Join(ErrUpstreamFailure, err))
	}

	callStats := CallStats(filterCallRecords(calls, rng))
	smsStats := SmsStats(filterSmsRecords(messages, rng))

	return &dto.UsageStatsResponse{
		NumberUUID: number.UUID.String(),
		Calls:      &callStats,
		Sms:        &smsStats,
	}, nil
}

var (
	callRecordHeader = []string{"record_id", "phone_number", "peer_number", "direction", "started_at", "duration_seconds", "cost_cents"}
	smsRecordHeader  = []string{"record_id", "phone_number", "peer_number", "direction", "sent_at", "segments", "cost_cents"}
)

func callRecordRows(records []models.CallRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RecordID,
			r.PhoneNumber,
			r.PeerNumber,
			r.Direction,
			r.StartedAt.UTC().Format(time.RFC3339),
			strconv.FormatUint(uint64(r.Duration), 10),
			strconv.FormatUint(r.Cost, 10),
		})
	}
	return rows
}

func smsRecordRows(records []models.SmsRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.RecordID,
			r.PhoneNumber,
			r.PeerNumber,
			r.Direction,
			r.SentAt.UTC().Format(time.RFC3339),
			strconv.FormatUint(uint64(r.Segments), 10),
			strconv.FormatUint(r.Cost, 10),
		})
	}
	return rows
}

// ExportCallRecords renders the number's call records in the requested format
func (f *UsageFlowImpl) ExportCallRecords(ctx context.Context, customerID uint, numberUUID, format string, req *dto.UsageQueryRequest) (*dto.UsageExport, error) {
	resp, err := f.FetchCallRecords(ctx, customerID, numberUUID, req)
	if err != nil {
		return nil, err
	}

	number, err := f.numberRepo.ByUUID(ctx, numberUUID)
	if err != nil || number == nil {
		return nil, NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
	}

	baseName := fmt.Sprintf("cdr-%s-%s", number.PhoneNumber, utils.UTCNow().Format("2006-01-02"))
	return renderUsageExport(baseName, "Call Records", format, callRecordHeader, callRecordRows(resp.Records), resp.Records)
}

// ExportSmsRecords renders the number's SMS records in the requested format
func (f *UsageFlowImpl) ExportSmsRecords(ctx context.Context, customerID uint, numberUUID, format string, req *dto.UsageQueryRequest) (*dto.UsageExport, error) {
	resp, err := f.FetchSmsRecords(ctx, customerID, numberUUID, req)
	if err != nil {
		return nil, err
	}

	number, err := f.numberRepo.ByUUID(ctx, numberUUID)
	if err != nil || number == nil {
		return nil, NewBusinessError("NUMBER_NOT_FOUND", "purchased number not found", ErrNumberNotFound)
	}

	baseName := fmt.Sprintf("sms-%s-%s", number.PhoneNumber, utils.UTCNow().Format("2006-01-02"))
	return renderUsageExport(baseName, "SMS Records", format, smsRecordHeader, smsRecordRows(resp.Records), resp.Records)
}

// renderUsageExport renders one report. JSON exports wrap the records in the
// documented envelope: data, count, exportDate.
func renderUsageExport(baseName, sheet, format string, header []string, rows [][]string, records any) (*dto.UsageExport, error) {
	switch format {
	case ExportFormatCSV:
		content, err := usageCSV(header, rows)
		if err != nil {
			return nil, err
		}
		return &dto.UsageExport{Filename: baseName + ".csv", ContentType: "text/csv", Content: content}, nil
	case ExportFormatJSON:
		content, err := json.Marshal(dto.UsageExportEnvelope{
			Data:       records,
			Count:      len(rows),
			ExportDate: utils.UTCNow(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode records: %w", err)
		}
		return &dto.UsageExport{Filename: baseName + ".json", ContentType: "application/json", Content: content}, nil
	case ExportFormatXLSX:
		content, err := usageXLSX(sheet, header, rows)
		if err != nil {
			return nil, err
		}
		return &dto.UsageExport{
			Filename:    baseName + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	default:
		return nil, NewBusinessError("INVALID_EXPORT_FORMAT", "invalid export format", ErrInvalidExportFormat)
	}
}

// usageCSV renders rows as CSV with a header row
func usageCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// usageXLSX renders rows as a single-sheet workbook
func usageXLSX(sheet string, header []string, rows [][]string) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	index, err := file.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := file.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
