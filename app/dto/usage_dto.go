package dto

import (
	"time"

	"github.com/amirphl/Gashadokuro/models"
)

// UsageQueryRequest bounds a usage records query. Nil bounds mean all time.
type UsageQueryRequest struct {
	StartDate *time.Time `json:"start_date,omitempty"` // Optional lower bound, inclusive
	EndDate   *time.Time `json:"end_date,omitempty"`   // Optional upper bound, inclusive
}

// CallRecordsResponse represents call detail records for one number
type CallRecordsResponse struct {
	NumberUUID string              `json:"number_uuid"` // Queried number
	Records    []models.CallRecord `json:"records"`     // Records inside the range
}

// SmsRecordsResponse represents SMS detail records for one number
type SmsRecordsResponse struct {
	NumberUUID string             `json:"number_uuid"` // Queried number
	Records    []models.SmsRecord `json:"records"`     // Records inside the range
}

// CallUsageStats summarizes call records
type CallUsageStats struct {
	TotalCalls      uint   `json:"total_calls"`      // Record count
	InboundCalls    uint   `json:"inbound_calls"`    // Records with inbound direction
	OutboundCalls   uint   `json:"outbound_calls"`   // Records with outbound direction
	TotalDuration   uint   `json:"total_duration"`   // Summed duration in seconds
	AverageDuration uint   `json:"average_duration"` // Mean duration in seconds, zero when no calls
	TotalCost       uint64 `json:"total_cost"`       // Summed cost in cents
}

// SmsUsageStats summarizes SMS records
type SmsUsageStats struct {
	TotalMessages    uint   `json:"total_messages"`    // Record count
	InboundMessages  uint   `json:"inbound_messages"`  // Records with inbound direction
	OutboundMessages uint   `json:"outbound_messages"` // Records with outbound direction
	TotalSegments    uint   `json:"total_segments"`    // Summed segment count
	TotalCost        uint64 `json:"total_cost"`        // Summed cost in cents
}

// UsageStatsResponse represents aggregate usage for one number
type UsageStatsResponse struct {
	NumberUUID string          `json:"number_uuid"`     // Queried number
	Calls      *CallUsageStats `json:"calls,omitempty"` // Call aggregates, nil when calls were not queried
	Sms        *SmsUsageStats  `json:"sms,omitempty"`   // SMS aggregates, nil when SMS was not queried
}

// UsageExportEnvelope is the JSON export body: the raw records plus record
// count and render time
type UsageExportEnvelope struct {
	Data       any       `json:"data"`       // Exported records
	Count      int       `json:"count"`      // Number of records in Data
	ExportDate time.Time `json:"exportDate"` // When the export was rendered
}

// UsageExport is a rendered usage report ready to send as a file download
type UsageExport struct {
	Filename    string `json:"filename"`     // Suggested download name
	ContentType string `json:"content_type"` // MIME type of Content
	Content     []byte `json:"-"`            // Rendered report bytes
}
