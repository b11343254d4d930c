package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/amirphl/Gashadokuro/app/dto"
	"github.com/amirphl/Gashadokuro/app/services"
	"github.com/amirphl/Gashadokuro/models"
	"github.com/amirphl/Gashadokuro/repository"
	"github.com/amirphl/Gashadokuro/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNumberRepo serves numbers from a map keyed by UUID string. Embedding
// the interface keeps the fake small; tests only exercise ByUUID and ByID.
type fakeNumberRepo struct {
	repository.PurchasedNumberRepository
	numbers map[string]*models.PurchasedNumber
}

func (f *fakeNumberRepo) ByUUID(ctx context.Context, id string) (*models.PurchasedNumber, error) {
	return f.numbers[id], nil
}

func (f *fakeNumberRepo) ByID(ctx context.Context, id uint) (*models.PurchasedNumber, error) {
	for _, n := range f.numbers {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}

// fakeTelephony returns canned records or a fixed error
type fakeTelephony struct {
	services.TelephonyProvider
	calls []models.CallRecord
	sms   []models.SmsRecord
	err   error
}

func (f *fakeTelephony) GetCallRecords(ctx context.Context, providerNumberID string, rng *models.DateRange) ([]models.CallRecord, error) {
	return f.calls, f.err
}

func (f *fakeTelephony) GetSmsRecords(ctx context.Context, providerNumberID string, rng *models.DateRange) ([]models.SmsRecord, error) {
	return f.sms, f.err
}

func activeTestNumber(customerID uint) *models.PurchasedNumber {
	return &models.PurchasedNumber{
		ID:                 1,
		UUID:               uuid.New(),
		CustomerID:         customerID,
		PhoneNumber:        "+12125550100",
		CountryCode:        "US",
		ProvisioningStatus: models.ProvisioningStatusActive,
		IsActive:           utils.ToPtr(true),
		ProviderNumberID:   utils.ToPtr("prov_100"),
		SMSEnabled:         utils.ToPtr(true),
	}
}

func newUsageFlowForTest(number *models.PurchasedNumber, provider services.TelephonyProvider) UsageFlow {
	repo := &fakeNumberRepo{numbers: map[string]*models.PurchasedNumber{}}
	if number != nil {
		repo.numbers[number.UUID.String()] = number
	}
	return NewUsageFlow(repo, provider)
}

func TestUsageFlowOwnershipGuards(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownNumber", func(t *testing.T) {
		flow := newUsageFlowForTest(nil, &fakeTelephony{})

		_, err := flow.FetchCallRecords(ctx, 1, uuid.New().String(), nil)
		require.Error(t, err)
		assert.True(t, IsNumberNotFound(err))
	})

	t.Run("NotOwned", func(t *testing.T) {
		number := activeTestNumber(1)
		flow := newUsageFlowForTest(number, &fakeTelephony{})

		_, err := flow.FetchCallRecords(ctx, 2, number.UUID.String(), nil)
		require.Error(t, err)
		assert.True(t, IsNumberNotFound(err))
	})

	t.Run("NotActive", func(t *testing.T) {
		number := activeTestNumber(1)
		number.ProvisioningStatus = models.ProvisioningStatusPending
		number.ProviderNumberID = nil
		flow := newUsageFlowForTest(number, &fakeTelephony{})

		_, err := flow.FetchSmsRecords(ctx, 1, number.UUID.String(), nil)
		require.Error(t, err)
		assert.True(t, IsNumberNotActive(err))
	})

	t.Run("StartAfterEnd", func(t *testing.T) {
		number := activeTestNumber(1)
		flow := newUsageFlowForTest(number, &fakeTelephony{})

		start := time.Now().UTC()
		end := start.Add(-time.Hour)
		_, err := flow.FetchCallRecords(ctx, 1, number.UUID.String(), &dto.UsageQueryRequest{
			StartDate: &start,
			EndDate:   &end,
		})
		require.Error(t, err)
		assert.True(t, IsStartDateAfterEndDate(err))
	})

	t.Run("ProviderFailure", func(t *testing.T) {
		number := activeTestNumber(1)
		flow := newUsageFlowForTest(number, &fakeTelephony{err: errors.New("carrier down")})

		_, err := flow.FetchCallRecords(ctx, 1, number.UUID.String(), nil)
		require.Error(t, err)
		assert.True(t, IsUpstreamFailure(err))
	})
}

func TestUsageFlowFetchCallRecords(t *testing.T) {
	ctx := context.Background()
	number := activeTestNumber(1)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	records := []models.CallRecord{
		{RecordID: "c1", Direction: "inbound", StartedAt: base, Duration: 60, Cost: 10},
		{RecordID: "c2", Direction: "outbound", StartedAt: base.Add(48 * time.Hour), Duration: 120, Cost: 20},
	}
	flow := newUsageFlowForTest(number, &fakeTelephony{calls: records})

	t.Run("NoRange", func(t *testing.T) {
		resp, err := flow.FetchCallRecords(ctx, 1, number.UUID.String(), nil)
		require.NoError(t, err)
		assert.Equal(t, number.UUID.String(), resp.NumberUUID)
		assert.Len(t, resp.Records, 2)
	})

	t.Run("RangeFiltersLocally", func(t *testing.T) {
		start := base.Add(-time.Hour)
		end := base.Add(time.Hour)
		resp, err := flow.FetchCallRecords(ctx, 1, number.UUID.String(), &dto.UsageQueryRequest{
			StartDate: &start,
			EndDate:   &end,
		})
		require.NoError(t, err)
		require.Len(t, resp.Records, 1)
		assert.Equal(t, "c1", resp.Records[0].RecordID)
	})

	t.Run("NilRecordsBecomeEmptySlice", func(t *testing.T) {
		emptyFlow := newUsageFlowForTest(number, &fakeTelephony{})
		resp, err := emptyFlow.FetchCallRecords(ctx, 1, number.UUID.String(), nil)
		require.NoError(t, err)
		assert.NotNil(t, resp.Records)
		assert.Len(t, resp.Records, 0)
	})
}

func TestCallStats(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		stats := CallStats(nil)
		assert.Equal(t, uint(0), stats.TotalCalls)
		assert.Equal(t, uint(0), stats.AverageDuration)
	})

	t.Run("Aggregates", func(t *testing.T) {
		records := []models.CallRecord{
			{Direction: "inbound", Duration: 60, Cost: 10},
			{Direction: "outbound", Duration: 120, Cost: 20},
			{Direction: "inbound", Duration: 30, Cost: 5},
		}
		stats := CallStats(records)
		assert.Equal(t, uint(3), stats.TotalCalls)
		assert.Equal(t, uint(2), stats.InboundCalls)
		assert.Equal(t, uint(1), stats.OutboundCalls)
		assert.Equal(t, uint(210), stats.TotalDuration)
		assert.Equal(t, uint(70), stats.AverageDuration)
		assert.Equal(t, uint64(35), stats.TotalCost)
	})
}

func TestSmsStats(t *testing.T) {
	records := []models.SmsRecord{
		{Direction: "inbound", Segments: 1, Cost: 2},
		{Direction: "outbound", Segments: 3, Cost: 6},
	}
	stats := SmsStats(records)
	assert.Equal(t, uint(2), stats.TotalMessages)
	assert.Equal(t, uint(1), stats.InboundMessages)
	assert.Equal(t, uint(1), stats.OutboundMessages)
	assert.Equal(t, uint(4), stats.TotalSegments)
	assert.Equal(t, uint64(8), stats.TotalCost)
}

func TestUsageFlowStats(t *testing.T) {
	ctx := context.Background()
	number := activeTestNumber(1)
	flow := newUsageFlowForTest(number, &fakeTelephony{
		calls: []models.CallRecord{{Direction: "inbound", Duration: 90, Cost: 15, StartedAt: time.Now().UTC()}},
		sms:   []models.SmsRecord{{Direction: "outbound", Segments: 2, Cost: 4, SentAt: time.Now().UTC()}},
	})

	resp, err := flow.Stats(ctx, 1, number.UUID.String(), nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Calls)
	require.NotNil(t, resp.Sms)
	assert.Equal(t, uint(1), resp.Calls.TotalCalls)
	assert.Equal(t, uint(90), resp.Calls.TotalDuration)
	assert.Equal(t, uint(1), resp.Sms.TotalMessages)
	assert.Equal(t, uint(2), resp.Sms.TotalSegments)
}

func TestUsageFlowExportCallRecords(t *testing.T) {
	ctx := context.Background()
	number := activeTestNumber(1)
	started := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	flow := newUsageFlowForTest(number, &fakeTelephony{
		calls: []models.CallRecord{
			{RecordID: "c1", PhoneNumber: number.PhoneNumber, PeerNumber: "+12125550222", Direction: "inbound", StartedAt: started, Duration: 60, Cost: 10},
		},
	})

	t.Run("CSV", func(t *testing.T) {
		export, err := flow.ExportCallRecords(ctx, 1, number.UUID.String(), ExportFormatCSV, nil)
		require.NoError(t, err)
		assert.Equal(t, "text/csv", export.ContentType)
		assert.Contains(t, export.Filename, number.PhoneNumber)

		rows, err := csv.NewReader(bytes.NewReader(export.Content)).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, callRecordHeader, rows[0])
		assert.Equal(t, "c1", rows[1][0])
		assert.Equal(t, "2026-03-10T12:00:00Z", rows[1][4])
		assert.Equal(t, "60", rows[1][5])
	})

	t.Run("JSONEnvelope", func(t *testing.T) {
		export, err := flow.ExportCallRecords(ctx, 1, number.UUID.String(), ExportFormatJSON, nil)
		require.NoError(t, err)
		assert.Equal(t, "application/json", export.ContentType)

		var decoded struct {
			Data       []models.CallRecord `json:"data"`
			Count      int                 `json:"count"`
			ExportDate time.Time           `json:"exportDate"`
		}
		require.NoError(t, json.Unmarshal(export.Content, &decoded))
		require.Len(t, decoded.Data, 1)
		assert.Equal(t, "c1", decoded.Data[0].RecordID)
		assert.Equal(t, 1, decoded.Count)
		assert.WithinDuration(t, time.Now().UTC(), decoded.ExportDate, time.Minute)
	})

	t.Run("XLSX", func(t *testing.T) {
		export, err := flow.ExportCallRecords(ctx, 1, number.UUID.String(), ExportFormatXLSX, nil)
		require.NoError(t, err)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.ContentType)
		assert.NotEmpty(t, export.Content)
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		_, err := flow.ExportCallRecords(ctx, 1, number.UUID.String(), "pdf", nil)
		require.Error(t, err)
		assert.True(t, IsInvalidExportFormat(err))
	})
}

func TestUsageFlowExportSmsRecords(t *testing.T) {
	ctx := context.Background()
	number := activeTestNumber(1)
	sent := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	flow := newUsageFlowForTest(number, &fakeTelephony{
		sms: []models.SmsRecord{
			{RecordID: "s1", PhoneNumber: number.PhoneNumber, PeerNumber: "+12125550333", Direction: "outbound", SentAt: sent, Segments: 2, Cost: 4},
		},
	})

	t.Run("CSV", func(t *testing.T) {
		export, err := flow.ExportSmsRecords(ctx, 1, number.UUID.String(), ExportFormatCSV, nil)
		require.NoError(t, err)
		assert.Equal(t, "text/csv", export.ContentType)
		assert.Contains(t, export.Filename, "sms-")
		assert.Contains(t, export.Filename, number.PhoneNumber)

		rows, err := csv.NewReader(bytes.NewReader(export.Content)).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, smsRecordHeader, rows[0])
		assert.Equal(t, "s1", rows[1][0])
		assert.Equal(t, "2026-03-11T09:30:00Z", rows[1][4])
		assert.Equal(t, "2", rows[1][5])
	})

	t.Run("JSONEnvelope", func(t *testing.T) {
		export, err := flow.ExportSmsRecords(ctx, 1, number.UUID.String(), ExportFormatJSON, nil)
		require.NoError(t, err)
		assert.Equal(t, "application/json", export.ContentType)

		var decoded struct {
			Data       []models.SmsRecord `json:"data"`
			Count      int                `json:"count"`
			ExportDate time.Time          `json:"exportDate"`
		}
		require.NoError(t, json.Unmarshal(export.Content, &decoded))
		require.Len(t, decoded.Data, 1)
		assert.Equal(t, "s1", decoded.Data[0].RecordID)
		assert.Equal(t, 1, decoded.Count)
	})

	t.Run("XLSX", func(t *testing.T) {
		export, err := flow.ExportSmsRecords(ctx, 1, number.UUID.String(), ExportFormatXLSX, nil)
		require.NoError(t, err)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.ContentType)
		assert.NotEmpty(t, export.Content)
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		_, err := flow.ExportSmsRecords(ctx, 1, number.UUID.String(), "pdf", nil)
		require.Error(t, err)
		assert.True(t, IsInvalidExportFormat(err))
	})
}
