package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/azcops/azcops/pkg/models/api"
	"github.com/azcops/azcops/pkg/models/domain"
	"github.com/azcops/azcops/pkg/services/ingestion"
	"github.com/azcops/azcops/pkg/services/recommendation"
	recstore "github.com/azcops/azcops/pkg/store/duckdb/recommendation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRecommendationService struct {
	mock.Mock
}

func (m *mockRecommendationService) GenerateForSubscription(
	ctx context.Context,
	params recommendation.GenerateParams,
) (recommendation.GenerateResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(recommendation.GenerateResult), args.Error(1)
}

func (m *mockRecommendationService) TransitionStatus(
	ctx context.Context,
	id string,
	to domain.RecommendationStatus,
) (domain.Recommendation, error) {
	args := m.Called(ctx, id, to)
	return args.Get(0).(domain.Recommendation), args.Error(1)
}

func (m *mockRecommendationService) List(
	ctx context.Context,
	filter recstore.ListFilter,
) ([]domain.Recommendation, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

func (m *mockRecommendationService) Get(ctx context.Context, id string) (domain.Recommendation, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Recommendation), args.Error(1)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, opts ingestion.Options) (domain.TenantIngestionResult, error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(domain.TenantIngestionResult), args.Error(1)
}

func TestWebAPI_Endpoints(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(nil))

	mockRecs := new(mockRecommendationService)
	mockIngestion := new(mockRunner)

	createdAt := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)
	openRec := domain.Recommendation{
		ID:                      "rec-1",
		TenantID:                "tenant-1",
		SubscriptionDBID:        "sub-db-1",
		ResourceID:              "/subscriptions/s1/disks/d1",
		ResourceName:            "d1",
		ResourceType:            "microsoft.compute/disks",
		RuleID:                  "WASTE-001",
		Category:                domain.CategoryWaste,
		Title:                   "Delete unattached disk",
		EstimatedMonthlySavings: 25.6,
		ConfidenceScore:         0.95,
		RiskLevel:               domain.RiskLow,
		EffortLevel:             domain.EffortLow,
		PriorityScore:           24.32,
		Status:                  domain.StatusOpen,
		CreatedAt:               createdAt,
		UpdatedAt:               createdAt,
	}

	config := Config{
		Addr:            ":8080",
		ShutdownTimeout: 10 * time.Second,
		IngestionDefaults: ingestion.Options{
			CostLookbackDays: 30,
		},
		Dependencies: Dependencies{
			Recommendations: mockRecs,
			Ingestion:       mockIngestion,
			Logger:          logger,
		},
	}
	router := ConfigureRouter(config)
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		setupMocks     func()
		expectedStatus int
		expected       interface{}
		parseResponse  func([]byte) (interface{}, error)
	}{
		{
			name:   "ListRecommendations",
			method: http.MethodGet,
			path:   "/api/v1/recommendations?status=open&limit=10",
			setupMocks: func() {
				mockRecs.On("List", mock.Anything, recstore.ListFilter{
					Status: domain.StatusOpen,
					Limit:  10,
				}).Return([]domain.Recommendation{openRec}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expected: []api.Recommendation{{
				ID:                      "rec-1",
				TenantID:                "tenant-1",
				SubscriptionDBID:        "sub-db-1",
				ResourceID:              "/subscriptions/s1/disks/d1",
				ResourceName:            "d1",
				ResourceType:            "microsoft.compute/disks",
				RuleID:                  "WASTE-001",
				Category:                "waste",
				Title:                   "Delete unattached disk",
				EstimatedMonthlySavings: 25.6,
				ConfidenceScore:         0.95,
				RiskLevel:               "low",
				EffortLevel:             "low",
				PriorityScore:           24.32,
				Status:                  "open",
				CreatedAt:               createdAt,
				UpdatedAt:               createdAt,
			}},
			parseResponse: unmarshalResponse[[]api.Recommendation](),
		},
		{
			name:           "ListRecommendations_InvalidLimit",
			method:         http.MethodGet,
			path:           "/api/v1/recommendations?limit=zero",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
			expected:       "invalid 'limit' parameter. Expected a positive integer\n",
			parseResponse:  rawResponse,
		},
		{
			name:   "GetRecommendation",
			method: http.MethodGet,
			path:   "/api/v1/recommendations/rec-1",
			setupMocks: func() {
				mockRecs.On("Get", mock.Anything, "rec-1").Return(openRec, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expected:       "rec-1",
			parseResponse: func(data []byte) (interface{}, error) {
				var rec api.Recommendation
				err := json.Unmarshal(data, &rec)
				return rec.ID, err
			},
		},
		{
			name:   "GetRecommendation_NotFound",
			method: http.MethodGet,
			path:   "/api/v1/recommendations/missing",
			setupMocks: func() {
				mockRecs.On("Get", mock.Anything, "missing").
					Return(domain.Recommendation{}, recstore.ErrNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
			expected:       "recommendation not found\n",
			parseResponse:  rawResponse,
		},
		{
			name:   "TransitionRecommendation",
			method: http.MethodPost,
			path:   "/api/v1/recommendations/rec-1/status",
			body:   api.TransitionRequest{Status: "approved"},
			setupMocks: func() {
				approved := openRec
				approved.Status = domain.StatusApproved
				mockRecs.On("TransitionStatus", mock.Anything, "rec-1", domain.StatusApproved).
					Return(approved, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expected:       "approved",
			parseResponse: func(data []byte) (interface{}, error) {
				var rec api.Recommendation
				err := json.Unmarshal(data, &rec)
				return rec.Status, err
			},
		},
		{
			name:           "TransitionRecommendation_UnknownStatus",
			method:         http.MethodPost,
			path:           "/api/v1/recommendations/rec-1/status",
			body:           api.TransitionRequest{Status: "archived"},
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
			expected:       "unknown status: archived\n",
			parseResponse:  rawResponse,
		},
		{
			name:   "TransitionRecommendation_InvalidTransition",
			method: http.MethodPost,
			path:   "/api/v1/recommendations/rec-1/status",
			body:   api.TransitionRequest{Status: "executed"},
			setupMocks: func() {
				mockRecs.On("TransitionStatus", mock.Anything, "rec-1", domain.StatusExecuted).
					Return(domain.Recommendation{}, recstore.ErrInvalidTransition).Once()
			},
			expectedStatus: http.StatusConflict,
			parseResponse:  rawResponse,
		},
		{
			name:   "TriggerIngestion_Full",
			method: http.MethodPost,
			path:   "/api/v1/ingestion/run",
			setupMocks: func() {
				mockIngestion.On("Run", mock.Anything, mock.MatchedBy(func(opts ingestion.Options) bool {
					return !opts.CostOnly && opts.CostLookbackDays == 30 && opts.CorrelationID != ""
				})).Return(domain.TenantIngestionResult{
					TenantID:               "tenant-1",
					SubscriptionsProcessed: 2,
					TotalResources:         17,
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expected: api.IngestionRunResponse{
				TenantID:               "tenant-1",
				SubscriptionsProcessed: 2,
				TotalResources:         17,
				Results:                []api.SubscriptionIngestionResult{},
			},
			parseResponse: unmarshalResponse[api.IngestionRunResponse](),
		},
		{
			name:   "TriggerIngestion_Incremental",
			method: http.MethodPost,
			path:   "/api/v1/ingestion/run?mode=incremental&cost_lookback_days=3",
			setupMocks: func() {
				mockIngestion.On("Run", mock.Anything, mock.MatchedBy(func(opts ingestion.Options) bool {
					return opts.CostOnly && opts.CostLookbackDays == 3
				})).Return(domain.TenantIngestionResult{TenantID: "tenant-1"}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expected: api.IngestionRunResponse{
				TenantID: "tenant-1",
				Results:  []api.SubscriptionIngestionResult{},
			},
			parseResponse: unmarshalResponse[api.IngestionRunResponse](),
		},
		{
			name:           "TriggerIngestion_UnknownMode",
			method:         http.MethodPost,
			path:           "/api/v1/ingestion/run?mode=partial",
			setupMocks:     func() {},
			expectedStatus: http.StatusBadRequest,
			expected:       "unknown mode: partial. Expected 'full' or 'incremental'\n",
			parseResponse:  rawResponse,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.setupMocks()

			var reqBody io.Reader
			if tc.body != nil {
				encoded, err := json.Marshal(tc.body)
				require.NoError(t, err)
				reqBody = bytes.NewReader(encoded)
			}

			req, err := http.NewRequest(tc.method, testServer.URL+tc.path, reqBody)
			require.NoError(t, err, "Failed to build request")

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err, "Failed to send request")
			defer resp.Body.Close()

			assert.Equal(t, tc.expectedStatus, resp.StatusCode, "Status code mismatch")

			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err, "Failed to read response body")

			if tc.expected == nil {
				return
			}

			actual, err := tc.parseResponse(body)
			require.NoError(t, err, "Failed to parse response")

			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestWebAPI_CorrelationHeader(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(nil))

	mockRecs := new(mockRecommendationService)
	mockRecs.On("List", mock.Anything, mock.Anything).
		Return([]domain.Recommendation{}, nil)

	router := ConfigureRouter(Config{
		Dependencies: Dependencies{
			Recommendations: mockRecs,
			Logger:          logger,
		},
	})
	testServer := httptest.NewServer(router)
	defer testServer.Close()

	t.Run("GeneratedWhenMissing", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/api/v1/recommendations")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))
	})

	t.Run("EchoedWhenProvided", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, testServer.URL+"/api/v1/recommendations", nil)
		require.NoError(t, err)
		req.Header.Set("X-Correlation-ID", "corr-42")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, "corr-42", resp.Header.Get("X-Correlation-ID"))
	})
}

func rawResponse(data []byte) (interface{}, error) {
	return string(data), nil
}

func unmarshalResponse[T any]() func([]byte) (interface{}, error) {
	return func(data []byte) (interface{}, error) {
		var response T
		err := json.Unmarshal(data, &response)
		return response, err
	}
}
