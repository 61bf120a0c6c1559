package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"telemetry-engine/internal/models"
	"telemetry-engine/internal/stores"
)

// timeSeriesQueryRequest is the wire shape of a query request. The tenant
// never appears in the body; it always comes from the tenant-id header.
type timeSeriesQueryRequest struct {
	StartTime time.Time         `json:"startTime"`
	EndTime   time.Time         `json:"endTime"`
	Filters   map[string]string `json:"filters"`
	OrderBy   string            `json:"orderBy"`
	Limit     int               `json:"limit"`
}

type aggregateQueryRequest struct {
	timeSeriesQueryRequest

	AggregateFunction string   `json:"aggregateFunction"`
	GroupByInterval   string   `json:"groupByInterval"`
	GroupByFields     []string `json:"groupByFields"`
}

type latestDevicesRequest struct {
	DeviceIDs []string `json:"deviceIds"`
}

type queryHandler struct {
	store stores.TimeSeriesStore
}

func NewQueryHandler(store stores.TimeSeriesStore) *queryHandler {
	return &queryHandler{store: store}
}

// HandleQuery processes POST /query requests.
func (h *queryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) error {
	tenant, err := requestTenant(r)
	if err != nil {
		return err
	}
	var req timeSeriesQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errValidationFailed("invalid json", err)
	}
	query, err := req.toQuery()
	if err != nil {
		return err
	}

	records, err := h.store.Query(r.Context(), tenant, query)
	if err != nil {
		return errInternalStoreQueryFailed(err)
	}
	if records == nil {
		records = []*models.TelemetryRecord{}
	}
	return writeJSONResponse(w, http.StatusOK, map[string]any{"records": records})
}

// HandleAggregate processes POST /query/aggregate requests.
func (h *queryHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) error {
	tenant, err := requestTenant(r)
	if err != nil {
		return err
	}
	var req aggregateQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errValidationFailed("invalid json", err)
	}
	base, err := req.timeSeriesQueryRequest.toQuery()
	if err != nil {
		return err
	}

	query := models.AggregateQuery{
		TimeSeriesQuery: base,
		Function:        models.ParseAggregateFunction(req.AggregateFunction),
		GroupByFields:   req.GroupByFields,
	}
	if req.GroupByInterval != "" {
		interval, err := time.ParseDuration(req.GroupByInterval)
		if err != nil {
			return errValidationFailed("invalid groupByInterval", err)
		}
		query.GroupByInterval = interval
	}

	results, err := h.store.QueryAggregate(r.Context(), tenant, query)
	if err != nil {
		return errInternalStoreQueryFailed(err)
	}
	if results == nil {
		results = []*models.AggregateResult{}
	}
	return writeJSONResponse(w, http.StatusOK, map[string]any{"results": results})
}

// HandleLatest processes POST /devices/latest requests.
func (h *queryHandler) HandleLatest(w http.ResponseWriter, r *http.Request) error {
	tenant, err := requestTenant(r)
	if err != nil {
		return err
	}
	var req latestDevicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errValidationFailed("invalid json", err)
	}
	if len(req.DeviceIDs) == 0 {
		return errValidationFailed("deviceIds is required", nil)
	}

	deviceIDs := make([]uuid.UUID, 0, len(req.DeviceIDs))
	for _, raw := range req.DeviceIDs {
		deviceID, err := uuid.Parse(raw)
		if err != nil {
			return errValidationFailed("invalid device id: "+raw, err)
		}
		deviceIDs = append(deviceIDs, deviceID)
	}

	latest, err := h.store.GetLatestForDevices(r.Context(), tenant, deviceIDs)
	if err != nil {
		return errInternalStoreQueryFailed(err)
	}

	response := make(map[string]*models.LatestTelemetryData, len(latest))
	for deviceID, data := range latest {
		response[deviceID.String()] = data
	}
	return writeJSONResponse(w, http.StatusOK, map[string]any{"devices": response})
}

func (req timeSeriesQueryRequest) toQuery() (models.TimeSeriesQuery, error) {
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return models.TimeSeriesQuery{}, errValidationFailed("startTime and endTime are required", nil)
	}
	if req.EndTime.Before(req.StartTime) {
		return models.TimeSeriesQuery{}, errValidationFailed("endTime must not be before startTime", nil)
	}
	return models.TimeSeriesQuery{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Filters:   req.Filters,
		OrderBy:   req.OrderBy,
		Limit:     req.Limit,
	}, nil
}

func requestTenant(r *http.Request) (uuid.UUID, error) {
	raw := tenantID(r)
	if raw == "" {
		return uuid.Nil, errValidationFailed("tenant-id header is required", nil)
	}
	tenant, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errValidationFailed("tenant-id header must be a UUID", err)
	}
	return tenant, nil
}

type appHandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (f appHandlerFunc) Handle(w http.ResponseWriter, r *http.Request) error { return f(w, r) }
