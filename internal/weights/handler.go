package weights

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
	"github.com/vpetkovic/fitlog/pkg"
)

type weightsRepo interface {
	Add(ctx context.Context, measurement Measurement) (*Measurement, error)
	Get(ctx context.Context, userID, id int) (*Measurement, error)
	List(ctx context.Context, userID int) ([]Measurement, error)
	LatestAtOrBefore(ctx context.Context, userID int, at time.Time) (*Measurement, error)
	Update(ctx context.Context, measurement Measurement) error
	Delete(ctx context.Context, userID, id int) error
}

type measurementRequest struct {
	WeightKg   float64 `json:"weightKg" validate:"required,gte=20,lte=1000"`
	MeasuredAt string  `json:"measuredAt" validate:"required"`
}

type ListResponse struct {
	Measurements []Measurement `json:"measurements"`
}

type DeleteMeasurementResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo    weightsRepo
	metrics *metrics.Manager
}

func NewHandler(repo weightsRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-weights")
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-weight")
	router.HandleFunc("/latest", handler.HandleLatest).Methods("GET", "OPTIONS").Name("latest-weight")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-weight")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-weight")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-weight")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "weightsHandler.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	req, measuredAt, ok := decodeAndValidate(w, r)
	if !ok {
		return
	}

	addedMeasurement, err := handler.repo.Add(ctx, Measurement{
		UserID:     userID,
		WeightKg:   req.WeightKg,
		MeasuredAt: measuredAt,
	})
	if err != nil {
		log.Errorf("add weight measurement: %s", err)
		http.Error(w, "error, failed to add weight measurement", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWeightMeasurements.Inc()

	measurementJson, err := json.Marshal(addedMeasurement)
	if err != nil {
		log.Errorf("marshal added weight measurement: %s", err)
		http.Error(w, "error, failed to add weight measurement", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, measurementJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "weightsHandler.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	measurement, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrMeasurementNotFound) {
			http.Error(w, "weight measurement not found", http.StatusNotFound)
			return
		}
		log.Errorf("get weight measurement %d: %s", id, err)
		http.Error(w, "error, failed to get weight measurement", http.StatusInternalServerError)
		return
	}

	measurementJson, err := json.Marshal(measurement)
	if err != nil {
		log.Errorf("marshal weight measurement: %s", err)
		http.Error(w, "error, failed to get weight measurement", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, measurementJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "weightsHandler.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	measurements, err := handler.repo.List(ctx, userID)
	if err != nil {
		log.Errorf("list weight measurements: %s", err)
		http.Error(w, "error, failed to list weight measurements", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListResponse{Measurements: measurements})
	if err != nil {
		log.Errorf("marshal weight measurements list: %s", err)
		http.Error(w, "error, failed to list weight measurements", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

// HandleLatest returns the most recent measurement at or before the
// given time (query param "at", RFC 3339, defaults to now). This is the
// same bodyweight the one-rep-max estimates would use at that moment.
func (handler *Handler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "weightsHandler.latest")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	at := time.Now()
	if atParam := r.URL.Query().Get("at"); atParam != "" {
		parsed, err := time.Parse(time.RFC3339, atParam)
		if err != nil {
			pkg.WriteSingleFieldError(w, "at", "expected RFC 3339 timestamp")
			return
		}
		at = parsed
	}

	measurement, err := handler.repo.LatestAtOrBefore(ctx, userID, at)
	if err != nil {
		if errors.Is(err, ErrMeasurementNotFound) {
			http.Error(w, "no weight measurement found", http.StatusNotFound)
			return
		}
		log.Errorf("get latest weight measurement: %s", err)
		http.Error(w, "error, failed to get latest weight measurement", http.StatusInternalServerError)
		return
	}

	measurementJson, err := json.Marshal(measurement)
	if err != nil {
		log.Errorf("marshal latest weight measurement: %s", err)
		http.Error(w, "error, failed to get latest weight measurement", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, measurementJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "weightsHandler.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	req, measuredAt, ok := decodeAndValidate(w, r)
	if !ok {
		return
	}

	err := handler.repo.Update(ctx, Measurement{
		ID:         id,
		UserID:     userID,
		WeightKg:   req.WeightKg,
		MeasuredAt: measuredAt,
	})
	if err != nil {
		if errors.Is(err, ErrMeasurementNotFound) {
			http.Error(w, "weight measurement not found", http.StatusNotFound)
			return
		}
		log.Errorf("update weight measurement %d: %s", id, err)
		http.Error(w, "error, failed to update weight measurement", http.StatusInternalServerError)
		return
	}

	updatedMeasurement, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		log.Errorf("get updated weight measurement %d: %s", id, err)
		http.Error(w, "error, failed to update weight measurement", http.StatusInternalServerError)
		return
	}

	measurementJson, err := json.Marshal(updatedMeasurement)
	if err != nil {
		log.Errorf("marshal updated weight measurement: %s", err)
		http.Error(w, "error, failed to update weight measurement", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, measurementJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "weightsHandler.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := idFromRequest(w, r)
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrMeasurementNotFound) {
			http.Error(w, "weight measurement not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete weight measurement %d: %s", id, err)
		http.Error(w, "error, failed to delete weight measurement", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteMeasurementResponse{DeletedID: id})
	if err != nil {
		log.Errorf("marshal delete weight measurement response: %s", err)
		http.Error(w, "error, failed to delete weight measurement", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request) (*measurementRequest, time.Time, bool) {
	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "expected JSON body", http.StatusBadRequest)
		return nil, time.Time{}, false
	}

	var req measurementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warnf("decode weight measurement request: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil, time.Time{}, false
	}

	if fieldErrors := pkg.ValidateStruct(req); len(fieldErrors) > 0 {
		pkg.WriteFieldErrors(w, fieldErrors)
		return nil, time.Time{}, false
	}

	measuredAt, err := time.Parse(time.RFC3339, req.MeasuredAt)
	if err != nil {
		pkg.WriteSingleFieldError(w, "measuredAt", "expected RFC 3339 timestamp")
		return nil, time.Time{}, false
	}
	if measuredAt.After(time.Now()) {
		pkg.WriteSingleFieldError(w, "measuredAt", "cannot be in the future")
		return nil, time.Time{}, false
	}

	return &req, measuredAt, true
}

func idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	idParam := vars["id"]
	id, err := strconv.Atoi(idParam)
	if err != nil {
		http.Error(w, "invalid weight measurement id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
