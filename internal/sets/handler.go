package sets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
	"github.com/vpetkovic/fitlog/pkg"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=repo_mocks_test.go -package=sets

type setsRepo interface {
	Add(ctx context.Context, set Set) (*Set, error)
	Get(ctx context.Context, userID, id int) (*Set, error)
	ListForEntry(ctx context.Context, userID, entryID int) ([]Set, error)
	Update(ctx context.Context, set Set) error
	Delete(ctx context.Context, userID, id int) error
}

type addSetRequest struct {
	EntryID  int     `json:"entryId" validate:"required,gt=0"`
	SetOrder int     `json:"setOrder" validate:"gte=0"`
	Reps     int     `json:"reps" validate:"required,gte=1,lte=100"`
	WeightKg float64 `json:"weightKg" validate:"gte=0,lte=1000"`
	RIR      int     `json:"rir" validate:"gte=0,lte=10"`
}

// updateSetRequest carries no entry id, a set cannot move to another
// entry.
type updateSetRequest struct {
	SetOrder int     `json:"setOrder" validate:"gte=0"`
	Reps     int     `json:"reps" validate:"required,gte=1,lte=100"`
	WeightKg float64 `json:"weightKg" validate:"gte=0,lte=1000"`
	RIR      int     `json:"rir" validate:"gte=0,lte=10"`
}

type ListResponse struct {
	Sets []Set `json:"sets"`
}

type DeleteSetResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo    setsRepo
	metrics *metrics.Manager
}

func NewHandler(repo setsRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-sets")
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-set")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-set")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-set")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-set")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "setsHandler.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addSetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	addedSet, err := handler.repo.Add(ctx, Set{
		EntryID:  req.EntryID,
		UserID:   userID,
		SetOrder: req.SetOrder,
		Reps:     req.Reps,
		WeightKg: req.WeightKg,
		RIR:      req.RIR,
	})
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			pkg.WriteSingleFieldError(w, "entryId", "entry not found")
			return
		}
		log.Errorf("add set: %s", err)
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExerciseSets.Inc()

	setJson, err := json.Marshal(addedSet)
	if err != nil {
		log.Errorf("marshal added set: %s", err)
		http.Error(w, "error, failed to add set", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, setJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "setsHandler.get")
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

	set, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrSetNotFound) {
			http.Error(w, "set not found", http.StatusNotFound)
			return
		}
		log.Errorf("get set %d: %s", id, err)
		http.Error(w, "error, failed to get set", http.StatusInternalServerError)
		return
	}

	setJson, err := json.Marshal(set)
	if err != nil {
		log.Errorf("marshal set: %s", err)
		http.Error(w, "error, failed to get set", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, setJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "setsHandler.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	entryIDParam := r.URL.Query().Get("entry_id")
	entryID, err := strconv.Atoi(entryIDParam)
	if err != nil || entryID <= 0 {
		pkg.WriteSingleFieldError(w, "entry_id", "invalid or missing entry id")
		return
	}

	entrySets, err := handler.repo.ListForEntry(ctx, userID, entryID)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			pkg.WriteSingleFieldError(w, "entry_id", "entry not found")
			return
		}
		log.Errorf("list sets for entry %d: %s", entryID, err)
		http.Error(w, "error, failed to list sets", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListResponse{Sets: entrySets})
	if err != nil {
		log.Errorf("marshal sets list: %s", err)
		http.Error(w, "error, failed to list sets", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "setsHandler.update")
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

	var req updateSetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := handler.repo.Update(ctx, Set{
		ID:       id,
		UserID:   userID,
		SetOrder: req.SetOrder,
		Reps:     req.Reps,
		WeightKg: req.WeightKg,
		RIR:      req.RIR,
	})
	if err != nil {
		if errors.Is(err, ErrSetNotFound) {
			http.Error(w, "set not found", http.StatusNotFound)
			return
		}
		log.Errorf("update set %d: %s", id, err)
		http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		return
	}

	updatedSet, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		log.Errorf("get updated set %d: %s", id, err)
		http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		return
	}

	setJson, err := json.Marshal(updatedSet)
	if err != nil {
		log.Errorf("marshal updated set: %s", err)
		http.Error(w, "error, failed to update set", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, setJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "setsHandler.delete")
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
		if errors.Is(err, ErrSetNotFound) {
			http.Error(w, "set not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete set %d: %s", id, err)
		http.Error(w, "error, failed to delete set", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteSetResponse{DeletedID: id})
	if err != nil {
		log.Errorf("marshal delete set response: %s", err)
		http.Error(w, "error, failed to delete set", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "expected JSON body", http.StatusBadRequest)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Warnf("decode set request: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}

	if fieldErrors := pkg.ValidateStruct(req); len(fieldErrors) > 0 {
		pkg.WriteFieldErrors(w, fieldErrors)
		return false
	}

	return true
}

func idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	vars := mux.Vars(r)
	idParam := vars["id"]
	id, err := strconv.Atoi(idParam)
	if err != nil {
		http.Error(w, "invalid set id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
