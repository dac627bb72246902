package entries

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
	"github.com/vpetkovic/fitlog/internal/sets"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
	"github.com/vpetkovic/fitlog/pkg"
)

const (
	defaultListSize = 50
	maxListSize     = 200
)

type entriesRepo interface {
	Add(ctx context.Context, entry Entry) (*Entry, error)
	Get(ctx context.Context, userID, id int) (*Entry, error)
	List(ctx context.Context, params ListParams) ([]Entry, int, error)
	Update(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, userID, id int) error
}

type entrySetsRepo interface {
	ListForEntry(ctx context.Context, userID, entryID int) ([]sets.Set, error)
}

type addEntryRequest struct {
	ExerciseID int    `json:"exerciseId" validate:"required,gt=0"`
	Notes      string `json:"notes" validate:"max=2000"`
}

type updateEntryRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// EntryWithSets is the single-entry read shape: the entry plus its
// sets with the derived one-rep-max estimates.
type EntryWithSets struct {
	Entry
	Sets []sets.Set `json:"sets"`
}

type ListResponse struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

type DeleteEntryResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo     entriesRepo
	setsRepo entrySetsRepo
	metrics  *metrics.Manager
}

func NewHandler(repo entriesRepo, setsRepo entrySetsRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:     repo,
		setsRepo: setsRepo,
		metrics:  metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-entries")
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-entry")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-entry")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-entry")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-entry")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "entriesHandler.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req addEntryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	addedEntry, err := handler.repo.Add(ctx, Entry{
		UserID:     userID,
		ExerciseID: req.ExerciseID,
		Notes:      req.Notes,
	})
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			pkg.WriteSingleFieldError(w, "exerciseId", "exercise not found")
			return
		}
		log.Errorf("add entry: %s", err)
		http.Error(w, "error, failed to add entry", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExerciseEntries.Inc()

	entryJson, err := json.Marshal(addedEntry)
	if err != nil {
		log.Errorf("marshal added entry: %s", err)
		http.Error(w, "error, failed to add entry", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "entriesHandler.get")
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

	entry, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("get entry %d: %s", id, err)
		http.Error(w, "error, failed to get entry", http.StatusInternalServerError)
		return
	}

	entrySets, err := handler.setsRepo.ListForEntry(ctx, userID, id)
	if err != nil {
		log.Errorf("get sets of entry %d: %s", id, err)
		http.Error(w, "error, failed to get entry", http.StatusInternalServerError)
		return
	}

	entryJson, err := json.Marshal(EntryWithSets{Entry: *entry, Sets: entrySets})
	if err != nil {
		log.Errorf("marshal entry: %s", err)
		http.Error(w, "error, failed to get entry", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entryJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "entriesHandler.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	params, ok := listParamsFromRequest(w, r, userID)
	if !ok {
		return
	}

	userEntries, total, err := handler.repo.List(ctx, params)
	if err != nil {
		log.Errorf("list entries: %s", err)
		http.Error(w, "error, failed to list entries", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListResponse{Entries: userEntries, Total: total})
	if err != nil {
		log.Errorf("marshal entries list: %s", err)
		http.Error(w, "error, failed to list entries", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "entriesHandler.update")
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

	var req updateEntryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := handler.repo.Update(ctx, Entry{
		ID:     id,
		UserID: userID,
		Notes:  req.Notes,
	})
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("update entry %d: %s", id, err)
		http.Error(w, "error, failed to update entry", http.StatusInternalServerError)
		return
	}

	updatedEntry, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		log.Errorf("get updated entry %d: %s", id, err)
		http.Error(w, "error, failed to update entry", http.StatusInternalServerError)
		return
	}

	entryJson, err := json.Marshal(updatedEntry)
	if err != nil {
		log.Errorf("marshal updated entry: %s", err)
		http.Error(w, "error, failed to update entry", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entryJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "entriesHandler.delete")
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
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete entry %d: %s", id, err)
		http.Error(w, "error, failed to delete entry", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteEntryResponse{DeletedID: id})
	if err != nil {
		log.Errorf("marshal delete entry response: %s", err)
		http.Error(w, "error, failed to delete entry", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func listParamsFromRequest(w http.ResponseWriter, r *http.Request, userID int) (ListParams, bool) {
	params := ListParams{
		UserID: userID,
		Page:   1,
		Size:   defaultListSize,
	}

	query := r.URL.Query()
	if exerciseIDParam := query.Get("exercise_id"); exerciseIDParam != "" {
		exerciseID, err := strconv.Atoi(exerciseIDParam)
		if err != nil || exerciseID <= 0 {
			pkg.WriteSingleFieldError(w, "exercise_id", "invalid exercise id")
			return ListParams{}, false
		}
		params.ExerciseID = exerciseID
	}
	if pageParam := query.Get("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil || page <= 0 {
			pkg.WriteSingleFieldError(w, "page", "invalid page")
			return ListParams{}, false
		}
		params.Page = page
	}
	if sizeParam := query.Get("size"); sizeParam != "" {
		size, err := strconv.Atoi(sizeParam)
		if err != nil || size <= 0 || size > maxListSize {
			pkg.WriteSingleFieldError(w, "size", "invalid size")
			return ListParams{}, false
		}
		params.Size = size
	}

	return params, true
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if contentType := r.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "application/json") {
		http.Error(w, "expected JSON body", http.StatusBadRequest)
		return false
	}

	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		log.Warnf("decode entry request: %s", err)
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
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
