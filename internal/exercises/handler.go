package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vpetkovic/fitlog/internal/auth"
	"github.com/vpetkovic/fitlog/internal/enums"
	"github.com/vpetkovic/fitlog/internal/telemetry/metrics"
	"github.com/vpetkovic/fitlog/internal/telemetry/tracing"
	"github.com/vpetkovic/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type exercisesRepo interface {
	Add(ctx context.Context, exercise Exercise) (*Exercise, error)
	Get(ctx context.Context, userID, id int) (*Exercise, error)
	ListAll(ctx context.Context, userID int) ([]Exercise, error)
	List(ctx context.Context, userID, page, size int) (_ []Exercise, total int, err error)
	Update(ctx context.Context, exercise *Exercise) error
	Delete(ctx context.Context, userID, id int) error
}

type muscleGroupTagRequest struct {
	MuscleGroup string `json:"muscleGroup" validate:"required"`
	Role        string `json:"role" validate:"required"`
}

type exerciseRequest struct {
	Name                 string                  `json:"name" validate:"required,max=100"`
	Description          string                  `json:"description" validate:"max=2000"`
	BodyweightPercentage float64                 `json:"bodyweightPercentage" validate:"gte=0,lte=2"`
	MuscleGroups         []muscleGroupTagRequest `json:"muscleGroups" validate:"dive"`
}

type ListResponse struct {
	Exercises []Exercise `json:"exercises"`
	Total     int        `json:"total"`
}

type DeleteExerciseResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	repo    exercisesRepo
	metrics *metrics.Manager
}

func NewHandler(repo exercisesRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/exercises", handler.HandleList).Methods("GET", "OPTIONS").Name("list-exercises")
	router.HandleFunc("/exercises/page/{page}/size/{size}", handler.HandleListPage).Methods("GET", "OPTIONS").Name("exercises-page")
	router.HandleFunc("/exercises", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-exercise")
	router.HandleFunc("/exercises/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-exercise")
	router.HandleFunc("/exercises/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-exercise")
	router.HandleFunc("/exercises/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-exercise")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	exerciseReq, ok := decodeAndValidate(w, r)
	if !ok {
		return
	}

	addedExercise, err := handler.repo.Add(ctx, Exercise{
		UserID:               userID,
		Name:                 exerciseReq.Name,
		Description:          exerciseReq.Description,
		BodyweightPercentage: exerciseReq.BodyweightPercentage,
		MuscleGroups:         tags2muscleGroups(exerciseReq.MuscleGroups),
		CreatedAt:            time.Now(),
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateMuscleGroup) {
			pkg.WriteSingleFieldError(w, "MuscleGroups", "muscle group tagged twice")
			return
		}
		log.Errorf("failed to add new exercise [%s] for user %d: %s", exerciseReq.Name, userID, err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterExercises.Inc()

	addedExJson, err := json.Marshal(addedExercise)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %d [%s]", addedExercise.ID, addedExercise.Name)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedExJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.get")
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

	exercise, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrExerciseNotFound) {
			http.Error(w, "exercise not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get exercise %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	exJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal exercise: %s", err)
		http.Error(w, "failed to marshal exercise", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, exJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	exercises, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list exercises error: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	handler.writeListResponse(w, exercises, len(exercises))
}

func (handler *Handler) HandleListPage(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.listPage")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	page, err := strconv.Atoi(vars["page"])
	if err != nil {
		http.Error(w, "parse form error, parameter <page>", http.StatusBadRequest)
		return
	}
	size, err := strconv.Atoi(vars["size"])
	if err != nil {
		http.Error(w, "parse form error, parameter <size>", http.StatusBadRequest)
		return
	}
	if page < 1 || size < 1 {
		http.Error(w, "invalid page or size (has to be non-zero value)", http.StatusBadRequest)
		return
	}

	exercises, total, err := handler.repo.List(ctx, userID, page, size)
	if err != nil {
		log.Errorf("list exercises page error: %s", err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	handler.writeListResponse(w, exercises, total)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
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

	exerciseReq, ok := decodeAndValidate(w, r)
	if !ok {
		return
	}

	exercise := &Exercise{
		ID:                   id,
		UserID:               userID,
		Name:                 exerciseReq.Name,
		Description:          exerciseReq.Description,
		BodyweightPercentage: exerciseReq.BodyweightPercentage,
		MuscleGroups:         tags2muscleGroups(exerciseReq.MuscleGroups),
	}

	if err := handler.repo.Update(ctx, exercise); err != nil {
		switch {
		case errors.Is(err, ErrExerciseNotFound):
			http.Error(w, "exercise not found", http.StatusNotFound)
		case errors.Is(err, ErrDuplicateMuscleGroup):
			pkg.WriteSingleFieldError(w, "MuscleGroups", "muscle group tagged twice")
		default:
			log.Errorf("failed to update exercise %d: %s", id, err)
			http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		}
		return
	}

	updatedExercise, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		log.Errorf("failed to get updated exercise %d: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	updatedExJson, err := json.Marshal(updatedExercise)
	if err != nil {
		log.Errorf("failed to marshal updated exercise: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updatedExJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
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
		switch {
		case errors.Is(err, ErrExerciseNotFound):
			http.Error(w, "exercise not found", http.StatusNotFound)
		case errors.Is(err, ErrExerciseInUse):
			http.Error(w, "exercise has logged entries, delete them first", http.StatusBadRequest)
		default:
			log.Errorf("failed to delete exercise %d: %s", id, err)
			http.Error(w, "exercise not deleted", http.StatusInternalServerError)
		}
		return
	}

	deleteRespJson, err := json.Marshal(DeleteExerciseResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) writeListResponse(w http.ResponseWriter, exercises []Exercise, total int) {
	listRespJson, err := json.Marshal(ListResponse{
		Exercises: exercises,
		Total:     total,
	})
	if err != nil {
		log.Errorf("marshal exercises error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listRespJson)
}

// decodeAndValidate parses the exercise request body and runs both the
// declarative constraints and the muscle group checks (known enum
// values, no muscle group tagged twice).
func decodeAndValidate(w http.ResponseWriter, r *http.Request) (exerciseRequest, bool) {
	var exerciseReq exerciseRequest

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return exerciseReq, false
	}
	if err := json.NewDecoder(r.Body).Decode(&exerciseReq); err != nil {
		log.Tracef("exercise request, unmarshal json params: %s", err)
		http.Error(w, "invalid exercise", http.StatusBadRequest)
		return exerciseReq, false
	}

	fieldErrs := pkg.ValidateStruct(exerciseReq)
	seen := make(map[string]bool)
	for _, mg := range exerciseReq.MuscleGroups {
		if !enums.ValidMuscleGroup(mg.MuscleGroup) {
			fieldErrs = append(fieldErrs, pkg.FieldError{Field: "MuscleGroup", Error: "unknown muscle group"})
		}
		if !enums.ValidTagRole(mg.Role) {
			fieldErrs = append(fieldErrs, pkg.FieldError{Field: "Role", Error: "oneof=primary secondary"})
		}
		if seen[mg.MuscleGroup] {
			fieldErrs = append(fieldErrs, pkg.FieldError{Field: "MuscleGroups", Error: "muscle group tagged twice"})
		}
		seen[mg.MuscleGroup] = true
	}
	if len(fieldErrs) > 0 {
		pkg.WriteFieldErrors(w, fieldErrs)
		return exerciseReq, false
	}

	return exerciseReq, true
}

func tags2muscleGroups(tags []muscleGroupTagRequest) []MuscleGroupTag {
	muscleGroups := make([]MuscleGroupTag, 0, len(tags))
	for _, t := range tags {
		muscleGroups = append(muscleGroups, MuscleGroupTag{
			MuscleGroup: t.MuscleGroup,
			Role:        t.Role,
		})
	}
	return muscleGroups
}

func idFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return 0, false
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
