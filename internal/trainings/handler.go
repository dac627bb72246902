package trainings

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

type trainingsRepo interface {
	Add(ctx context.Context, training Training) (*Training, error)
	Get(ctx context.Context, userID, id int) (*Training, error)
	ListAll(ctx context.Context, userID int) ([]Training, error)
	Update(ctx context.Context, training Training) error
	Delete(ctx context.Context, userID, id int) error
	AddExercise(ctx context.Context, userID int, item TrainingExercise) (*TrainingExercise, error)
	UpdateExercise(ctx context.Context, userID int, item TrainingExercise) error
	RemoveExercise(ctx context.Context, userID, trainingID, itemID int) error
}

type trainingRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
}

type trainingExerciseRequest struct {
	ExerciseID int    `json:"exerciseId" validate:"required,gt=0"`
	Position   int    `json:"position" validate:"gte=0"`
	TargetSets int    `json:"targetSets" validate:"gte=0,lte=100"`
	TargetReps int    `json:"targetReps" validate:"gte=0,lte=100"`
	Notes      string `json:"notes" validate:"max=2000"`
}

type ListResponse struct {
	Trainings []Training `json:"trainings"`
}

type DeleteTrainingResponse struct {
	DeletedID int `json:"deletedId"`
}

type RemoveExerciseResponse struct {
	RemovedID int `json:"removedId"`
}

type Handler struct {
	repo    trainingsRepo
	metrics *metrics.Manager
}

func NewHandler(repo trainingsRepo, metrics *metrics.Manager) *Handler {
	return &Handler{
		repo:    repo,
		metrics: metrics,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("list-trainings")
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("add-training")
	router.HandleFunc("/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-training")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-training")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-training")
	router.HandleFunc("/{id}/exercises", handler.HandleAddExercise).Methods("POST", "OPTIONS").Name("add-training-exercise")
	router.HandleFunc("/{id}/exercises/{itemId}", handler.HandleUpdateExercise).Methods("PUT", "OPTIONS").Name("update-training-exercise")
	router.HandleFunc("/{id}/exercises/{itemId}", handler.HandleRemoveExercise).Methods("DELETE", "OPTIONS").Name("remove-training-exercise")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.add")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	var req trainingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	addedTraining, err := handler.repo.Add(ctx, Training{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		log.Errorf("add training: %s", err)
		http.Error(w, "error, failed to add training", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterTrainings.Inc()

	trainingJson, err := json.Marshal(addedTraining)
	if err != nil {
		log.Errorf("marshal added training: %s", err)
		http.Error(w, "error, failed to add training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, trainingJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.get")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := pathID(w, r, "id", "invalid training id")
	if !ok {
		return
	}

	training, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			http.Error(w, "training not found", http.StatusNotFound)
			return
		}
		log.Errorf("get training %d: %s", id, err)
		http.Error(w, "error, failed to get training", http.StatusInternalServerError)
		return
	}

	trainingJson, err := json.Marshal(training)
	if err != nil {
		log.Errorf("marshal training: %s", err)
		http.Error(w, "error, failed to get training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, trainingJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.list")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	userTrainings, err := handler.repo.ListAll(ctx, userID)
	if err != nil {
		log.Errorf("list trainings: %s", err)
		http.Error(w, "error, failed to list trainings", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListResponse{Trainings: userTrainings})
	if err != nil {
		log.Errorf("marshal trainings list: %s", err)
		http.Error(w, "error, failed to list trainings", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.update")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := pathID(w, r, "id", "invalid training id")
	if !ok {
		return
	}

	var req trainingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := handler.repo.Update(ctx, Training{
		ID:          id,
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			http.Error(w, "training not found", http.StatusNotFound)
			return
		}
		log.Errorf("update training %d: %s", id, err)
		http.Error(w, "error, failed to update training", http.StatusInternalServerError)
		return
	}

	updatedTraining, err := handler.repo.Get(ctx, userID, id)
	if err != nil {
		log.Errorf("get updated training %d: %s", id, err)
		http.Error(w, "error, failed to update training", http.StatusInternalServerError)
		return
	}

	trainingJson, err := json.Marshal(updatedTraining)
	if err != nil {
		log.Errorf("marshal updated training: %s", err)
		http.Error(w, "error, failed to update training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, trainingJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.delete")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	id, ok := pathID(w, r, "id", "invalid training id")
	if !ok {
		return
	}

	if err := handler.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			http.Error(w, "training not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete training %d: %s", id, err)
		http.Error(w, "error, failed to delete training", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(DeleteTrainingResponse{DeletedID: id})
	if err != nil {
		log.Errorf("marshal delete training response: %s", err)
		http.Error(w, "error, failed to delete training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.addExercise")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	trainingID, ok := pathID(w, r, "id", "invalid training id")
	if !ok {
		return
	}

	var req trainingExerciseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	addedItem, err := handler.repo.AddExercise(ctx, userID, TrainingExercise{
		TrainingID: trainingID,
		ExerciseID: req.ExerciseID,
		Position:   req.Position,
		TargetSets: req.TargetSets,
		TargetReps: req.TargetReps,
		Notes:      req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTrainingNotFound):
			http.Error(w, "training not found", http.StatusNotFound)
		case errors.Is(err, ErrExerciseNotFound):
			pkg.WriteSingleFieldError(w, "exerciseId", "exercise not found")
		default:
			log.Errorf("add exercise to training %d: %s", trainingID, err)
			http.Error(w, "error, failed to add exercise to training", http.StatusInternalServerError)
		}
		return
	}

	itemJson, err := json.Marshal(addedItem)
	if err != nil {
		log.Errorf("marshal added training exercise: %s", err)
		http.Error(w, "error, failed to add exercise to training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, itemJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdateExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.updateExercise")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	trainingID, ok := pathID(w, r, "id", "invalid training id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId", "invalid training exercise id")
	if !ok {
		return
	}

	var req trainingExerciseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := handler.repo.UpdateExercise(ctx, userID, TrainingExercise{
		ID:         itemID,
		TrainingID: trainingID,
		ExerciseID: req.ExerciseID,
		Position:   req.Position,
		TargetSets: req.TargetSets,
		TargetReps: req.TargetReps,
		Notes:      req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTrainingNotFound):
			http.Error(w, "training not found", http.StatusNotFound)
		case errors.Is(err, ErrTrainingExerciseNotFound):
			http.Error(w, "training exercise not found", http.StatusNotFound)
		default:
			log.Errorf("update exercise %d of training %d: %s", itemID, trainingID, err)
			http.Error(w, "error, failed to update training exercise", http.StatusInternalServerError)
		}
		return
	}

	updatedTraining, err := handler.repo.Get(ctx, userID, trainingID)
	if err != nil {
		log.Errorf("get training %d after exercise update: %s", trainingID, err)
		http.Error(w, "error, failed to update training exercise", http.StatusInternalServerError)
		return
	}

	trainingJson, err := json.Marshal(updatedTraining)
	if err != nil {
		log.Errorf("marshal training after exercise update: %s", err)
		http.Error(w, "error, failed to update training exercise", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, trainingJson)
}

func (handler *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "trainingsHandler.removeExercise")
	defer span.End()

	userID, ok := auth.UserIDFromContext(ctx)
	if !ok {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	trainingID, ok := pathID(w, r, "id", "invalid training id")
	if !ok {
		return
	}
	itemID, ok := pathID(w, r, "itemId", "invalid training exercise id")
	if !ok {
		return
	}

	if err := handler.repo.RemoveExercise(ctx, userID, trainingID, itemID); err != nil {
		switch {
		case errors.Is(err, ErrTrainingNotFound):
			http.Error(w, "training not found", http.StatusNotFound)
		case errors.Is(err, ErrTrainingExerciseNotFound):
			http.Error(w, "training exercise not found", http.StatusNotFound)
		default:
			log.Errorf("remove exercise %d from training %d: %s", itemID, trainingID, err)
			http.Error(w, "error, failed to remove training exercise", http.StatusInternalServerError)
		}
		return
	}

	respJson, err := json.Marshal(RemoveExerciseResponse{RemovedID: itemID})
	if err != nil {
		log.Errorf("marshal remove training exercise response: %s", err)
		http.Error(w, "error, failed to remove training exercise", http.StatusInternalServerError)
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
		log.Warnf("decode training request: %s", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}

	if fieldErrors := pkg.ValidateStruct(req); len(fieldErrors) > 0 {
		pkg.WriteFieldErrors(w, fieldErrors)
		return false
	}

	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name, errMsg string) (int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars[name])
	if err != nil {
		http.Error(w, errMsg, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
