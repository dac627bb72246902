package enums

import (
	"encoding/json"
	"net/http"

	"github.com/vpetkovic/fitlog/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/enums/muscle-groups", handler.handleMuscleGroups).Methods("GET", "OPTIONS").Name("muscle-groups")
	router.HandleFunc("/enums/tag-roles", handler.handleTagRoles).Methods("GET", "OPTIONS").Name("tag-roles")
}

func (handler *Handler) handleMuscleGroups(w http.ResponseWriter, _ *http.Request) {
	handler.writeList(w, MuscleGroups)
}

func (handler *Handler) handleTagRoles(w http.ResponseWriter, _ *http.Request) {
	handler.writeList(w, TagRoles)
}

func (handler *Handler) writeList(w http.ResponseWriter, values []string) {
	valuesJson, err := json.Marshal(values)
	if err != nil {
		log.Errorf("marshal enum values: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, valuesJson)
}
