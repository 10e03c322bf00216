package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/softia/softia-go/internal/service"
	"github.com/softia/softia-go/internal/serving"
)

type trainRequest struct {
	UseCase    string   `json:"use_case"`
	NumSamples int      `json:"num_samples"`
	Documents  []string `json:"documents"`
}

type chatRequest struct {
	Prompt       string `json:"prompt"`
	Model        string `json:"model"`
	MaxLength    int    `json:"max_length"`
	NumSequences int    `json:"num_sequences"`
}

type chatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

type errResponse struct {
	Error string `json:"error"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	render.JSON(w, r, errResponse{Error: err.Error()})
}

// defaultNumSamples applies when a train request omits the sample count.
const defaultNumSamples = 10

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleTrain kicks off dataset generation and fine-tuning. It responds as
// soon as the background task is scheduled.
func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	var req trainRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	if req.NumSamples == 0 {
		req.NumSamples = defaultNumSamples
	}

	result, err := s.pipeline.Run(r.Context(), req.UseCase, req.NumSamples, req.Documents)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrNoUsableText) || errors.Is(err, service.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		renderError(w, r, status, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, result)
}

// handleChat serves a completion from a fine-tuned model. With no model name
// in the request the most recently trained model answers.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		renderError(w, r, http.StatusBadRequest, errors.New("prompt must not be empty"))
		return
	}

	var modelPath string
	if req.Model != "" {
		modelPath = filepath.Join(s.baseDir, filepath.Base(req.Model))
	} else {
		latest, err := serving.LatestModelDir(s.baseDir)
		if err != nil {
			renderError(w, r, http.StatusNotFound, err)
			return
		}
		modelPath = latest
	}

	answer, err := s.models.Predict(r.Context(), modelPath, req.Prompt, req.MaxLength, req.NumSequences)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, serving.ErrModelNotFound) {
			status = http.StatusNotFound
		}
		renderError(w, r, status, err)
		return
	}

	render.JSON(w, r, chatResponse{Response: answer, Model: filepath.Base(modelPath)})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	infos, err := serving.ListModels(s.baseDir)
	if err != nil {
		renderError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, map[string]any{"models": infos})
}

func (s *Server) handleTrainingStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")
	task, ok := s.tasks.Get(taskID)
	if !ok {
		renderError(w, r, http.StatusNotFound, errors.New("task not found"))
		return
	}
	render.JSON(w, r, task.Snapshot())
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{"tasks": s.tasks.List()})
}
