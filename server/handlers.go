package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/santiagomed/conjure/fs"
	"github.com/santiagomed/conjure/schema"
	"github.com/santiagomed/conjure/store"
	"github.com/santiagomed/conjure/utils"
)

func (s *Server) handleGenerateIdea(w http.ResponseWriter, r *http.Request) {
	var req schema.IdeaRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.generator.Check(req.Model); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stream(w, r, req.Settings.StreamOutput, func(out io.Writer) error {
		return s.generator.GenerateIdea(r.Context(), req.Model, req.Settings, out)
	})
}

func (s *Server) handleRefinePrompt(w http.ResponseWriter, r *http.Request) {
	var req schema.RefinePromptRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	prompt := utils.SanitizeInput(req.Prompt)
	if prompt == "" {
		s.writeError(w, r, fmt.Errorf("%w: prompt is required", errBadRequest))
		return
	}
	if err := s.generator.Check(req.Model); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stream(w, r, req.Settings.StreamOutput, func(out io.Writer) error {
		return s.generator.RefinePrompt(r.Context(), req.Model, prompt, req.Settings, out)
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req schema.GenerateRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Messages) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: messages are required", errBadRequest))
		return
	}
	for _, m := range req.Messages {
		switch m.Role {
		case schema.RoleSystem, schema.RoleUser, schema.RoleAssistant:
		default:
			s.writeError(w, r, fmt.Errorf("%w: unknown role %q", errBadRequest, m.Role))
			return
		}
	}
	if err := s.generator.Check(req.Model); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.stream(w, r, req.Settings.StreamOutput, func(out io.Writer) error {
		return s.generator.GenerateCode(r.Context(), req.Model, req.Messages, req.Settings, out)
	})
}

func (s *Server) handleCreateApp(w http.ResponseWriter, r *http.Request) {
	var req schema.CreateAppRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		s.writeError(w, r, fmt.Errorf("%w: code is required", errBadRequest))
		return
	}
	if req.Model == "" {
		s.writeError(w, r, fmt.Errorf("%w: model is required", errBadRequest))
		return
	}

	app := &store.App{Code: req.Code, Model: req.Model, Prompt: req.Prompt}
	if err := s.apps.Create(r.Context(), app); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app.ToSchema())
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app, err := s.apps.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app.ToSchema())
}

func (s *Server) handleTokenAnalytics(w http.ResponseWriter, r *http.Request) {
	var req schema.TokenAnalyticsRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.analyzer.Compute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.generator.Models()
	if models == nil {
		models = []schema.Model{}
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req schema.SaveGenerationRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	title := utils.SanitizeInput(req.Title)
	if title == "" {
		s.writeError(w, r, fmt.Errorf("%w: title is required", errBadRequest))
		return
	}
	if req.AppID == "" {
		s.writeError(w, r, fmt.Errorf("%w: appId is required", errBadRequest))
		return
	}

	saved := &store.SavedGeneration{
		Title:       title,
		Description: utils.SanitizeInput(req.Description),
		AppID:       req.AppID,
	}
	if err := s.saved.Create(r.Context(), saved); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved.ToSchema())
}

func (s *Server) handleListSaved(w http.ResponseWriter, r *http.Request) {
	list, err := s.saved.GetAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]schema.SavedGeneration, 0, len(list))
	for _, saved := range list {
		out = append(out, saved.ToSchema())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.saved.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved.ToSchema())
}

func (s *Server) handleDeleteSaved(w http.ResponseWriter, r *http.Request) {
	if err := s.saved.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownloadSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.saved.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bundle, dir, err := fs.Bundle(saved.ToSchema())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := bundle.WriteZip(&buf, dir); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, dir))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WithField("error", err.Error()).Error("Writing zip failed")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
