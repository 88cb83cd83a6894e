package web

import (
	"io"
	"net/http"

	"github.com/vbonduro/phototasks/internal/domain"
)

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request, email string) {
	writeJSON(w, http.StatusOK, s.tasks.ListByOwner(email))
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, email string) {
	form, err := s.parseTaskForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer form.cleanup()

	if form.photoPath == "" {
		writeError(w, http.StatusBadRequest, "photo file required")
		return
	}
	if !form.hasLocation {
		writeError(w, http.StatusBadRequest, "latitude and longitude required")
		return
	}

	task, err := s.tasks.CreateTask(r.Context(), domain.TaskInput{
		Title:    form.title,
		PhotoURI: form.photoPath,
		Location: form.location,
	}, email)
	if err != nil {
		s.writeServiceError(w, "create task", err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, email string) {
	task, ok := s.ownedTask(r, email)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request, email string) {
	current, ok := s.ownedTask(r, email)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	form, err := s.parseTaskForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer form.cleanup()

	in := domain.TaskInput{
		Title:    form.title,
		PhotoURI: current.PhotoURI,
		Location: current.Location,
	}
	if form.photoPath != "" {
		in.PhotoURI = form.photoPath
	}
	if form.hasLocation {
		in.Location = form.location
	}

	if err := s.tasks.UpdateTask(r.Context(), current.ID, in); err != nil {
		s.writeServiceError(w, "update task", err)
		return
	}
	s.writeTask(w, current.ID)
}

// handleDeleteTask treats an unknown id as already deleted.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, email string) {
	id := r.PathValue("id")
	if task, ok := s.tasks.GetTask(id); ok && task.UserID != email {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err := s.tasks.DeleteTask(r.Context(), id); err != nil {
		s.writeServiceError(w, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request, email string) {
	task, ok := s.ownedTask(r, email)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if err := s.tasks.ToggleComplete(r.Context(), task.ID); err != nil {
		s.writeServiceError(w, "toggle task", err)
		return
	}
	s.writeTask(w, task.ID)
}

func (s *Server) handleGetPhoto(w http.ResponseWriter, r *http.Request, email string) {
	task, ok := s.ownedTask(r, email)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}

	reader, mimeType, err := s.photoStore.Get(r.Context(), task.PhotoURI)
	if err != nil {
		s.logger.Warn("photo unavailable", "task_id", task.ID, "photo_uri", task.PhotoURI, "error", err)
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	defer closeWithLog(reader, "photo reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write photo failed", "task_id", task.ID, "error", err)
	}
}

// ownedTask returns the task named in the path if it belongs to email.
// Tasks of other users are reported as missing.
func (s *Server) ownedTask(r *http.Request, email string) (domain.Task, bool) {
	task, ok := s.tasks.GetTask(r.PathValue("id"))
	if !ok || task.UserID != email {
		return domain.Task{}, false
	}
	return task, true
}

func (s *Server) writeTask(w http.ResponseWriter, id string) {
	task, ok := s.tasks.GetTask(id)
	if !ok {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}
