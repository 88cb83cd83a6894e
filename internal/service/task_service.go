package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbonduro/phototasks/internal/domain"
	"github.com/vbonduro/phototasks/internal/geocode"
	"github.com/vbonduro/phototasks/internal/photostore"
)

const (
	// TasksKey is the key holding the whole task list as a JSON array.
	TasksKey = "tasks"
	// PhotoDir is the photo store namespace for task photos.
	PhotoDir = "task_photos"

	corruptSuffix = ".corrupt"
	backupSuffix  = ".bak"
	maxIDAttempts = 8
)

// KeyValueStore is the subset of store.KVStore that TaskService requires.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// TaskService owns the in-memory task list and keeps the key-value record
// and the photo files consistent with it. Mutations are serialized; each one
// writes the full list and only replaces the in-memory list once the write
// succeeded.
type TaskService struct {
	kv       KeyValueStore
	photoStg photostore.PhotoStore
	geocoder geocode.Geocoder
	logger   *slog.Logger

	now   func() time.Time
	newID func(time.Time) string

	mu        sync.Mutex
	tasks     []domain.Task
	loadErr   error
	loading   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithClock overrides the time source used for ids and CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *TaskService) { s.newID = gen }
}

// NewTaskService builds a service in the loading state; call Load before
// mutating. geocoder may be nil, in which case addresses are left as given.
func NewTaskService(
	kv KeyValueStore,
	photoStg photostore.PhotoStore,
	geocoder geocode.Geocoder,
	logger *slog.Logger,
	opts ...Option,
) *TaskService {
	s := &TaskService{
		kv:       kv,
		photoStg: photoStg,
		geocoder: geocoder,
		logger:   logger,
		now:      time.Now,
		newID:    newTaskID,
		ready:    make(chan struct{}),
	}
	s.loading.Store(true)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the stored task list. A missing key means first run. An
// unreadable payload is kept under TasksKey+".corrupt" and the service starts
// empty. A failing read is returned and every mutation is refused until a
// later Load succeeds, so the stored list is never overwritten blind.
func (s *TaskService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.markReady()

	raw, ok, err := s.kv.Get(ctx, TasksKey)
	if err != nil {
		s.tasks = []domain.Task{}
		s.loadErr = fmt.Errorf("%w: load tasks: %w", ErrPersistence, err)
		return s.loadErr
	}
	s.loadErr = nil
	if !ok {
		s.logger.Info("no stored tasks", "key", TasksKey)
		s.tasks = []domain.Task{}
		return nil
	}

	var tasks []domain.Task
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		s.logger.Error("stored tasks are unreadable, starting with an empty list",
			"key", TasksKey, "backup_key", TasksKey+corruptSuffix, "error", err)
		if berr := s.kv.Set(ctx, TasksKey+corruptSuffix, raw); berr != nil {
			s.logger.Error("failed to back up unreadable tasks", "error", berr)
		}
		s.tasks = []domain.Task{}
		return nil
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}

	s.tasks = tasks
	s.logger.Info("tasks loaded", "count", len(tasks))
	return nil
}

func (s *TaskService) markReady() {
	s.readyOnce.Do(func() {
		s.loading.Store(false)
		close(s.ready)
	})
}

// Loading reports whether the initial Load is still pending.
func (s *TaskService) Loading() bool {
	return s.loading.Load()
}

// Ready is closed once the initial Load has finished.
func (s *TaskService) Ready() <-chan struct{} {
	return s.ready
}

// LoadErr returns the error of the last Load, or nil once a Load succeeded.
func (s *TaskService) LoadErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

func (s *TaskService) waitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CreateTask copies the photo into storage and appends a new incomplete task
// owned by owner.
func (s *TaskService) CreateTask(ctx context.Context, in domain.TaskInput, owner string) (domain.Task, error) {
	title := in.NormalizedTitle()
	if title == "" {
		return domain.Task{}, ErrEmptyTitle
	}
	if owner == "" {
		return domain.Task{}, ErrEmptyOwner
	}
	if in.PhotoURI == "" {
		return domain.Task{}, ErrMissingPhoto
	}
	if err := s.waitReady(ctx); err != nil {
		return domain.Task{}, err
	}

	location := s.resolveAddress(ctx, in.Location)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return domain.Task{}, s.loadErr
	}

	now := s.now()
	id, err := s.uniqueID(now)
	if err != nil {
		return domain.Task{}, err
	}

	handle, err := s.photoStg.Copy(ctx, in.PhotoURI, PhotoDir, photoFileName(id, in.PhotoURI))
	if err != nil {
		return domain.Task{}, fmt.Errorf("%w: save photo for task %s: %w", ErrAttachment, id, err)
	}
	s.logger.Debug("photo saved", "task_id", id, "photo_uri", handle)

	task := domain.Task{
		ID:        id,
		Title:     title,
		PhotoURI:  handle,
		Location:  location,
		Completed: false,
		UserID:    owner,
		CreatedAt: now.UTC(),
	}

	next := append(slices.Clone(s.tasks), task)
	if err := s.persist(ctx, next); err != nil {
		s.discardPhoto(ctx, handle)
		return domain.Task{}, err
	}
	s.tasks = next

	s.logger.Info("task created", "task_id", id, "user_id", owner)
	return task.Clone(), nil
}

// UpdateTask replaces title, photo and location. A photo source equal to the
// stored handle keeps the current file. Anything else is copied in while the
// previous file is set aside; the old file is removed once the new list is
// persisted and put back if persisting fails.
func (s *TaskService) UpdateTask(ctx context.Context, id string, in domain.TaskInput) error {
	title := in.NormalizedTitle()
	if title == "" {
		return ErrEmptyTitle
	}
	if in.PhotoURI == "" {
		return ErrMissingPhoto
	}
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	location := s.resolveAddress(ctx, in.Location)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	current := s.tasks[idx]

	handle := current.PhotoURI
	replacing := in.PhotoURI != current.PhotoURI
	var backup string
	if replacing {
		var err error
		backup, err = s.backupPhoto(ctx, current)
		if err != nil {
			return fmt.Errorf("%w: set aside photo for task %s: %w", ErrAttachment, id, err)
		}
		handle, err = s.photoStg.Copy(ctx, in.PhotoURI, PhotoDir, photoFileName(id, in.PhotoURI))
		if err != nil {
			s.restorePhoto(ctx, backup, current.PhotoURI)
			return fmt.Errorf("%w: replace photo for task %s: %w", ErrAttachment, id, err)
		}
		s.logger.Debug("photo replaced", "task_id", id, "photo_uri", handle)
	}

	updated := current
	updated.Title = title
	updated.PhotoURI = handle
	updated.Location = location

	next := slices.Clone(s.tasks)
	next[idx] = updated
	if err := s.persist(ctx, next); err != nil {
		if replacing {
			// The restore overwrites a new file that took the old name.
			if handle != current.PhotoURI || backup == "" {
				s.discardPhoto(ctx, handle)
			}
			s.restorePhoto(ctx, backup, current.PhotoURI)
		}
		return err
	}
	s.tasks = next

	if backup != "" {
		s.discardPhoto(ctx, backup)
	}

	s.logger.Info("task updated", "task_id", id)
	return nil
}

// DeleteTask removes the task and then its photo. Deleting an unknown id is a
// no-op.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}

	idx := s.indexOf(id)
	if idx < 0 {
		s.logger.Debug("delete of unknown task ignored", "task_id", id)
		return nil
	}
	task := s.tasks[idx]

	next := slices.Delete(slices.Clone(s.tasks), idx, idx+1)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.tasks = next

	s.discardPhoto(ctx, task.PhotoURI)

	s.logger.Info("task deleted", "task_id", id)
	return nil
}

// ToggleComplete flips the task's completed flag.
func (s *TaskService) ToggleComplete(ctx context.Context, id string) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	next := slices.Clone(s.tasks)
	next[idx].Completed = !next[idx].Completed
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.tasks = next

	s.logger.Info("task completion toggled", "task_id", id, "completed", next[idx].Completed)
	return nil
}

// ListByOwner returns the owner's tasks in list order.
func (s *TaskService) ListByOwner(owner string) []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, 0)
	for _, t := range s.tasks {
		if t.UserID == owner {
			out = append(out, t.Clone())
		}
	}
	return out
}

// GetTask returns a copy of the task with the given id.
func (s *TaskService) GetTask(id string) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return domain.Task{}, false
	}
	return s.tasks[idx].Clone(), true
}

// All returns a copy of every task regardless of owner.
func (s *TaskService) All() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Reset removes the stored list and every task photo.
func (s *TaskService) Reset(ctx context.Context) error {
	if err := s.waitReady(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}

	if err := s.kv.Remove(ctx, TasksKey); err != nil {
		return fmt.Errorf("%w: clear tasks: %w", ErrPersistence, err)
	}
	removed := s.tasks
	s.tasks = []domain.Task{}

	for _, t := range removed {
		s.discardPhoto(ctx, t.PhotoURI)
	}

	s.logger.Info("tasks reset", "removed", len(removed))
	return nil
}

func (s *TaskService) persist(ctx context.Context, tasks []domain.Task) error {
	payload, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("%w: encode tasks: %w", ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, TasksKey, string(payload)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// discardPhoto deletes a stored photo. Failures only leave an orphaned file,
// so they are logged and not returned.
func (s *TaskService) discardPhoto(ctx context.Context, handle string) {
	exists, err := s.photoStg.Exists(ctx, handle)
	if err != nil {
		s.logger.Warn("failed to check photo before delete", "photo_uri", handle, "error", err)
		return
	}
	if !exists {
		return
	}
	if err := s.photoStg.Delete(ctx, handle); err != nil {
		s.logger.Warn("failed to delete photo", "photo_uri", handle, "error", err)
	}
}

// backupPhoto moves the task's photo aside so a replacement can be rolled
// back. It returns "" when the task has no stored file.
func (s *TaskService) backupPhoto(ctx context.Context, task domain.Task) (string, error) {
	backup, err := s.photoStg.Rename(ctx, task.PhotoURI, photoFileName(task.ID+backupSuffix, task.PhotoURI))
	if errors.Is(err, photostore.ErrNotFound) {
		s.logger.Warn("photo missing before replacement", "task_id", task.ID, "photo_uri", task.PhotoURI)
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return backup, nil
}

// restorePhoto moves a backup made by backupPhoto back to its handle.
func (s *TaskService) restorePhoto(ctx context.Context, backup, handle string) {
	if backup == "" {
		return
	}
	if _, err := s.photoStg.Rename(ctx, backup, path.Base(handle)); err != nil {
		s.logger.Error("failed to restore photo", "photo_uri", handle, "backup", backup, "error", err)
	}
}

// resolveAddress fills a missing address through the geocoder. Lookup
// failures keep the coordinates only.
func (s *TaskService) resolveAddress(ctx context.Context, loc domain.Location) domain.Location {
	if loc.Address != nil || s.geocoder == nil {
		return loc.Clone()
	}
	label, err := s.geocoder.ReverseGeocode(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		s.logger.Warn("reverse geocoding failed", "latitude", loc.Latitude, "longitude", loc.Longitude, "error", err)
		return loc
	}
	loc.Address = &label
	return loc
}

func (s *TaskService) uniqueID(now time.Time) (string, error) {
	for range maxIDAttempts {
		id := s.newID(now)
		if s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique task id after %d attempts", maxIDAttempts)
}

func (s *TaskService) indexOf(id string) int {
	return slices.IndexFunc(s.tasks, func(t domain.Task) bool { return t.ID == id })
}
