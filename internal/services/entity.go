package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskboard/internal/codec"
	"github.com/dmitrijs2005/taskboard/internal/common"
	"github.com/dmitrijs2005/taskboard/internal/logging"
	"github.com/dmitrijs2005/taskboard/internal/models"
	"github.com/dmitrijs2005/taskboard/internal/repositories/kv"
)

// EntityService owns the projects and tasks of the current identity.
//
// Reads return copies of the in-memory working set. Mutations write the full
// new list to the store first and only then replace the in-memory copy, so a
// failed write leaves the working set as it was. If the working set could
// not be read, mutations fail until the next identity change reads it.
type EntityService interface {
	CreateProject(ctx context.Context, name string) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error
	CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) error
	DeleteTask(ctx context.Context, id string) error

	Projects() []models.Project
	Project(id string) (models.Project, bool)
	Tasks() []models.Task
	Task(id string) (models.Task, bool)
	ProjectTasks(projectID string) []models.Task

	// Close stops following the session.
	Close()
}

type entityService struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
	newID  func(prefix string) string
	cancel func()

	mu       sync.Mutex
	userID   string
	projects []models.Project
	tasks    []models.Task
	// loadErr is set when the working set could not be read. Writes are
	// refused until a later bind succeeds.
	loadErr error
}

// NewEntityService binds to the session's current identity and rebinds on
// every identity change it publishes.
func NewEntityService(ctx context.Context, store Store, session SessionService, logger logging.Logger) EntityService {
	s := &entityService{
		store:  store,
		logger: logger.With("module", "entities"),
		now:    defaultNow,
		newID:  models.NewID,
	}
	s.bind(ctx, session.CurrentUser())
	s.cancel = session.Subscribe(s.bind)
	return s
}

// defaultNow drops the monotonic reading and sub-millisecond precision so a
// timestamp compares equal after a trip through the store.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func (s *entityService) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// bind loads the working set of identity, or empties it for nil.
func (s *entityService) bind(ctx context.Context, identity *models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID, s.projects, s.tasks, s.loadErr = "", nil, nil, nil
	if identity == nil {
		return
	}
	s.userID = identity.ID

	repo := s.store.KV()
	projects, perr := loadList[models.Project](ctx, s.logger, repo, projectsKey(s.userID), codec.KindProjects)
	tasks, terr := loadList[models.Task](ctx, s.logger, repo, tasksKey(s.userID), codec.KindTasks)
	if err := errors.Join(perr, terr); err != nil {
		s.logger.Error(ctx, "failed to load working set", "user", s.userID, "error", err)
		s.loadErr = err
		return
	}
	s.projects, s.tasks = projects, tasks
	s.logger.Debug(ctx, "working set loaded", "user", s.userID,
		"projects", len(s.projects), "tasks", len(s.tasks))
}

// loadList reads a persisted list. Absent and malformed lists come back
// empty; the latter is logged. Any other failure is returned.
func loadList[T any](ctx context.Context, logger logging.Logger, repo kv.Repository, key string, kind codec.Kind) ([]T, error) {
	list, _, err := getDoc[[]T](ctx, repo, key, kind)
	if err != nil {
		if isCodecErr(err) {
			logger.Warn(ctx, "ignoring malformed list", "key", key, "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return list, nil
}

// writable reports why the bound working set must not be written back.
// The caller holds s.mu.
func (s *entityService) writable() error {
	if s.loadErr != nil {
		return fmt.Errorf("working set unavailable: %w", s.loadErr)
	}
	return nil
}

func (s *entityService) CreateProject(ctx context.Context, name string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, common.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return models.Project{}, common.ErrNotAuthenticated
	}
	if err := s.writable(); err != nil {
		return models.Project{}, err
	}

	p := models.Project{
		ID:        s.newID("project"),
		Name:      name,
		OwnerID:   s.userID,
		CreatedAt: s.now(),
	}
	next := append(slices.Clone(s.projects), p)

	if err := s.save(ctx, next, nil); err != nil {
		return models.Project{}, fmt.Errorf("failed to save project: %w", err)
	}
	s.projects = next
	return p, nil
}

// DeleteProject removes the project and all of its tasks in one transaction.
func (s *entityService) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return nil
	}
	if err := s.writable(); err != nil {
		return err
	}

	projects := slices.DeleteFunc(slices.Clone(s.projects), func(p models.Project) bool { return p.ID == id })
	tasks := slices.DeleteFunc(slices.Clone(s.tasks), func(t models.Task) bool { return t.ProjectID == id })
	if len(projects) == len(s.projects) && len(tasks) == len(s.tasks) {
		return nil
	}

	if err := s.save(ctx, projects, tasks); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	s.logger.Info(ctx, "project deleted", "project", id, "tasks", len(s.tasks)-len(tasks))
	s.projects, s.tasks = projects, tasks
	return nil
}

// CreateTask appends a new task. The project id is taken as given.
func (s *entityService) CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return models.Task{}, common.ErrNotAuthenticated
	}
	if err := s.writable(); err != nil {
		return models.Task{}, err
	}
	if strings.TrimSpace(draft.Title) == "" {
		return models.Task{}, common.ErrEmptyName
	}
	if err := draft.Validate(); err != nil {
		return models.Task{}, err
	}

	t := models.Task{
		ID:          s.newID("task"),
		ProjectID:   draft.ProjectID,
		Title:       draft.Title,
		Description: draft.Description,
		Status:      draft.Status,
		Priority:    draft.Priority,
		DueDate:     draft.DueDate,
		CreatedAt:   s.now(),
	}
	next := append(slices.Clone(s.tasks), t)

	if err := s.save(ctx, nil, next); err != nil {
		return models.Task{}, fmt.Errorf("failed to save task: %w", err)
	}
	s.tasks = next
	return t, nil
}

// UpdateTask merges patch into the task. Unknown ids are ignored.
func (s *entityService) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return common.ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return nil
	}
	if err := s.writable(); err != nil {
		return err
	}
	i := slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return nil
	}

	next := slices.Clone(s.tasks)
	next[i] = patch.Apply(next[i])

	if err := s.save(ctx, nil, next); err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	s.tasks = next
	return nil
}

// DeleteTask removes the task. Unknown ids are ignored.
func (s *entityService) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userID == "" {
		return nil
	}
	if err := s.writable(); err != nil {
		return err
	}
	next := slices.DeleteFunc(slices.Clone(s.tasks), func(t models.Task) bool { return t.ID == id })
	if len(next) == len(s.tasks) {
		return nil
	}

	if err := s.save(ctx, nil, next); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	s.tasks = next
	return nil
}

// save writes whichever of the two lists is non-nil to the bound user's keys
// in a single transaction. An empty list is passed as an empty non-nil slice.
func (s *entityService) save(ctx context.Context, projects []models.Project, tasks []models.Task) error {
	return s.store.Update(ctx, func(ctx context.Context, repo kv.Repository) error {
		if projects != nil {
			if err := putDoc(ctx, repo, projectsKey(s.userID), projects); err != nil {
				return err
			}
		}
		if tasks != nil {
			if err := putDoc(ctx, repo, tasksKey(s.userID), tasks); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *entityService) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.projects)
}

func (s *entityService) Project(id string) (models.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.projects, func(p models.Project) bool { return p.ID == id })
	if i < 0 {
		return models.Project{}, false
	}
	return s.projects[i], true
}

func (s *entityService) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tasks)
}

func (s *entityService) Task(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.tasks, func(t models.Task) bool { return t.ID == id })
	if i < 0 {
		return models.Task{}, false
	}
	return s.tasks[i], true
}

// ProjectTasks returns the project's tasks in creation order.
func (s *entityService) ProjectTasks(projectID string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}
