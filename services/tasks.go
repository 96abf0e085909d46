package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"rewards-dashboard/models"
	"rewards-dashboard/store"
	"rewards-dashboard/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const defaultTaskCategory = "General"

// TaskService manages tasks and their completion.
type TaskService struct {
	store         store.Store
	rewards       *rewarder
	uploader      Uploader
	defaultPoints int64
	clock         Clock
	titleCase     cases.Caser
}

func NewTaskService(st store.Store, rw *rewarder, uploader Uploader, defaultPoints int64, clock Clock) *TaskService {
	return &TaskService{
		store:         st,
		rewards:       rw,
		uploader:      uploader,
		defaultPoints: defaultPoints,
		clock:         clock,
		titleCase:     cases.Title(language.English),
	}
}

// TaskInput is the admin create payload.
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Link        string `json:"link"`
	ImageURL    string `json:"imageUrl"`
	Points      *int64 `json:"points"`
	Active      *bool  `json:"active"`
	SortOrder   int    `json:"sortOrder"`
}

// TaskPatch is the admin update payload; nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Link        *string `json:"link"`
	ImageURL    *string `json:"imageUrl"`
	Points      *int64  `json:"points"`
	Active      *bool   `json:"active"`
	SortOrder   *int    `json:"sortOrder"`
}

// CompletionResult is returned by Complete.
type CompletionResult struct {
	User    *models.User `json:"user"`
	Task    *models.Task `json:"task"`
	Receipt *Receipt     `json:"receipt"`
}

func (s *TaskService) category(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultTaskCategory
	}
	return s.titleCase.String(strings.ToLower(raw))
}

// Complete marks taskID done for wallet, adding the task's points and one to tasksCompleted.
func (s *TaskService) Complete(ctx context.Context, wallet, taskID string) (*CompletionResult, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	if err := checkID(taskID, ErrTaskNotFound); err != nil {
		return nil, err
	}

	rc := &Receipt{}
	var task *models.Task
	err = s.store.Tx(ctx, func(tx store.Store) error {
		t, err := tx.TaskByID(ctx, taskID)
		if err != nil {
			return notFoundAs(err, ErrTaskNotFound)
		}
		if !t.Active {
			return ErrTaskInactive
		}
		task = t

		if err := tx.CreateUserTask(ctx, &models.UserTask{
			UserID:        user.ID,
			TaskID:        t.ID,
			PointsAwarded: t.Points,
			CompletedAt:   s.clock().UTC(),
		}); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrTaskCompleted
			}
			return err
		}

		return s.rewards.Grant(ctx, tx, rc, grant{
			UserID:    user.ID,
			Source:    models.SourceTask,
			Points:    t.Points,
			Reference: t.ID,
			Note:      t.Title,
			Extra:     store.UserDelta{TasksCompleted: 1},
		})
	})
	if err != nil {
		return nil, err
	}
	rc.publish()

	updated, err := s.store.UserByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"wallet":  utils.ShortWallet(user.WalletAddress),
		"task_id": task.ID,
		"points":  task.Points,
	}).Info("✅ Task completed")
	return &CompletionResult{User: updated, Task: task, Receipt: rc}, nil
}

// ListActive returns the active tasks, unannotated.
func (s *TaskService) ListActive(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// ListForWallet returns active tasks with the wallet's completion state. Completed tasks that were
// since deactivated are still listed so history stays visible.
func (s *TaskService) ListForWallet(ctx context.Context, wallet string) ([]models.TaskView, error) {
	user, err := userByWallet(ctx, s.store, wallet)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.ListTasks(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	done, err := s.store.ListUserTasks(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list user tasks: %w", err)
	}
	completedAt := make(map[string]time.Time, len(done))
	for _, ut := range done {
		completedAt[ut.TaskID] = ut.CompletedAt
	}

	views := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		at, completed := completedAt[t.ID]
		if !t.Active && !completed {
			continue
		}
		v := models.TaskView{Task: t, Completed: completed}
		if completed {
			at := at
			v.CompletedAt = &at
		}
		views = append(views, v)
	}
	return views, nil
}

// --- admin ---

// ListAll returns every task including inactive ones.
func (s *TaskService) ListAll(ctx context.Context) ([]models.Task, error) {
	tasks, err := s.store.ListTasks(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// Create adds a task. The slug is derived from the title and made unique.
func (s *TaskService) Create(ctx context.Context, in TaskInput) (*models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}
	points := s.defaultPoints
	if in.Points != nil {
		points = *in.Points
	}
	if points <= 0 {
		return nil, invalidf("points must be positive")
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    s.category(in.Category),
		Link:        strings.TrimSpace(in.Link),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Points:      points,
		Active:      active,
		SortOrder:   in.SortOrder,
	}

	base := slug.Make(title)
	if base == "" {
		base = "task"
	}
	for attempt := 0; attempt < 5; attempt++ {
		task.Slug = base
		if attempt > 0 {
			task.Slug = fmt.Sprintf("%s-%s", base, uuid.NewString()[:6])
		}
		task.ID = ""
		err := s.store.CreateTask(ctx, task)
		if err == nil {
			log.WithFields(log.Fields{"task_id": task.ID, "slug": task.Slug, "points": task.Points}).Info("🆕 Task created")
			return task, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("create task: %w", err)
		}
	}
	return nil, fmt.Errorf("create task %q: %w", base, ErrDuplicate)
}

// Update applies patch to task id.
func (s *TaskService) Update(ctx context.Context, id string, patch TaskPatch) (*models.Task, error) {
	if err := checkID(id, ErrTaskNotFound); err != nil {
		return nil, err
	}
	task, err := s.store.TaskByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrTaskNotFound)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, invalidf("title must not be empty")
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Category != nil {
		task.Category = s.category(*patch.Category)
	}
	if patch.Link != nil {
		task.Link = strings.TrimSpace(*patch.Link)
	}
	if patch.ImageURL != nil {
		task.ImageURL = strings.TrimSpace(*patch.ImageURL)
	}
	if patch.Points != nil {
		if *patch.Points <= 0 {
			return nil, invalidf("points must be positive")
		}
		task.Points = *patch.Points
	}
	if patch.Active != nil {
		task.Active = *patch.Active
	}
	if patch.SortOrder != nil {
		task.SortOrder = *patch.SortOrder
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// Delete removes a task. Completion records are kept.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	if err := checkID(id, ErrTaskNotFound); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return notFoundAs(err, ErrTaskNotFound)
	}
	log.WithField("task_id", id).Info("🗑️ Task deleted")
	return nil
}

// UploadImage stores an image for the task and saves its URL.
func (s *TaskService) UploadImage(ctx context.Context, id string, fh *multipart.FileHeader) (*models.Task, error) {
	if err := checkID(id, ErrTaskNotFound); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	task, err := s.store.TaskByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, ErrTaskNotFound)
	}
	key, err := utils.ImageKey("tasks", task.ID, fh.Header.Get("Content-Type"))
	if err != nil {
		return nil, invalidf("%v", err)
	}
	url, err := s.uploader.UploadFile(ctx, fh, key)
	if err != nil {
		return nil, err
	}
	task.ImageURL = url
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("save task image: %w", err)
	}
	return task, nil
}
