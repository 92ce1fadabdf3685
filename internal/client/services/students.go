package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/validation"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
)

// StudentState is a snapshot of the student store.
type StudentState struct {
	Students   []models.Student
	Selected   *models.Student
	Pagination models.Pagination
	Filters    models.ListParams
	Loading    bool
	Busy       Busy
	Error      string
}

type StudentStore struct {
	api      client.StudentAPI
	validate *validation.Validator
	log      logging.Logger

	mu      sync.RWMutex
	cache   cache[models.Student]
	filters models.ListParams
	loading bool
	busy    Busy
	err     string
}

func NewStudentStore(api client.StudentAPI, v *validation.Validator, log logging.Logger) *StudentStore {
	if log == nil {
		log = logging.Discard()
	}
	if v == nil {
		v = validation.New()
	}
	return &StudentStore{
		api:      api,
		validate: v,
		log:      log.With("store", "students"),
		cache:    newCache(func(s *models.Student) string { return s.ID }),
		filters:  models.DefaultListParams(),
	}
}

func (s *StudentStore) Snapshot() StudentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StudentState{
		Students:   s.cache.snapshotItems(),
		Selected:   s.cache.snapshotSelected(),
		Pagination: s.cache.pagination,
		Filters:    s.filters,
		Loading:    s.loading,
		Busy:       s.busy,
		Error:      s.err,
	}
}

// SetFilters overlays params on the current filters without fetching.
func (s *StudentStore) SetFilters(params models.ListParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = s.filters.Merge(params)
}

func (s *StudentStore) ClearSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.selected = nil
}

func (s *StudentStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// Reset drops everything, e.g. after logout.
func (s *StudentStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.reset()
	s.filters = models.DefaultListParams()
	s.loading = false
	s.busy = Busy{}
	s.err = ""
}

// begin marks an operation pending and clears the last error.
func (s *StudentStore) begin(flag *bool) {
	s.mu.Lock()
	*flag = true
	s.err = ""
	s.mu.Unlock()
}

// fail records err and clears flag.
func (s *StudentStore) fail(ctx context.Context, op string, flag *bool, err error) error {
	s.mu.Lock()
	*flag = false
	s.err = client.Message(err)
	s.mu.Unlock()
	s.log.Warn(ctx, "student operation failed", "op", op, "error", err)
	return err
}

// Fetch loads a page with the current filters overlaid by params.
func (s *StudentStore) Fetch(ctx context.Context, params models.ListParams) (StudentState, error) {
	s.mu.Lock()
	filters := s.filters.Merge(params)
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	page, err := s.api.ListStudents(ctx, filters)
	if err != nil {
		err = s.fail(ctx, "list", &s.loading, err)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.cache.setPage(page.Students, page.Page())
	s.filters = filters
	s.loading = false
	s.mu.Unlock()
	return s.Snapshot(), nil
}

// Get loads one student and selects it.
func (s *StudentStore) Get(ctx context.Context, id string) (*models.Student, error) {
	s.begin(&s.loading)
	st, err := s.api.GetStudent(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get", &s.loading, err)
	}

	s.mu.Lock()
	sel := *st
	s.cache.selected = &sel
	s.loading = false
	s.mu.Unlock()
	return st, nil
}

func (s *StudentStore) Create(ctx context.Context, in models.StudentInput) (*models.Student, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	s.begin(&s.busy.Create)
	st, err := s.api.CreateStudent(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "create", &s.busy.Create, err)
	}

	s.mu.Lock()
	s.cache.prepend(*st)
	s.busy.Create = false
	s.mu.Unlock()
	s.log.Info(ctx, "student created", "id", st.ID)
	return st, nil
}

func (s *StudentStore) Update(ctx context.Context, id string, in models.StudentInput) (*models.Student, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	s.begin(&s.busy.Update)
	st, err := s.api.UpdateStudent(ctx, id, in)
	if err != nil {
		return nil, s.fail(ctx, "update", &s.busy.Update, err)
	}

	s.mu.Lock()
	s.cache.replace(*st)
	s.busy.Update = false
	s.mu.Unlock()
	return st, nil
}

func (s *StudentStore) Delete(ctx context.Context, id string) error {
	s.begin(&s.busy.Delete)
	if err := s.api.DeleteStudent(ctx, id); err != nil {
		return s.fail(ctx, "delete", &s.busy.Delete, err)
	}

	s.mu.Lock()
	s.cache.remove(id)
	s.busy.Delete = false
	s.mu.Unlock()
	s.log.Info(ctx, "student deleted", "id", id)
	return nil
}

// UploadPhoto uploads a profile photo and returns its URL.
func (s *StudentStore) UploadPhoto(ctx context.Context, id, fileName string, r io.Reader) (string, error) {
	s.begin(&s.busy.Photo)
	url, err := s.api.UploadStudentPhoto(ctx, id, fileName, r)
	if err != nil {
		return "", s.fail(ctx, "upload photo", &s.busy.Photo, err)
	}
	if url == "" {
		return "", s.fail(ctx, "upload photo", &s.busy.Photo, fmt.Errorf("upload photo %s: empty url in response", id))
	}

	s.mu.Lock()
	s.cache.patch(id, func(st *models.Student) {
		u := url
		st.ProfilePhoto.URL = &u
	})
	s.busy.Photo = false
	s.mu.Unlock()
	return url, nil
}

func (s *StudentStore) DeletePhoto(ctx context.Context, id string) error {
	s.begin(&s.busy.Photo)
	if err := s.api.DeleteStudentPhoto(ctx, id); err != nil {
		return s.fail(ctx, "delete photo", &s.busy.Photo, err)
	}

	s.mu.Lock()
	s.cache.patch(id, func(st *models.Student) { st.ProfilePhoto.URL = nil })
	s.busy.Photo = false
	s.mu.Unlock()
	return nil
}
