package services

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/schooldesk/internal/client/client"
	"github.com/dmitrijs2005/schooldesk/internal/client/models"
	"github.com/dmitrijs2005/schooldesk/internal/client/validation"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
)

// StaffState is a snapshot of the staff store.
type StaffState struct {
	Staff      []models.Staff
	Selected   *models.Staff
	Pagination models.Pagination
	Filters    models.ListParams
	Loading    bool
	Busy       Busy
	Error      string
}

type StaffStore struct {
	api      client.StaffAPI
	validate *validation.Validator
	log      logging.Logger

	mu      sync.RWMutex
	cache   cache[models.Staff]
	filters models.ListParams
	loading bool
	busy    Busy
	err     string
}

func NewStaffStore(api client.StaffAPI, v *validation.Validator, log logging.Logger) *StaffStore {
	if log == nil {
		log = logging.Discard()
	}
	if v == nil {
		v = validation.New()
	}
	return &StaffStore{
		api:      api,
		validate: v,
		log:      log.With("store", "staff"),
		cache:    newCache(func(s *models.Staff) string { return s.ID }),
		filters:  models.DefaultListParams(),
	}
}

func (s *StaffStore) Snapshot() StaffState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StaffState{
		Staff:      s.cache.snapshotItems(),
		Selected:   s.cache.snapshotSelected(),
		Pagination: s.cache.pagination,
		Filters:    s.filters,
		Loading:    s.loading,
		Busy:       s.busy,
		Error:      s.err,
	}
}

func (s *StaffStore) SetFilters(params models.ListParams) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = s.filters.Merge(params)
}

func (s *StaffStore) ClearSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.selected = nil
}

func (s *StaffStore) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

func (s *StaffStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.reset()
	s.filters = models.DefaultListParams()
	s.loading = false
	s.busy = Busy{}
	s.err = ""
}

func (s *StaffStore) begin(flag *bool) {
	s.mu.Lock()
	*flag = true
	s.err = ""
	s.mu.Unlock()
}

func (s *StaffStore) fail(ctx context.Context, op string, flag *bool, err error) error {
	s.mu.Lock()
	*flag = false
	s.err = client.Message(err)
	s.mu.Unlock()
	s.log.Warn(ctx, "staff operation failed", "op", op, "error", err)
	return err
}

func (s *StaffStore) Fetch(ctx context.Context, params models.ListParams) (StaffState, error) {
	s.mu.Lock()
	filters := s.filters.Merge(params)
	s.loading = true
	s.err = ""
	s.mu.Unlock()

	page, err := s.api.ListStaff(ctx, filters)
	if err != nil {
		err = s.fail(ctx, "list", &s.loading, err)
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.cache.setPage(page.Staff, page.Page())
	s.filters = filters
	s.loading = false
	s.mu.Unlock()
	return s.Snapshot(), nil
}

func (s *StaffStore) Get(ctx context.Context, id string) (*models.Staff, error) {
	s.begin(&s.loading)
	m, err := s.api.GetStaff(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "get", &s.loading, err)
	}

	s.mu.Lock()
	sel := *m
	s.cache.selected = &sel
	s.loading = false
	s.mu.Unlock()
	return m, nil
}

// Create adds a staff member. Unlike Update, a password is mandatory.
func (s *StaffStore) Create(ctx context.Context, in models.StaffInput) (*models.Staff, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, validation.Errors{{Field: "password", Message: "Password is required"}}
	}

	s.begin(&s.busy.Create)
	m, err := s.api.CreateStaff(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, "create", &s.busy.Create, err)
	}

	s.mu.Lock()
	s.cache.prepend(*m)
	s.busy.Create = false
	s.mu.Unlock()
	s.log.Info(ctx, "staff created", "id", m.ID)
	return m, nil
}

// Update changes profile fields. Passwords are never sent on update.
func (s *StaffStore) Update(ctx context.Context, id string, in models.StaffInput) (*models.Staff, error) {
	in.Password, in.ConfirmPassword = "", ""
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	s.begin(&s.busy.Update)
	m, err := s.api.UpdateStaff(ctx, id, in)
	if err != nil {
		return nil, s.fail(ctx, "update", &s.busy.Update, err)
	}

	s.mu.Lock()
	s.cache.replace(*m)
	s.busy.Update = false
	s.mu.Unlock()
	return m, nil
}

func (s *StaffStore) Delete(ctx context.Context, id string) error {
	s.begin(&s.busy.Delete)
	if err := s.api.DeleteStaff(ctx, id); err != nil {
		return s.fail(ctx, "delete", &s.busy.Delete, err)
	}

	s.mu.Lock()
	s.cache.remove(id)
	s.busy.Delete = false
	s.mu.Unlock()
	s.log.Info(ctx, "staff deleted", "id", id)
	return nil
}

// UpdatePermissions replaces the grants of a staff member with perms.
func (s *StaffStore) UpdatePermissions(ctx context.Context, id string, perms models.Permissions) (models.Permissions, error) {
	s.begin(&s.busy.Permissions)
	got, err := s.api.UpdateStaffPermissions(ctx, id, perms)
	if err != nil {
		return nil, s.fail(ctx, "permissions", &s.busy.Permissions, err)
	}

	s.mu.Lock()
	s.cache.patch(id, func(m *models.Staff) { m.Permissions = got.Clone() })
	s.busy.Permissions = false
	s.mu.Unlock()
	return got, nil
}

func (s *StaffStore) Activate(ctx context.Context, id string) (*models.Staff, error) {
	return s.setActive(ctx, id, true)
}

func (s *StaffStore) Deactivate(ctx context.Context, id string) (*models.Staff, error) {
	return s.setActive(ctx, id, false)
}

func (s *StaffStore) setActive(ctx context.Context, id string, active bool) (*models.Staff, error) {
	s.begin(&s.busy.Status)
	call := s.api.DeactivateStaff
	if active {
		call = s.api.ActivateStaff
	}
	m, err := call(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, "status", &s.busy.Status, err)
	}

	s.mu.Lock()
	if m != nil {
		s.cache.replace(*m)
	} else {
		// The server confirmed the change without returning the record.
		s.cache.patch(id, func(st *models.Staff) { st.IsActive = active })
	}
	s.busy.Status = false
	s.mu.Unlock()
	s.log.Info(ctx, "staff status changed", "id", id, "active", active)
	return m, nil
}
