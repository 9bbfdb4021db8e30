// Package resource implements the list-view state machine shared by the
// console's paged CRUD screens.
//
// A Controller owns one list view of one backend collection: the current
// page, the page-size cursor, the create/edit form with its draft, and the
// two-phase delete confirmation. The backend stays the source of truth;
// every successful mutation re-fetches the affected page instead of
// patching local state.
//
// States:
//
//	Idle -> Loading -> Ready (Empty when the page has no items)
//	FormClosed | FormOpen(Create|Edit, draft)
//	ConfirmClosed | ConfirmOpen(target)
package resource

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/stockconsole/internal/app/system/envelope"
	"github.com/dalemusser/stockconsole/internal/app/system/gateway"
	"github.com/dalemusser/stockconsole/internal/app/system/paging"
	"go.uber.org/zap"
)

// SubmitKey is the FieldErrors key for a form-level submission error.
const SubmitKey = "submit"

// Fallback messages for failed mutations.
const (
	MsgSaveFailed   = "Error al guardar"
	MsgDeleteFailed = "Error al eliminar"
)

var (
	// ErrInvalid means the draft failed validation; nothing was sent.
	ErrInvalid = errors.New("resource: draft has validation errors")
	// ErrNoForm means Submit was called with the form closed.
	ErrNoForm = errors.New("resource: form is not open")
	// ErrNoTarget means ConfirmDelete was called with no pending deletion.
	ErrNoTarget = errors.New("resource: no deletion pending")
	// ErrPageSize means SetPageSize was given a size outside paging.PageSizes.
	ErrPageSize = errors.New("resource: unsupported page size")
)

// Adapter binds a Controller to one backend collection.
type Adapter[T, D any] interface {
	List(ctx context.Context, page, size int, sort string) (envelope.Envelope[T], error)
	Create(ctx context.Context, draft D) error
	Update(ctx context.Context, entity T, draft D) error
	Delete(ctx context.Context, entity T) error

	Blank() D
	DraftOf(entity T) D
	Validate(draft D) FieldErrors
}

// Status is the list half of the controller state.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// FormMode is the form half of the controller state.
type FormMode int

const (
	FormClosed FormMode = iota
	FormCreate
	FormEdit
)

// Options configures a Controller.
type Options struct {
	PageSize  int    // defaults to paging.DefaultPageSize
	SortOrder string // defaults to "desc"
	Logger    *zap.Logger

	// DeferReload skips the re-fetch after a successful mutation and only
	// moves the page cursor. Request/redirect handlers use it because the
	// redirect target performs the load.
	DeferReload bool
}

// Controller is the state machine for one list view.
type Controller[T, D any] struct {
	mu          sync.Mutex
	adapter     Adapter[T, D]
	log         *zap.Logger
	deferReload bool

	status   Status
	env      envelope.Envelope[T]
	page     int
	pageSize int
	sort     string
	gen      uint64
	loadErr  error

	form    FormMode
	editing *T
	draft   D
	errs    FieldErrors

	confirm   *T
	deleteErr string
}

// New constructs an Idle controller.
func New[T, D any](adapter Adapter[T, D], opts Options) *Controller[T, D] {
	size := opts.PageSize
	if !paging.ValidPageSize(size) {
		size = paging.DefaultPageSize
	}
	sort := opts.SortOrder
	if sort == "" {
		sort = "desc"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller[T, D]{
		adapter:     adapter,
		log:         logger,
		deferReload: opts.DeferReload,
		page:        1,
		pageSize:    size,
		sort:        sort,
		env:         envelope.Empty[T](size),
		errs:        FieldErrors{},
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| List                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// Load fetches one page and moves to Ready.
//
// A failed fetch still ends in Ready, with an empty page and no pagination
// metadata; the error is returned so callers can react to session expiry.
// When loads overlap, only the most recently started one updates the view.
func (c *Controller[T, D]) Load(ctx context.Context, page, size int, sort string) error {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = c.currentPageSize()
	}
	if sort == "" {
		sort = "desc"
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.status = Loading
	c.page = page
	c.pageSize = size
	c.sort = sort
	c.mu.Unlock()

	env, err := c.adapter.List(ctx, page, size, sort)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug("discarding stale page load", zap.Int("page", page))
		return err
	}
	if err != nil {
		c.log.Warn("page load failed; showing empty page",
			zap.Int("page", page), zap.Int("page_size", size), zap.Error(err))
		env = envelope.Empty[T](size)
	}
	c.env = env
	c.loadErr = err
	c.status = Ready
	return err
}

func (c *Controller[T, D]) currentPageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

// SetPage loads page p with the current size and sort order.
func (c *Controller[T, D]) SetPage(ctx context.Context, p int) error {
	c.mu.Lock()
	size, sort := c.pageSize, c.sort
	c.mu.Unlock()
	return c.Load(ctx, p, size, sort)
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller[T, D]) SetPageSize(ctx context.Context, size int) error {
	if !paging.ValidPageSize(size) {
		return ErrPageSize
	}
	c.mu.Lock()
	sort := c.sort
	c.mu.Unlock()
	return c.Load(ctx, 1, size, sort)
}

// Reload fetches the current page again.
func (c *Controller[T, D]) Reload(ctx context.Context) error {
	c.mu.Lock()
	page, size, sort := c.page, c.pageSize, c.sort
	c.mu.Unlock()
	return c.Load(ctx, page, size, sort)
}

// Page returns the page cursor.
func (c *Controller[T, D]) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

// PageSize returns the page-size cursor.
func (c *Controller[T, D]) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

// LoadErr returns the error from the last applied load, if any.
func (c *Controller[T, D]) LoadErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

/*─────────────────────────────────────────────────────────────────────────────*
| Form                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// OpenCreate opens the form with a blank draft.
func (c *Controller[T, D]) OpenCreate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = FormCreate
	c.editing = nil
	c.draft = c.adapter.Blank()
	c.errs = FieldErrors{}
}

// OpenEdit opens the form with a draft copied from entity.
func (c *Controller[T, D]) OpenEdit(entity T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entity
	c.form = FormEdit
	c.editing = &e
	c.draft = c.adapter.DraftOf(entity)
	c.errs = FieldErrors{}
}

// CloseForm discards the draft.
func (c *Controller[T, D]) CloseForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeFormLocked()
}

func (c *Controller[T, D]) closeFormLocked() {
	var zero D
	c.form = FormClosed
	c.editing = nil
	c.draft = zero
	c.errs = FieldErrors{}
}

// SetDraft replaces the draft with the user's edits. It is a no-op while
// the form is closed.
func (c *Controller[T, D]) SetDraft(d D) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.form == FormClosed {
		return
	}
	c.draft = d
}

// Validate checks the draft and records the field errors.
func (c *Controller[T, D]) Validate() FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = c.adapter.Validate(c.draft)
	if c.errs == nil {
		c.errs = FieldErrors{}
	}
	return c.errs.Clone()
}

// Submit validates the draft and sends it as a create or update.
//
// Validation failures return ErrInvalid without a network call. A failed
// call keeps the form and draft and records a SubmitKey error. On success
// the form closes; an edit reloads the current page and a create reloads
// page 1.
func (c *Controller[T, D]) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.form == FormClosed {
		c.mu.Unlock()
		return ErrNoForm
	}
	errs := c.adapter.Validate(c.draft)
	if errs.HasErrors() {
		c.errs = errs
		c.mu.Unlock()
		return ErrInvalid
	}
	c.errs = FieldErrors{}
	mode, draft, page := c.form, c.draft, c.page
	var editing T
	if c.editing != nil {
		editing = *c.editing
	}
	c.mu.Unlock()

	var err error
	if mode == FormCreate {
		err = c.adapter.Create(ctx, draft)
	} else {
		err = c.adapter.Update(ctx, editing, draft)
	}
	if err != nil {
		c.mu.Lock()
		c.errs = FieldErrors{SubmitKey: gateway.MessageOf(err, MsgSaveFailed)}
		c.mu.Unlock()
		c.log.Info("submit failed", zap.Error(err))
		return err
	}

	target := page
	if mode == FormCreate {
		target = 1
	}

	c.mu.Lock()
	c.closeFormLocked()
	c.page = target
	size, sort := c.pageSize, c.sort
	c.mu.Unlock()

	if c.deferReload {
		return nil
	}
	_ = c.Load(ctx, target, size, sort)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Delete                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// RequestDelete opens the confirmation for entity. No call is made.
func (c *Controller[T, D]) RequestDelete(entity T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := entity
	c.confirm = &e
	c.deleteErr = ""
}

// CancelDelete closes the confirmation.
func (c *Controller[T, D]) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = nil
	c.deleteErr = ""
}

// ConfirmDelete deletes the pending target.
//
// On success the confirmation closes and the current page reloads (page 1
// when no pagination metadata is held). On failure the confirmation stays
// as it was and an error message is recorded.
func (c *Controller[T, D]) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.confirm == nil {
		c.mu.Unlock()
		return ErrNoTarget
	}
	target := *c.confirm
	page := 1
	if c.env.HasMeta {
		page = c.env.CurrentPage
	}
	c.mu.Unlock()

	if err := c.adapter.Delete(ctx, target); err != nil {
		c.mu.Lock()
		c.deleteErr = MsgDeleteFailed
		c.mu.Unlock()
		c.log.Info("delete failed", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.confirm = nil
	c.deleteErr = ""
	c.page = page
	size, sort := c.pageSize, c.sort
	c.mu.Unlock()

	if c.deferReload {
		return nil
	}
	_ = c.Load(ctx, page, size, sort)
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| View                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// View is a consistent copy of the controller state for rendering.
type View[T, D any] struct {
	Status   Status
	Envelope envelope.Envelope[T]
	Items    []T
	Empty    bool

	Page     int
	PageSize int
	Sort     string
	Pages    []int
	Range    paging.Range

	FormMode FormMode
	Editing  *T
	Draft    D
	Errors   FieldErrors

	ConfirmTarget *T
	DeleteError   string
}

// Snapshot returns the current state.
func (c *Controller[T, D]) Snapshot() View[T, D] {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View[T, D]{
		Status:      c.status,
		Envelope:    c.env,
		Items:       c.env.Items,
		Empty:       c.status == Ready && len(c.env.Items) == 0,
		Page:        c.page,
		PageSize:    c.pageSize,
		Sort:        c.sort,
		FormMode:    c.form,
		Draft:       c.draft,
		Errors:      c.errs.Clone(),
		DeleteError: c.deleteErr,
	}
	if c.env.HasMeta {
		v.Pages = paging.PageNumbers(c.env.CurrentPage, c.env.TotalPages)
		v.Range = paging.ComputeRange(c.env.CurrentPage, c.env.PageSize, c.env.TotalCount, true)
	}
	if c.editing != nil {
		e := *c.editing
		v.Editing = &e
	}
	if c.confirm != nil {
		t := *c.confirm
		v.ConfirmTarget = &t
	}
	return v
}
