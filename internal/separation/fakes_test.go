package separation

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/meridian-hr/internal/departments"
	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/performance"
	"github.com/meridian-hr/meridian-hr/internal/roles"
	"github.com/meridian-hr/meridian-hr/internal/shared"
)

type memRepo struct {
	mu         sync.Mutex
	requests   map[uuid.UUID]Request
	checklists map[uuid.UUID]Checklist
}

func newMemRepo() *memRepo {
	return &memRepo{
		requests:   make(map[uuid.UUID]Request),
		checklists: make(map[uuid.UUID]Checklist),
	}
}

func (m *memRepo) CreateRequest(_ context.Context, req Request) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.requests {
		if existing.SubjectID == req.SubjectID && existing.Status.Active() {
			return Request{}, ErrActiveRequestExists
		}
	}
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.CreatedAt = time.Now().UTC()
	req.UpdatedAt = req.CreatedAt
	m.requests[req.ID] = req
	return req, nil
}

func (m *memRepo) GetRequest(_ context.Context, id uuid.UUID) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	return req, nil
}

func (m *memRepo) FindActiveBySubject(_ context.Context, subjectID uuid.UUID) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if req.SubjectID == subjectID && req.Status.Active() {
			found := req
			return &found, nil
		}
	}
	return nil, nil
}

func (m *memRepo) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []Request
	for _, req := range m.requests {
		if req.SubjectID == subjectID {
			list = append(list, req)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *memRepo) UpdateRequestStatus(_ context.Context, id uuid.UUID, status RequestStatus, hrComments *string) (Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return Request{}, ErrRequestNotFound
	}
	req.Status = status
	if hrComments != nil {
		req.HRComments = hrComments
	}
	if status == StatusApproved {
		now := time.Now().UTC()
		req.EffectiveDate = &now
	}
	req.UpdatedAt = time.Now().UTC()
	m.requests[id] = req
	return req, nil
}

func (m *memRepo) ClaimRevocation(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.RevokedAt != nil {
		return false, nil
	}
	req.RevokedAt = &at
	m.requests[id] = req
	return true, nil
}

func (m *memRepo) ReleaseRevocation(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok || req.RevokedAt == nil || !req.RevokedAt.Equal(at) {
		return nil
	}
	req.RevokedAt = nil
	m.requests[id] = req
	return nil
}

func (m *memRepo) CreateChecklist(_ context.Context, c Checklist) (Checklist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.checklists {
		if existing.RequestID == c.RequestID {
			return Checklist{}, ErrChecklistExists
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	m.checklists[c.ID] = cloneChecklist(c)
	return cloneChecklist(c), nil
}

func (m *memRepo) GetChecklist(_ context.Context, id uuid.UUID) (Checklist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checklists[id]
	if !ok {
		return Checklist{}, ErrChecklistNotFound
	}
	return cloneChecklist(c), nil
}

func (m *memRepo) GetChecklistByRequest(_ context.Context, requestID uuid.UUID) (*Checklist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.checklists {
		if c.RequestID == requestID {
			clone := cloneChecklist(c)
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memRepo) UpdateDepartmentItem(_ context.Context, checklistID uuid.UUID, department string, status ItemStatus, approverID uuid.UUID, comments *string) (DepartmentItem, ItemStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.checklists[checklistID]
	if !ok {
		return DepartmentItem{}, "", ErrItemNotFound
	}
	for i, item := range c.DepartmentItems {
		if item.Department != department {
			continue
		}
		prev := item.Status
		now := time.Now().UTC()
		item.Status = status
		item.ApproverID = &approverID
		if comments != nil {
			item.Comments = comments
		}
		item.UpdatedAt = &now
		c.DepartmentItems[i] = item
		m.checklists[checklistID] = c
		return item, prev, nil
	}
	return DepartmentItem{}, "", ErrItemNotFound
}

func (m *memRepo) ListStaleItems(_ context.Context, olderThan time.Time) ([]StaleItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []StaleItem
	for _, c := range m.checklists {
		for _, item := range c.DepartmentItems {
			if item.Status != ItemPending {
				continue
			}
			last := c.CreatedAt
			if item.UpdatedAt != nil {
				last = *item.UpdatedAt
			}
			if last.Before(olderThan) {
				list = append(list, StaleItem{
					ChecklistID: c.ID,
					RequestID:   c.RequestID,
					Department:  item.Department,
					CreatedAt:   c.CreatedAt,
				})
			}
		}
	}
	return list, nil
}

func cloneChecklist(c Checklist) Checklist {
	clone := c
	clone.DepartmentItems = append([]DepartmentItem(nil), c.DepartmentItems...)
	clone.EquipmentItems = append([]EquipmentItem(nil), c.EquipmentItems...)
	return clone
}

type fakeDirectory struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]employees.Status
}

func newFakeDirectory(ids ...uuid.UUID) *fakeDirectory {
	d := &fakeDirectory{statuses: make(map[uuid.UUID]employees.Status)}
	for _, id := range ids {
		d.statuses[id] = employees.StatusActive
	}
	return d
}

func (d *fakeDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.statuses[id]
	return ok, nil
}

func (d *fakeDirectory) GetStatus(_ context.Context, id uuid.UUID) (employees.Status, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.statuses[id], nil
}

func (d *fakeDirectory) SetStatus(_ context.Context, id uuid.UUID, status employees.Status, _ time.Time) (employees.Employee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[id] = status
	return employees.Employee{ID: id, Status: status}, nil
}

type fakeContracts struct {
	known map[uuid.UUID]bool
}

func newFakeContracts(ids ...uuid.UUID) *fakeContracts {
	c := &fakeContracts{known: make(map[uuid.UUID]bool)}
	for _, id := range ids {
		c.known[id] = true
	}
	return c
}

func (c *fakeContracts) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return c.known[id], nil
}

type fakeReviews struct {
	review *performance.Review
}

func (f *fakeReviews) LatestScored(_ context.Context, _ uuid.UUID) (*performance.Review, error) {
	return f.review, nil
}

type fakeRoles struct {
	mu     sync.Mutex
	grants map[uuid.UUID]*roles.Grant
	calls  int
}

func (f *fakeRoles) FindBySubject(_ context.Context, subjectID uuid.UUID) (*roles.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.grants[subjectID], nil
}

func (f *fakeRoles) Deactivate(_ context.Context, subjectID uuid.UUID) (*roles.Grant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	grant, ok := f.grants[subjectID]
	if !ok || !grant.Active {
		return nil, nil
	}
	now := time.Now().UTC()
	grant.Active = false
	grant.DeactivatedAt = &now
	return grant, nil
}

type fakeDeptDir struct {
	heads map[string]uuid.UUID
}

func (f *fakeDeptDir) FindHead(_ context.Context, name string) (*departments.Head, error) {
	id, ok := f.heads[name]
	if !ok {
		return nil, nil
	}
	return &departments.Head{EmployeeID: id}, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (f *fakeNotifier) Send(_ context.Context, msg notify.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
}

func (f *fakeNotifier) byKind(kind notify.Kind) []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []notify.Message
	for _, msg := range f.sent {
		if msg.Kind == kind {
			list = append(list, msg)
		}
	}
	return list
}

type fakeAudit struct {
	mu      sync.Mutex
	records []shared.AuditLog
}

func (f *fakeAudit) Record(_ context.Context, log shared.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, log)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
