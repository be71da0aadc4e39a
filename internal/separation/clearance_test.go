package separation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
)

type clearanceFixture struct {
	aggregator *Aggregator
	repo       *memRepo
	notifier   *fakeNotifier
	heads      map[string]uuid.UUID
	request    Request
}

func newClearanceFixture(t *testing.T) *clearanceFixture {
	t.Helper()
	repo := newMemRepo()
	notifier := &fakeNotifier{}
	heads := map[string]uuid.UUID{
		"IT":      uuid.New(),
		"Finance": uuid.New(),
	}
	aggregator := NewAggregator(repo, &fakeDeptDir{heads: heads}, notifier, nil, testLogger())

	req, err := repo.CreateRequest(context.Background(), Request{
		SubjectID:  uuid.New(),
		ContractID: uuid.New(),
		Initiator:  InitiatorEmployee,
		Reason:     "moving on to a new role",
		Status:     StatusApproved,
	})
	require.NoError(t, err)

	return &clearanceFixture{
		aggregator: aggregator,
		repo:       repo,
		notifier:   notifier,
		heads:      heads,
		request:    req,
	}
}

func (f *clearanceFixture) createChecklist(t *testing.T, departments ...string) Checklist {
	t.Helper()
	checklist, err := f.aggregator.InitiateChecklist(context.Background(), ChecklistInput{
		RequestID:   f.request.ID,
		Departments: departments,
	})
	require.NoError(t, err)
	return checklist
}

func (f *clearanceFixture) signOff(t *testing.T, checklistID uuid.UUID, department string, status ItemStatus) SignOffResult {
	t.Helper()
	result, err := f.aggregator.ApplyDepartmentSignOff(context.Background(), SignOffInput{
		ChecklistID: checklistID,
		Department:  department,
		Status:      status,
		ApproverID:  uuid.New(),
	})
	require.NoError(t, err)
	return result
}

func TestInitiateChecklistStartsAllItemsPending(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance", "Admin")

	require.Len(t, checklist.DepartmentItems, 3)
	for _, item := range checklist.DepartmentItems {
		assert.Equal(t, ItemPending, item.Status)
		assert.Nil(t, item.ApproverID)
	}

	summary := Summarize(checklist.DepartmentItems)
	assert.False(t, summary.AllApproved)
	assert.Equal(t, 3, summary.Pending)
}

func TestInitiateChecklistValidation(t *testing.T) {
	f := newClearanceFixture(t)

	_, err := f.aggregator.InitiateChecklist(context.Background(), ChecklistInput{RequestID: f.request.ID})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.aggregator.InitiateChecklist(context.Background(), ChecklistInput{
		RequestID:   f.request.ID,
		Departments: []string{"IT", "IT"},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.aggregator.InitiateChecklist(context.Background(), ChecklistInput{
		RequestID:   f.request.ID,
		Departments: []string{"IT", ""},
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestInitiateChecklistUnknownRequest(t *testing.T) {
	f := newClearanceFixture(t)
	_, err := f.aggregator.InitiateChecklist(context.Background(), ChecklistInput{
		RequestID:   uuid.New(),
		Departments: []string{"IT"},
	})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestInitiateChecklistSingletonPerRequest(t *testing.T) {
	f := newClearanceFixture(t)
	f.createChecklist(t, "IT")

	_, err := f.aggregator.InitiateChecklist(context.Background(), ChecklistInput{
		RequestID:   f.request.ID,
		Departments: []string{"Finance"},
	})
	assert.ErrorIs(t, err, httpx.ErrConflict)
}

func TestInitiateChecklistNotifiesConfiguredHeadsOnly(t *testing.T) {
	f := newClearanceFixture(t)
	f.createChecklist(t, "IT", "Finance", "Admin")

	// Admin has no head configured, so only two sign-off notices go out.
	msgs := f.notifier.byKind(notify.KindSignOff)
	require.Len(t, msgs, 2)
	recipients := map[uuid.UUID]bool{}
	for _, msg := range msgs {
		require.Len(t, msg.RecipientIDs, 1)
		recipients[msg.RecipientIDs[0]] = true
	}
	assert.True(t, recipients[f.heads["IT"]])
	assert.True(t, recipients[f.heads["Finance"]])
}

func TestApplyDepartmentSignOffUpdatesAggregate(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance")

	result := f.signOff(t, checklist.ID, "IT", ItemApproved)

	assert.Equal(t, ItemApproved, result.Status)
	assert.Equal(t, 1, result.Summary.Approved)
	assert.Equal(t, 1, result.Summary.Pending)
	assert.Equal(t, []string{"Finance"}, result.Summary.PendingDepartments)
	assert.False(t, result.Summary.AllApproved)
}

func TestApplyDepartmentSignOffUnknownDepartment(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance")

	_, err := f.aggregator.ApplyDepartmentSignOff(context.Background(), SignOffInput{
		ChecklistID: checklist.ID,
		Department:  "Legal",
		Status:      ItemApproved,
		ApproverID:  uuid.New(),
	})
	require.ErrorIs(t, err, httpx.ErrNotFound)
	assert.Contains(t, err.Error(), "IT, Finance")
}

func TestApplyDepartmentSignOffInvalidStatus(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT")

	_, err := f.aggregator.ApplyDepartmentSignOff(context.Background(), SignOffInput{
		ChecklistID: checklist.ID,
		Department:  "IT",
		Status:      ItemStatus("MAYBE"),
		ApproverID:  uuid.New(),
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestApplyDepartmentSignOffUnknownChecklist(t *testing.T) {
	f := newClearanceFixture(t)
	_, err := f.aggregator.ApplyDepartmentSignOff(context.Background(), SignOffInput{
		ChecklistID: uuid.New(),
		Department:  "IT",
		Status:      ItemApproved,
		ApproverID:  uuid.New(),
	})
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSignOffLastWriteWins(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance")

	f.signOff(t, checklist.ID, "IT", ItemApproved)
	result := f.signOff(t, checklist.ID, "IT", ItemRejected)

	assert.Equal(t, ItemRejected, result.Status)
	assert.True(t, result.Summary.AnyRejected)
	assert.Equal(t, 0, result.Summary.Approved)
}

func TestEscalationFiresOnlyOnTransitionIntoRejected(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance")

	f.signOff(t, checklist.ID, "IT", ItemRejected)
	require.Len(t, f.notifier.byKind(notify.KindEscalation), 1)

	// Re-recording the same rejection must not escalate again.
	f.signOff(t, checklist.ID, "IT", ItemRejected)
	assert.Len(t, f.notifier.byKind(notify.KindEscalation), 1)

	// A fresh transition into REJECTED escalates.
	f.signOff(t, checklist.ID, "IT", ItemApproved)
	f.signOff(t, checklist.ID, "IT", ItemRejected)
	assert.Len(t, f.notifier.byKind(notify.KindEscalation), 2)
}

func TestFullClearanceNoticeFiresExactlyOnce(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance")

	f.signOff(t, checklist.ID, "IT", ItemApproved)
	assert.Empty(t, f.notifier.byKind(notify.KindClearanceComplete))

	result := f.signOff(t, checklist.ID, "Finance", ItemApproved)
	assert.True(t, result.Summary.AllApproved)
	require.Len(t, f.notifier.byKind(notify.KindClearanceComplete), 1)

	// Re-approving an already approved item must not re-announce.
	f.signOff(t, checklist.ID, "Finance", ItemApproved)
	assert.Len(t, f.notifier.byKind(notify.KindClearanceComplete), 1)
}

func TestClearanceWalkthroughFourDepartments(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance", "Admin", "HR")

	f.signOff(t, checklist.ID, "IT", ItemApproved)
	f.signOff(t, checklist.ID, "Finance", ItemApproved)
	result := f.signOff(t, checklist.ID, "Admin", ItemApproved)

	assert.False(t, result.Summary.AllApproved)
	assert.Equal(t, []string{"HR"}, result.Summary.PendingDepartments)

	result = f.signOff(t, checklist.ID, "HR", ItemApproved)
	assert.True(t, result.Summary.AllApproved)
	assert.Equal(t, 4, result.Summary.Approved)
	assert.Empty(t, result.Summary.PendingDepartments)
	assert.Len(t, f.notifier.byKind(notify.KindClearanceComplete), 1)
}

func TestGetChecklistDerivesSummary(t *testing.T) {
	f := newClearanceFixture(t)
	checklist := f.createChecklist(t, "IT", "Finance")
	f.signOff(t, checklist.ID, "IT", ItemApproved)

	loaded, summary, err := f.aggregator.GetChecklist(context.Background(), checklist.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.DepartmentItems, 2)
	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 1, summary.Pending)

	_, _, err = f.aggregator.GetChecklist(context.Background(), uuid.New())
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestSummarizeEmptyChecklistNotApproved(t *testing.T) {
	summary := Summarize(nil)
	assert.False(t, summary.AllApproved)
	assert.False(t, summary.AnyRejected)
	assert.Zero(t, summary.Pending)
}
