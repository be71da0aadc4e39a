package separation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/meridian-hr/internal/employees"
	"github.com/meridian-hr/meridian-hr/internal/notify"
	"github.com/meridian-hr/meridian-hr/internal/platform/httpx"
	"github.com/meridian-hr/meridian-hr/internal/roles"
)

type gateFixture struct {
	gate      *Gate
	repo      *memRepo
	directory *fakeDirectory
	roles     *fakeRoles
	audit     *fakeAudit
	notifier  *fakeNotifier
	security  uuid.UUID
	subject   uuid.UUID
}

func newGateFixture(t *testing.T, grant *roles.Grant) *gateFixture {
	t.Helper()
	subject := uuid.New()
	repo := newMemRepo()
	directory := newFakeDirectory(subject)
	roleStore := &fakeRoles{grants: map[uuid.UUID]*roles.Grant{}}
	if grant != nil {
		grant.SubjectID = subject
		roleStore.grants[subject] = grant
	}
	audit := &fakeAudit{}
	notifier := &fakeNotifier{}
	security := uuid.New()
	gate := NewGate(repo, directory, roleStore, audit, notifier, nil, testLogger(), []uuid.UUID{security})
	return &gateFixture{
		gate:      gate,
		repo:      repo,
		directory: directory,
		roles:     roleStore,
		audit:     audit,
		notifier:  notifier,
		security:  security,
		subject:   subject,
	}
}

func (f *gateFixture) createRequest(t *testing.T, status RequestStatus) Request {
	t.Helper()
	req, err := f.repo.CreateRequest(context.Background(), Request{
		SubjectID:  f.subject,
		ContractID: uuid.New(),
		Initiator:  InitiatorHR,
		Reason:     "end of fixed term contract",
		Status:     status,
	})
	require.NoError(t, err)
	return req
}

func TestRevokeApprovedRequest(t *testing.T) {
	grant := &roles.Grant{Roles: []string{"warehouse-operator", "timesheet-user"}, Permissions: []string{"wms:read"}, Active: true}
	f := newGateFixture(t, grant)
	req := f.createRequest(t, StatusApproved)

	reason := "final clearance complete"
	result, err := f.gate.Revoke(context.Background(), req.ID, &reason)
	require.NoError(t, err)

	assert.True(t, result.AccessRevoked)
	assert.False(t, result.AlreadyRevoked)
	assert.Equal(t, string(employees.StatusActive), result.PreviousStatus)
	assert.Equal(t, string(employees.StatusTerminated), result.NewStatus)
	assert.True(t, result.RoleFound)
	assert.Equal(t, grant.Roles, result.RolesDeactivated)
	require.NotNil(t, result.EffectiveAt)

	status, err := f.directory.GetStatus(context.Background(), f.subject)
	require.NoError(t, err)
	assert.Equal(t, employees.StatusTerminated, status)

	stored, err := f.repo.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.RevokedAt)
	// Revocation never changes the request status itself.
	assert.Equal(t, StatusApproved, stored.Status)

	require.Len(t, f.audit.records, 1)
	assert.Equal(t, "ACCESS_REVOKED", f.audit.records[0].Action)
	assert.Equal(t, req.ID.String(), f.audit.records[0].EntityID)

	securityMsgs := f.notifier.byKind(notify.KindRevocationSecurity)
	require.Len(t, securityMsgs, 1)
	assert.Equal(t, []uuid.UUID{f.security}, securityMsgs[0].RecipientIDs)
	assert.Contains(t, securityMsgs[0].Body, "warehouse-operator")

	subjectMsgs := f.notifier.byKind(notify.KindRevocationSubject)
	require.Len(t, subjectMsgs, 1)
	assert.Equal(t, []uuid.UUID{f.subject}, subjectMsgs[0].RecipientIDs)
}

func TestRevokeRequiresApprovedStatus(t *testing.T) {
	f := newGateFixture(t, nil)
	for _, status := range []RequestStatus{StatusPending, StatusUnderReview, StatusRejected} {
		req := f.createRequest(t, status)
		_, err := f.gate.Revoke(context.Background(), req.ID, nil)
		require.ErrorIs(t, err, httpx.ErrConflict, "status %s", status)
		assert.Contains(t, err.Error(), string(status))

		// Release the exclusivity slot for the next iteration.
		if status.Active() {
			_, err = f.repo.UpdateRequestStatus(context.Background(), req.ID, StatusRejected, nil)
			require.NoError(t, err)
		}
	}
}

func TestRevokeIsIdempotent(t *testing.T) {
	grant := &roles.Grant{Roles: []string{"clerk"}, Active: true}
	f := newGateFixture(t, grant)
	req := f.createRequest(t, StatusApproved)

	first, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.NoError(t, err)
	require.True(t, first.AccessRevoked)

	second, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.NoError(t, err)
	assert.True(t, second.AlreadyRevoked)
	assert.False(t, second.AccessRevoked)
	require.NotNil(t, second.EffectiveAt)
	assert.Equal(t, first.EffectiveAt.Unix(), second.EffectiveAt.Unix())

	// Exactly one deactivation, one audit record, one pair of notices.
	assert.Equal(t, 1, f.roles.calls)
	assert.Len(t, f.audit.records, 1)
	assert.Len(t, f.notifier.byKind(notify.KindRevocationSecurity), 1)
	assert.Len(t, f.notifier.byKind(notify.KindRevocationSubject), 1)
}

func TestRevokeToleratesMissingRoleGrant(t *testing.T) {
	f := newGateFixture(t, nil)
	req := f.createRequest(t, StatusApproved)

	result, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.AccessRevoked)
	assert.False(t, result.RoleFound)
	assert.Empty(t, result.RolesDeactivated)

	securityMsgs := f.notifier.byKind(notify.KindRevocationSecurity)
	require.Len(t, securityMsgs, 1)
	assert.Contains(t, securityMsgs[0].Body, "No system role grant")
}

func TestRevokeUnknownRequest(t *testing.T) {
	f := newGateFixture(t, nil)
	_, err := f.gate.Revoke(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

type flakyDirectory struct {
	*fakeDirectory
	failures int
}

func (d *flakyDirectory) SetStatus(ctx context.Context, id uuid.UUID, status employees.Status, at time.Time) (employees.Employee, error) {
	if d.failures > 0 {
		d.failures--
		return employees.Employee{}, errors.New("directory unavailable")
	}
	return d.fakeDirectory.SetStatus(ctx, id, status, at)
}

type flakyRoles struct {
	*fakeRoles
	failures int
}

func (f *flakyRoles) Deactivate(ctx context.Context, subjectID uuid.UUID) (*roles.Grant, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("role store unavailable")
	}
	return f.fakeRoles.Deactivate(ctx, subjectID)
}

func TestRevokeRetriesAfterTransientDirectoryFailure(t *testing.T) {
	grant := &roles.Grant{Roles: []string{"clerk"}, Active: true}
	f := newGateFixture(t, grant)
	req := f.createRequest(t, StatusApproved)
	f.gate.directory = &flakyDirectory{fakeDirectory: f.directory, failures: 1}

	_, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.Error(t, err)

	// The failed attempt must not leave the request claimed: the subject
	// is still active and no side effect has run.
	stored, err := f.repo.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RevokedAt)
	assert.Equal(t, 0, f.roles.calls)
	assert.Empty(t, f.notifier.sent)

	result, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.AccessRevoked)
	assert.False(t, result.AlreadyRevoked)

	status, err := f.directory.GetStatus(context.Background(), f.subject)
	require.NoError(t, err)
	assert.Equal(t, employees.StatusTerminated, status)
	assert.Equal(t, 1, f.roles.calls)
	assert.Len(t, f.notifier.byKind(notify.KindRevocationSecurity), 1)
	assert.Len(t, f.notifier.byKind(notify.KindRevocationSubject), 1)
}

func TestRevokeRetriesAfterRoleStoreFailure(t *testing.T) {
	grant := &roles.Grant{Roles: []string{"clerk"}, Active: true}
	f := newGateFixture(t, grant)
	req := f.createRequest(t, StatusApproved)
	f.gate.roleStore = &flakyRoles{fakeRoles: f.roles, failures: 1}

	_, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.Error(t, err)

	stored, err := f.repo.GetRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.RevokedAt)
	assert.Empty(t, f.notifier.sent)

	result, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.AccessRevoked)
	assert.True(t, result.RoleFound)
	assert.Equal(t, grant.Roles, result.RolesDeactivated)
	assert.Len(t, f.audit.records, 1)
}

func TestRevokeDoesNotDeactivateInactiveGrant(t *testing.T) {
	deactivated := time.Now().Add(-24 * time.Hour)
	grant := &roles.Grant{Roles: []string{"clerk"}, Active: false, DeactivatedAt: &deactivated}
	f := newGateFixture(t, grant)
	req := f.createRequest(t, StatusApproved)

	result, err := f.gate.Revoke(context.Background(), req.ID, nil)
	require.NoError(t, err)
	assert.True(t, result.AccessRevoked)
	assert.False(t, result.RoleFound)
}
