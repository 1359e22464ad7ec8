package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/publicworks-io/regie/internal/domain"
)

// ---------------------------------------------------------------------------
// 1. DelegationStatus.CanApply: full status x action matrix.
// ---------------------------------------------------------------------------

func TestDelegationStatus_CanApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from   domain.DelegationStatus
		action domain.LifecycleAction
		want   bool
	}{
		// From pending: only revoke.
		{domain.DelegationPending, domain.ActionSuspend, false},
		{domain.DelegationPending, domain.ActionReactivate, false},
		{domain.DelegationPending, domain.ActionExtend, false},
		{domain.DelegationPending, domain.ActionRevoke, true},

		// From active.
		{domain.DelegationActive, domain.ActionSuspend, true},
		{domain.DelegationActive, domain.ActionReactivate, false},
		{domain.DelegationActive, domain.ActionExtend, true},
		{domain.DelegationActive, domain.ActionRevoke, true},

		// From suspended.
		{domain.DelegationSuspended, domain.ActionSuspend, false},
		{domain.DelegationSuspended, domain.ActionReactivate, true},
		{domain.DelegationSuspended, domain.ActionExtend, false},
		{domain.DelegationSuspended, domain.ActionRevoke, true},

		// From expired: extend can resurrect, revoke still allowed.
		{domain.DelegationExpired, domain.ActionSuspend, false},
		{domain.DelegationExpired, domain.ActionReactivate, false},
		{domain.DelegationExpired, domain.ActionExtend, true},
		{domain.DelegationExpired, domain.ActionRevoke, true},

		// From revoked (terminal).
		{domain.DelegationRevoked, domain.ActionSuspend, false},
		{domain.DelegationRevoked, domain.ActionReactivate, false},
		{domain.DelegationRevoked, domain.ActionExtend, false},
		{domain.DelegationRevoked, domain.ActionRevoke, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.action), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.from.CanApply(tt.action))
		})
	}
}

func TestDelegationStatus_CanApply_UnknownAction(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.DelegationActive.CanApply(domain.LifecycleAction("archive")))
}

// ---------------------------------------------------------------------------
// 2. EffectiveStatus: time-derived pending->active->expired.
// ---------------------------------------------------------------------------

func TestDelegation_EffectiveStatus(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		stored domain.DelegationStatus
		now    time.Time
		want   domain.DelegationStatus
	}{
		{"pending before window", domain.DelegationPending, start.Add(-time.Hour), domain.DelegationPending},
		{"pending at window open", domain.DelegationPending, start, domain.DelegationActive},
		{"pending inside window", domain.DelegationPending, start.Add(24 * time.Hour), domain.DelegationActive},
		{"pending past window", domain.DelegationPending, end.Add(time.Hour), domain.DelegationExpired},
		{"active inside window", domain.DelegationActive, start.Add(24 * time.Hour), domain.DelegationActive},
		{"active at window close", domain.DelegationActive, end, domain.DelegationActive},
		{"active past window", domain.DelegationActive, end.Add(time.Second), domain.DelegationExpired},
		{"suspended never shifts", domain.DelegationSuspended, end.Add(time.Hour), domain.DelegationSuspended},
		{"revoked never shifts", domain.DelegationRevoked, end.Add(time.Hour), domain.DelegationRevoked},
		{"expired stays expired", domain.DelegationExpired, start.Add(time.Hour), domain.DelegationExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := &domain.Delegation{Status: tt.stored, StartsAt: start, EndsAt: end}
			assert.Equal(t, tt.want, d.EffectiveStatus(tt.now))
		})
	}
}

// ---------------------------------------------------------------------------
// 3. Event details round-trip through the closed union.
// ---------------------------------------------------------------------------

func TestDelegationEvent_DecodeDetails(t *testing.T) {
	t.Parallel()

	actorID := uuid.New()
	raw, err := json.Marshal(domain.ActorAddedDetails{
		ActorID:        actorID,
		Name:           "M. Fournier",
		RoleType:       "approver",
		CanApprove:     true,
		MustBeNotified: true,
	})
	require.NoError(t, err)

	e := &domain.DelegationEvent{Type: domain.EventActorAdded, Details: raw}

	details, err := e.DecodeDetails()
	require.NoError(t, err)

	added, ok := details.(domain.ActorAddedDetails)
	require.True(t, ok)
	assert.Equal(t, actorID, added.ActorID)
	assert.True(t, added.CanApprove)
	assert.Equal(t, domain.EventActorAdded, details.EventType())
}

func TestDelegationEvent_DecodeDetails_UnknownType(t *testing.T) {
	t.Parallel()

	e := &domain.DelegationEvent{Type: domain.EventType("MERGED"), Details: []byte(`{}`)}

	_, err := e.DecodeDetails()
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// 4. Error texture.
// ---------------------------------------------------------------------------

func TestPolicyError_Error(t *testing.T) {
	t.Parallel()

	err := &domain.PolicyError{Reason: domain.PolicyMaxExtensionsReached, Detail: "2 of 2 used"}
	assert.Contains(t, err.Error(), domain.PolicyMaxExtensionsReached)
	assert.Contains(t, err.Error(), "2 of 2 used")
}
