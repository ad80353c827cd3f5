package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMachineMatchesTransitionTable(t *testing.T) {
	for _, from := range RequestStatuses {
		for _, action := range TransitionActions {
			got, err := machineTarget(from, action)
			require.NoError(t, err)

			want, declared := requestTransitions[from][action]
			if declared {
				assert.Equal(t, want, got, "%s + %s", from, action)
			} else {
				assert.Equal(t, from, got, "%s + %s should not move", from, action)
			}
		}
	}
}

func TestEveryStatusIsInTable(t *testing.T) {
	for _, s := range RequestStatuses {
		_, ok := requestTransitions[s]
		assert.True(t, ok, "status %s missing from table", s)
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name   string
		from   RequestStatus
		action Action
		want   RequestStatus
		ok     bool
	}{
		{"submit draft", RequestDraft, ActionSubmit, RequestSubmitted, true},
		{"approve submitted", RequestSubmitted, ActionApprove, RequestApproved, true},
		{"reject submitted", RequestSubmitted, ActionReject, RequestRejected, true},
		{"revise submitted", RequestSubmitted, ActionRequestRevision, RequestNeedsRevision, true},
		{"approve after revision", RequestNeedsRevision, ActionApprove, RequestApproved, true},
		{"resubmit after revision", RequestNeedsRevision, ActionSubmit, RequestSubmitted, true},
		{"fulfill approved", RequestApproved, ActionFulfill, RequestFulfilled, true},
		{"close fulfilled", RequestFulfilled, ActionClose, RequestClosed, true},
		{"approve draft", RequestDraft, ActionApprove, RequestDraft, false},
		{"approve rejected", RequestRejected, ActionApprove, RequestRejected, false},
		{"revise twice", RequestNeedsRevision, ActionRequestRevision, RequestNeedsRevision, false},
		{"fulfill submitted", RequestSubmitted, ActionFulfill, RequestSubmitted, false},
		{"close approved", RequestApproved, ActionClose, RequestApproved, false},
		{"submit closed", RequestClosed, ActionSubmit, RequestClosed, false},
		{"unknown status", RequestStatus("ARCHIVED"), ActionApprove, RequestStatus("ARCHIVED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := NextStatus(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestStatusPredicates(t *testing.T) {
	assert.True(t, RequestDraft.Editable())
	assert.True(t, RequestNeedsRevision.Editable())
	assert.False(t, RequestApproved.Editable())

	assert.True(t, RequestRejected.Terminal())
	assert.True(t, RequestClosed.Terminal())
	assert.False(t, RequestFulfilled.Terminal())

	assert.True(t, RequestSubmitted.AwaitingApproval())
	assert.False(t, RequestDraft.AwaitingApproval())
}
