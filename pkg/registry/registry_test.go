package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"internship-placement/internal/engine"
)

func loadShippedCatalog(t *testing.T) *ActionRegistry {
	t.Helper()
	reg, err := LoadRegistry("../../configs/actions.json")
	require.NoError(t, err)
	return reg
}

func TestShippedCatalog_EveryActionIsALifecycleEdge(t *testing.T) {
	reg := loadShippedCatalog(t)
	require.Len(t, reg.Actions, 6)

	for _, action := range reg.Actions {
		_, err := engine.ParseAction(action.ID)
		assert.NoError(t, err, action.ID)
		assert.NotEmpty(t, action.RequiredRole, action.ID)
		assert.NotEmpty(t, action.FromStatuses, action.ID)
	}
}

func TestShippedCatalog_EvaluateFiresFromPendingAndInterview(t *testing.T) {
	reg := loadShippedCatalog(t)

	evaluate := reg.Lookup("EVALUATE")
	require.NotNil(t, evaluate)
	// direct evaluation without a scheduled interview is a documented edge
	assert.ElementsMatch(t, []string{"PENDING", "INTERVIEW"}, evaluate.FromStatuses)
}

func TestShippedCatalog_SchemasRejectMalformedPayloads(t *testing.T) {
	reg := loadShippedCatalog(t)

	err := reg.ValidatePayload("SCHEDULE_INTERVIEW", map[string]interface{}{
		"mode": "VIRTUAL",
	})
	assert.Error(t, err, "dateTime is required")

	err = reg.ValidatePayload("EVALUATE", map[string]interface{}{
		"decision": "MAYBE",
	})
	assert.Error(t, err, "decision is an enum")

	err = reg.ValidatePayload("EVALUATE", map[string]interface{}{
		"decision": "APPROVED",
	})
	assert.NoError(t, err)
}
