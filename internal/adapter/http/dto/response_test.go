package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/adledger/internal/domain"
)

func TestAccountFromDomain_ComputesAvailable(t *testing.T) {
	resp := AccountFromDomain(&domain.Account{
		UserID:        "u1",
		Balance:       decimal.NewFromInt(100),
		BalanceOnHold: decimal.NewFromInt(30),
	})

	assert.True(t, resp.Available.Equal(decimal.NewFromInt(70)))
}

func TestBudgetFromDomain_FlattensBudget(t *testing.T) {
	resp := BudgetFromDomain(&domain.CampaignBudget{
		CampaignID:  "camp-1",
		BudgetTotal: decimal.NewFromInt(100),
		BudgetSpent: decimal.NewFromInt(40),
		Status:      domain.CampaignStatusActive,
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "camp-1", decoded["campaign_id"])
	assert.Equal(t, "60", decoded["remaining"])
	assert.Equal(t, "active", decoded["status"])

	assert.Nil(t, BudgetFromDomain(nil))
}

func TestAuditLogsFromDomain(t *testing.T) {
	logs := AuditLogsFromDomain([]*domain.AuditLog{
		{ID: "a1", Action: string(domain.AuditActionCampaignSettle), ResourceID: "camp-1", Status: "success"},
	})

	require.Len(t, logs, 1)
	assert.Equal(t, "campaign.settle", logs[0].Action)
	assert.Equal(t, "camp-1", logs[0].ResourceID)
}
