package services_test

import (
	"context"
	"time"

	"github.com/estateops/agentledger/internal/core/domain"
	"github.com/estateops/agentledger/internal/core/services"
	"github.com/estateops/agentledger/internal/platform/config"
	"github.com/estateops/agentledger/internal/repositories/database/memory"
	"github.com/shopspring/decimal"
)

// testEnv wires the full service container onto the in-memory store, so the
// suites exercise real guard and uniqueness behavior instead of mocks.
type testEnv struct {
	store  *memory.Store
	events *memory.SourceEventStore
	svcs   *services.ServiceContainer
	ctx    context.Context
}

func newTestEnv() *testEnv {
	store := memory.NewStore()
	events := memory.NewSourceEventStore()
	cfg := &config.Config{SyncConcurrency: 4, SyncEventTimeout: time.Second}
	svcs := services.NewServiceContainer(services.Repositories{
		Accounts:     store.Accounts(),
		Transactions: store.Transactions(),
		Payouts:      store.Payouts(),
		SourceEvents: events,
	}, cfg)
	return &testEnv{store: store, events: events, svcs: svcs, ctx: context.Background()}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func paymentDay(n int) time.Time {
	return time.Date(2026, time.February, n, 0, 0, 0, 0, time.UTC)
}

func completedEvent(id, recipientID, share string) domain.SourceEvent {
	return domain.SourceEvent{
		ID:              id,
		Amount:          dec(share).Mul(decimal.NewFromInt(10)),
		Status:          domain.SourceEventCompleted,
		PaymentDate:     paymentDay(1),
		ReferenceNumber: "PAY-" + id,
		RecipientID:     recipientID,
		Commission:      domain.Commission{RecipientShare: dec(share)},
	}
}

func splitEvent(id, ownerID, ownerShare, collaboratorID, collaboratorShare string) domain.SourceEvent {
	event := completedEvent(id, ownerID, ownerShare)
	event.Commission.Split = &domain.CommissionSplit{
		OwnerID:           ownerID,
		OwnerShare:        dec(ownerShare),
		CollaboratorID:    collaboratorID,
		CollaboratorShare: dec(collaboratorShare),
	}
	return event
}
