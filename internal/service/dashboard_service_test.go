package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/freightdesk/internal/constants"
)

func TestDashboardStatsWithoutCache(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	if _, err := env.fleet.CreateDriver(DriverInput{LastName: "Орлов"}); err != nil {
		t.Fatalf("create driver failed: %v", err)
	}
	if _, err := env.fleet.CreateClient(ClientInput{Name: "Перевозчик"}); err != nil {
		t.Fatalf("create client failed: %v", err)
	}
	for number, status := range map[string]string{
		"ORD-D1": constants.OrderStatusPending,
		"ORD-D2": constants.OrderStatusInTransit,
		"ORD-D3": constants.OrderStatusDelivered,
	} {
		if _, err := env.orders.CreateOrder(CreateOrderInput{OrderNumber: number, Status: status}); err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	stats, err := env.dashboard.GetStats(context.Background())
	if err != nil {
		t.Fatalf("get stats failed: %v", err)
	}
	if stats.ActiveOrders != 2 || stats.InTransit != 1 || stats.OrdersToday != 3 {
		t.Fatalf("unexpected order stats: %+v", stats)
	}
	if stats.TotalDrivers != 1 || stats.TotalVehicles != 0 || stats.TotalClients != 1 {
		t.Fatalf("unexpected fleet stats: %+v", stats)
	}
	var nilDashboard *DashboardService
	nilDashboard.Invalidate(context.Background())
}

func TestActivityLogRecentAndDefaults(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	if got := env.activity.ResolveActor("  "); got != constants.DefaultActorLabel {
		t.Fatalf("unexpected default actor: %s", got)
	}
	order, err := env.orders.CreateOrder(CreateOrderInput{OrderNumber: "ORD-A1"})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	recent, err := env.activity.ListRecent(500)
	if err != nil {
		t.Fatalf("list recent failed: %v", err)
	}
	if len(recent) != 1 || recent[0].OrderNumber != order.OrderNumber {
		t.Fatalf("unexpected recent logs: %+v", recent)
	}
	if _, err := env.activity.ListForOrder(0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDocumentRegistration(t *testing.T) {
	env := newServiceTestEnv(t, OrderOptions{})
	order, err := env.orders.CreateOrder(CreateOrderInput{OrderNumber: "ORD-DOC"})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	doc, err := env.documents.Create(DocumentInput{
		OrderID:   order.ID,
		DocType:   constants.DocumentTypeWaybill,
		DocNumber: "TN-1",
		Actor:     "Иванов",
	})
	if err != nil {
		t.Fatalf("create document failed: %v", err)
	}
	logs := env.activityFor(t, order.ID)
	if logs[0].ActionType != constants.ActionCreateDoc || !strings.Contains(logs[0].Description, "TN-1") {
		t.Fatalf("unexpected document log: %+v", logs[0])
	}
	if _, err := env.documents.Create(DocumentInput{OrderID: 404, DocType: constants.DocumentTypeContract}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if err := env.documents.Delete(doc.ID); err != nil {
		t.Fatalf("delete document failed: %v", err)
	}
	if err := env.documents.Delete(doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}
