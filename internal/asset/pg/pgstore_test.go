package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"meams.org/internal/asset"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestBindTrackingIDBindsWhenUnset(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update supplies set qr_tracking_id").
		WithArgs("SU-1", "candidate").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("select qr_tracking_id from supplies").
		WithArgs("SU-1").
		WillReturnRows(sqlmock.NewRows([]string{"qr_tracking_id"}).AddRow("candidate"))

	bound, err := store.BindTrackingID(context.Background(), asset.KindSupply, "SU-1", "candidate")
	if err != nil {
		t.Fatalf("BindTrackingID: %v", err)
	}
	if bound != "candidate" {
		t.Fatalf("unexpected bound id: %s", bound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBindTrackingIDReturnsExistingWinner(t *testing.T) {
	store, mock := newMockStore(t)

	// The conditional update touches no row; the re-read reveals the winner.
	mock.ExpectExec("update equipment set qr_tracking_id").
		WithArgs("EQ-1", "loser").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select qr_tracking_id from equipment").
		WithArgs("EQ-1").
		WillReturnRows(sqlmock.NewRows([]string{"qr_tracking_id"}).AddRow("winner"))

	bound, err := store.BindTrackingID(context.Background(), asset.KindEquipment, "EQ-1", "loser")
	if err != nil {
		t.Fatalf("BindTrackingID: %v", err)
	}
	if bound != "winner" {
		t.Fatalf("expected winner id, got %s", bound)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBindTrackingIDMissingAsset(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update supplies set qr_tracking_id").
		WithArgs("missing", "candidate").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select qr_tracking_id from supplies").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"qr_tracking_id"}))

	if _, err := store.BindTrackingID(context.Background(), asset.KindSupply, "missing", "candidate"); !errors.Is(err, asset.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendTransactionUpdatesQuantity(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("update supplies").
		WithArgs("SU-1", sqlmock.AnyArg(), 35).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AppendTransaction(context.Background(), "SU-1", asset.Transaction{
		Date:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		IssueOut: 5,
		Balance:  35,
	})
	if err != nil {
		t.Fatalf("AppendTransaction: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetSupplyDecodesEmbeddedHistory(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "item_code", "name", "category", "location", "status",
		"quantity", "unit", "qr_tracking_id", "image", "documents",
		"transactions", "created_at", "updated_at",
	}).AddRow(
		"SU-1", "SU-1", "Gauze", "Consumables", "Storeroom A", "Available",
		35, "box", "track-su-1", nil, []byte(`[]`),
		[]byte(`[{"date":"2026-03-01T00:00:00Z","receipt_in":0,"issue_out":5,"balance":35}]`),
		now, now,
	)
	mock.ExpectQuery("select (.+) from supplies where id=").
		WithArgs("SU-1").
		WillReturnRows(rows)

	sup, err := store.GetSupply(context.Background(), "SU-1")
	if err != nil {
		t.Fatalf("GetSupply: %v", err)
	}
	if sup.TrackingID != "track-su-1" {
		t.Fatalf("unexpected tracking id: %s", sup.TrackingID)
	}
	if len(sup.Transactions) != 1 || sup.Transactions[0].Balance != 35 {
		t.Fatalf("transactions not decoded: %+v", sup.Transactions)
	}
}
