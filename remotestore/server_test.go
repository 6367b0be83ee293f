package remotestore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/remote"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []config.LedgerEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev config.LedgerEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return "msg-1", nil
}

type remoteFixture struct {
	ctx       context.Context
	db        *gorm.DB
	srv       *httptest.Server
	publisher *recordingPublisher
}

func newRemoteFixture(t *testing.T) *remoteFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := config.OpenRemoteSQLite(":memory:")
	if err != nil {
		t.Fatalf("open remote db: %v", err)
	}
	pub := &recordingPublisher{}
	s := New(db, config.NewLogger(""), WithPublisher(pub))
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	srv := httptest.NewServer(s.Router(config.ServerSettings{}))
	t.Cleanup(srv.Close)
	return &remoteFixture{ctx: context.Background(), db: db, srv: srv, publisher: pub}
}

func (f *remoteFixture) client(t *testing.T, account string, lifespan time.Duration) *remote.Client {
	t.Helper()
	token, err := utils.JwtGenerate(account, "device-1", lifespan)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	c, err := remote.NewClient(f.srv.URL, token, 5*time.Second, config.NewLogger(""))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func (f *remoteFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func newContact() *models.Contact {
	return &models.Contact{ID: models.NewPendingID(), Name: "U Aung", Type: models.ContactKindSupplier, CreatedAt: time.Now().UTC()}
}

func TestApplyAssignsIdsAndReplaysOnce(t *testing.T) {
	f := newRemoteFixture(t)
	c := f.client(t, "acc-1", time.Hour)

	contact := newContact()
	a := &action.CreateRecord{Record: action.Wrap(contact)}
	first, err := c.Apply(f.ctx, "req-1", a)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(first) != 1 || first[0].Pending != contact.ID || !first[0].Confirmed.IsConfirmed() {
		t.Fatalf("unexpected assignments %+v", first)
	}

	// Same request id, same pending payload: a lost acknowledgement being retried.
	again, err := c.Apply(f.ctx, "req-1", &action.CreateRecord{Record: action.Wrap(contact)})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(again) != 1 || again[0] != first[0] {
		t.Fatalf("replay answered %+v, want %+v", again, first)
	}
	if n := f.count(t, &models.Contact{}); n != 1 {
		t.Fatalf("replay must not write again, contacts=%d", n)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].AccountId != "acc-1" {
		t.Fatalf("expected one published event, got %+v", f.publisher.events)
	}

	var stored models.Contact
	if err := f.db.Where("id = ?", first[0].Confirmed).Take(&stored).Error; err != nil {
		t.Fatalf("load contact: %v", err)
	}
	if stored.AccountId != "acc-1" {
		t.Fatalf("account not stamped: %q", stored.AccountId)
	}
}

func TestApplyLinkedStockKeepsLinksOnServer(t *testing.T) {
	f := newRemoteFixture(t)
	c := f.client(t, "acc-1", time.Hour)

	bank := &models.BankAccount{ID: models.NewPendingID(), Name: "KBZ"}
	as, err := c.Apply(f.ctx, "req-bank", &action.CreateRecord{Record: action.Wrap(bank)})
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}
	bankID := as[0].Confirmed

	stock := models.StockTransaction{
		ID: models.NewPendingID(), Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), ItemName: "rice",
		Type: models.StockTypePurchase, Weight: decimal.NewFromInt(10), PricePerKg: decimal.NewFromInt(5),
		PaymentMethod: models.PaymentMethodBank, BankId: bankID,
		ExpectedAmount: decimal.NewFromInt(50), ActualAmount: decimal.NewFromInt(50),
	}
	money := &models.BankTransaction{BankId: bankID}
	money.ID = models.NewPendingID()
	money.Type = models.MonetaryTypeWithdrawal
	money.ExpectedAmount = decimal.NewFromInt(50)
	money.ActualAmount = decimal.NewFromInt(50)
	money.LinkedStockTxId = stock.ID

	as, err = c.Apply(f.ctx, "req-stock", &action.CreateLinkedStockTransaction{Stock: stock, Money: action.WrapPtr(money)})
	if err != nil {
		t.Fatalf("linked stock: %v", err)
	}
	if len(as) != 2 {
		t.Fatalf("expected stock and bank assignments, got %+v", as)
	}
	byPending := map[models.RecordID]models.RecordID{as[0].Pending: as[0].Confirmed, as[1].Pending: as[1].Confirmed}

	var stored models.BankTransaction
	if err := f.db.Where("id = ?", byPending[money.ID]).Take(&stored).Error; err != nil {
		t.Fatalf("load bank tx: %v", err)
	}
	if stored.LinkedStockTxId != byPending[stock.ID] {
		t.Fatalf("server link %s, want %s", stored.LinkedStockTxId, byPending[stock.ID])
	}
}

func TestApplyRejectsUnknownReferences(t *testing.T) {
	f := newRemoteFixture(t)
	c := f.client(t, "acc-1", time.Hour)

	ledger := &models.LedgerEntry{
		ID: models.NewPendingID(), Type: models.LedgerTypePayable, Amount: decimal.NewFromInt(10),
		Status: models.LedgerStatusUnpaid, ContactId: models.NewPendingID(), Date: time.Now().UTC(),
	}
	_, err := c.Apply(f.ctx, "req-pending", &action.CreateRecord{Record: action.Wrap(ledger)})
	var rej *utils.RemoteRejectionError
	if !errors.As(err, &rej) || rej.Status != http.StatusUnprocessableEntity || rej.Code != "unresolved_reference" {
		t.Fatalf("expected unresolved_reference rejection, got %v", err)
	}

	ledger.ID = models.NewPendingID()
	ledger.ContactId = models.ConfirmedID(999)
	_, err = c.Apply(f.ctx, "req-missing", &action.CreateRecord{Record: action.Wrap(ledger)})
	if !errors.As(err, &rej) || rej.Code != "missing_reference" {
		t.Fatalf("expected missing_reference rejection, got %v", err)
	}
	if n := f.count(t, &models.LedgerEntry{}); n != 0 {
		t.Fatalf("rejected actions must not write, ledgers=%d", n)
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	f := newRemoteFixture(t)
	owner := f.client(t, "acc-1", time.Hour)
	other := f.client(t, "acc-2", time.Hour)

	contact := newContact()
	as, err := owner.Apply(f.ctx, "req-1", &action.CreateRecord{Record: action.Wrap(contact)})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	contact.ID = as[0].Confirmed
	contact.Name = "taken over"

	_, err = other.Apply(f.ctx, "req-1", &action.UpdateRecord{Record: action.Wrap(contact)})
	var rej *utils.RemoteRejectionError
	if !errors.As(err, &rej) || rej.Status != http.StatusNotFound {
		t.Fatalf("expected not found for another account, got %v", err)
	}
}

func TestExpiredTokenIsAuthExpired(t *testing.T) {
	f := newRemoteFixture(t)
	c := f.client(t, "acc-1", -time.Minute)

	_, err := c.Apply(f.ctx, "req-1", &action.CreateRecord{Record: action.Wrap(newContact())})
	if !utils.IsAuthExpired(err) {
		t.Fatalf("expected auth expired, got %v", err)
	}
	if err := c.Ping(f.ctx); err != nil {
		t.Fatalf("health check needs no token: %v", err)
	}
}

func TestSoftDeleteReplayIsNoop(t *testing.T) {
	f := newRemoteFixture(t)
	c := f.client(t, "acc-1", time.Hour)

	as, err := c.Apply(f.ctx, "req-1", &action.CreateRecord{Record: action.Wrap(newContact())})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	del := &action.SoftDeleteRecord{Entity: models.EntityContact, ID: as[0].Confirmed, DeletedAt: at}
	if _, err := c.Apply(f.ctx, "req-2", del); err != nil {
		t.Fatalf("delete: %v", err)
	}
	later := &action.SoftDeleteRecord{Entity: models.EntityContact, ID: as[0].Confirmed, DeletedAt: at.Add(time.Hour)}
	if _, err := c.Apply(f.ctx, "req-3", later); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	var stored models.Contact
	if err := f.db.Where("id = ?", as[0].Confirmed).Take(&stored).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.DeletedAt == nil || !stored.DeletedAt.Equal(at) {
		t.Fatalf("deleted_at = %v, want %v", stored.DeletedAt, at)
	}
}
