// Package remotestore is the authoritative side of the sync protocol: it applies actions per
// account, assigns server identifiers and answers replays from its idempotency keys.
package remotestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Publisher fans applied actions out to other consumers. *config.PubSubPublisher implements it.
type Publisher interface {
	Publish(ctx context.Context, ev config.LedgerEvent) (string, error)
}

type Server struct {
	db        *gorm.DB
	logger    *logrus.Logger
	locker    *redislock.Client
	redis     *redis.Client
	publisher Publisher
	now       func() time.Time
}

type Option func(*Server)

func WithLocker(l *redislock.Client) Option { return func(s *Server) { s.locker = l } }

// WithRedis enables token revocation and, when configured, rate limiting.
func WithRedis(c *redis.Client) Option { return func(s *Server) { s.redis = c } }

func WithPublisher(p Publisher) Option { return func(s *Server) { s.publisher = p } }

func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

func New(db *gorm.DB, logger *logrus.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = config.GetLogger()
	}
	s := &Server{db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Migrate() error {
	if err := s.db.AutoMigrate(models.RemoteModels()...); err != nil {
		return fmt.Errorf("migrate remote store: %w", err)
	}
	return nil
}

// Apply runs one action for accountID. A request id seen before returns the stored response
// with Replayed set and changes nothing.
func (s *Server) Apply(ctx context.Context, accountID, requestID string, tag action.Tag, payload json.RawMessage) (*action.Response, error) {
	if accountID == "" {
		return nil, &utils.AuthExpiredError{Status: http.StatusUnauthorized}
	}
	if requestID == "" {
		return nil, reject(http.StatusBadRequest, "missing_request_id", "request_id is required")
	}
	a, err := action.Decode(tag, payload)
	if err != nil {
		return nil, reject(http.StatusBadRequest, "bad_payload", "%v", err)
	}
	ctx = utils.SetAccountIdInContext(ctx, accountID)

	release := s.lockAccount(ctx, accountID)
	defer release()

	var resp *action.Response
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prior, err := BeginIdempotency(tx, accountID, requestID, string(tag))
		if err != nil {
			return err
		}
		if prior != nil {
			replay, err := utils.DecodeJSON[action.Response]([]byte(prior.Response))
			if err != nil {
				return fmt.Errorf("stored response for %s: %w", requestID, err)
			}
			replay.Replayed = true
			resp = &replay
			return nil
		}

		assignments, err := assign(tx, a)
		if err != nil {
			return err
		}
		ap := &applier{ctx: ctx, tx: store.New(tx, s.logger), account: accountID}
		if err := ap.apply(a); err != nil {
			return err
		}

		resp = &action.Response{RequestId: requestID, Assignments: assignments}
		body, err := utils.MarshalToJSON(resp)
		if err != nil {
			return err
		}
		return MarkIdempotencySucceeded(tx, accountID, requestID, body)
	})
	if err != nil {
		if !errors.Is(err, ErrIdempotencyInProgress) {
			if mErr := MarkIdempotencyFailed(s.db.WithContext(ctx), accountID, requestID, string(tag), err); mErr != nil {
				config.LogError(s.logger, "server.go", "Apply", "mark idempotency failed", requestID, mErr)
			}
		}
		return nil, err
	}

	fields := logrus.Fields{
		"field":       "RemoteStore",
		"account_id":  accountID,
		"request_id":  requestID,
		"action":      tag,
		"assignments": len(resp.Assignments),
		"replayed":    resp.Replayed,
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		fields["correlation_id"] = cid
	}
	if device, ok := utils.GetDeviceIdFromContext(ctx); ok {
		fields["device_id"] = device
	}
	s.logger.WithFields(fields).Info("action applied")

	if !resp.Replayed {
		s.publish(ctx, accountID, tag, resp)
	}
	return resp, nil
}

// lockAccount serializes writers of one account across instances. Best effort: without redis,
// or when the lock is busy, the database transaction still keeps each action atomic.
func (s *Server) lockAccount(ctx context.Context, accountID string) func() {
	if s.locker == nil {
		return func() {}
	}
	lock, err := s.locker.Obtain(ctx, "lock:account:"+accountID, 30*time.Second, nil)
	if err != nil {
		msg := "error obtaining redis lock; proceeding without redis lock: " + err.Error()
		if errors.Is(err, redislock.ErrNotObtained) {
			msg = "could not obtain redis lock; proceeding without redis lock"
		}
		s.logger.WithFields(logrus.Fields{"field": "RemoteStore", "account_id": accountID}).Warn(msg)
		return func() {}
	}
	return func() {
		if err := lock.Release(ctx); err != nil {
			s.logger.WithFields(logrus.Fields{"field": "RemoteStore", "account_id": accountID}).Warn("failed to release redis lock: " + err.Error())
		}
	}
}

// publish runs after commit; a lost event never undoes the applied action.
func (s *Server) publish(ctx context.Context, accountID string, tag action.Tag, resp *action.Response) {
	if s.publisher == nil {
		return
	}
	assignments, err := json.Marshal(resp.Assignments)
	if err != nil {
		config.LogError(s.logger, "server.go", "publish", "marshal assignments", resp.RequestId, err)
		return
	}
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	ev := config.LedgerEvent{
		AccountId:     accountID,
		RequestId:     resp.RequestId,
		Action:        string(tag),
		AppliedAt:     s.now().UTC(),
		Assignments:   assignments,
		CorrelationId: cid,
	}
	if _, err := s.publisher.Publish(ctx, ev); err != nil {
		config.LogError(s.logger, "server.go", "publish", "publish ledger event", ev, err)
	}
}
