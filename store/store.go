package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Store is the local mirror: one table per entity plus queue and bookkeeping rows.
// It holds data only; validation lives in the workflow layer.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// Scope narrows a query. Scopes compose in the order given.
type Scope func(*gorm.DB) *gorm.DB

func New(db *gorm.DB, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Store{db: db, logger: logger}
}

// Open opens (or creates) the SQLite mirror at path and migrates it.
func Open(path string, logger *logrus.Logger) (*Store, error) {
	db, err := config.OpenLocal(path)
	if err != nil {
		return nil, err
	}
	s := New(db, logger)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(models.LocalModels()...); err != nil {
		return fmt.Errorf("migrate local store: %w", err)
	}
	return nil
}

// DB exposes the underlying connection (or transaction) for callers that need raw gorm.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Logger() *logrus.Logger { return s.logger }

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Transaction runs fn against a store bound to one database transaction.
// Any error returned by fn rolls every table back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, logger: s.logger})
	})
}

func (s *Store) Get(ctx context.Context, kind models.EntityKind, id models.RecordID) (models.Record, error) {
	def, err := models.LookupEntity(kind)
	if err != nil {
		return nil, err
	}
	rec := def.New()
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %s: %w", kind, id, utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return rec, nil
}

// Put inserts the record or overwrites the stored row with the same id.
func (s *Store) Put(ctx context.Context, rec models.Record) error {
	if rec.GetID().IsZero() {
		return fmt.Errorf("put %s: record has no id", rec.Kind())
	}
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return fmt.Errorf("put %s %s: %w", rec.Kind(), rec.GetID(), err)
	}
	return nil
}

// Delete removes the row for good. Soft deletion is a Put with deleted_at set.
func (s *Store) Delete(ctx context.Context, kind models.EntityKind, id models.RecordID) error {
	def, err := models.LookupEntity(kind)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(def.New())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, utils.ErrorRecordNotFound)
	}
	return nil
}

// Query returns every record of kind matching the scopes.
func (s *Store) Query(ctx context.Context, kind models.EntityKind, scopes ...Scope) ([]models.Record, error) {
	def, err := models.LookupEntity(kind)
	if err != nil {
		return nil, err
	}
	elem := reflect.TypeOf(def.New()).Elem()
	slice := reflect.New(reflect.SliceOf(elem))
	if err := s.scoped(ctx, scopes).Find(slice.Interface()).Error; err != nil {
		return nil, err
	}
	rows := slice.Elem()
	out := make([]models.Record, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		out = append(out, rows.Index(i).Addr().Interface().(models.Record))
	}
	return out, nil
}

func (s *Store) scoped(ctx context.Context, scopes []Scope) *gorm.DB {
	q := s.db.WithContext(ctx)
	for _, sc := range scopes {
		q = sc(q)
	}
	return q
}

// Get loads one record of a concrete type.
func Get[T any, PT interface {
	*T
	models.Record
}](ctx context.Context, s *Store, id models.RecordID) (*T, error) {
	rec := PT(new(T))
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s %s: %w", rec.Kind(), id, utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return (*T)(rec), nil
}

// List loads every record of a concrete type matching the scopes.
func List[T any, PT interface {
	*T
	models.Record
}](ctx context.Context, s *Store, scopes ...Scope) ([]T, error) {
	var rows []T
	if err := s.scoped(ctx, scopes).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PutAll writes records in order.
func PutAll[T any, PT interface {
	*T
	models.Record
}](ctx context.Context, s *Store, rows []T) error {
	for i := range rows {
		if err := s.Put(ctx, PT(&rows[i])); err != nil {
			return err
		}
	}
	return nil
}
