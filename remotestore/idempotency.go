package remotestore

import (
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// staleAfter is how long a STARTED key blocks a replay before it is taken over.
const staleAfter = 5 * time.Minute

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// SQLite reports constraint violations only in the message.
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// BeginIdempotency inserts STARTED for (account, request). When the request already SUCCEEDED it
// returns the stored key so the caller can answer with the original response.
func BeginIdempotency(tx *gorm.DB, accountId, requestId, action string) (*models.IdempotencyKey, error) {
	key := models.IdempotencyKey{
		AccountId: accountId,
		RequestId: requestId,
		Action:    action,
		Status:    models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&key).Error; err == nil {
		return nil, nil
	} else if !isDuplicateKeyErr(err) {
		return nil, err
	}

	existing, err := findIdempotencyKey(tx, accountId, requestId)
	if err != nil {
		return nil, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return existing, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < staleAfter {
			return nil, ErrIdempotencyInProgress
		}
	}
	return nil, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func findIdempotencyKey(tx *gorm.DB, accountId, requestId string) (*models.IdempotencyKey, error) {
	var existing models.IdempotencyKey
	if err := tx.Where("account_id = ? AND request_id = ?", accountId, requestId).First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func MarkIdempotencySucceeded(tx *gorm.DB, accountId, requestId, response string) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("account_id = ? AND request_id = ?", accountId, requestId).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "response": response, "last_error": nil}).Error
}

// MarkIdempotencyFailed runs after the apply transaction rolled back, so the key may not exist yet.
func MarkIdempotencyFailed(db *gorm.DB, accountId, requestId, action string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	key := models.IdempotencyKey{AccountId: accountId, RequestId: requestId, Action: action, Status: models.IdempotencyStatusFailed, LastError: &msg}
	if cErr := db.Create(&key).Error; cErr == nil || !isDuplicateKeyErr(cErr) {
		return cErr
	}
	return db.Model(&models.IdempotencyKey{}).
		Where("account_id = ? AND request_id = ? AND status <> ?", accountId, requestId, models.IdempotencyStatusSucceeded).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}
