package remotestore

import (
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"gorm.io/gorm"
)

// nextID hands out the next server identifier for kind. The increment runs inside the apply
// transaction, so the row lock it takes serializes concurrent writers.
func nextID(tx *gorm.DB, kind models.EntityKind) (models.RecordID, error) {
	res := tx.Model(&models.IdSequence{}).Where("entity = ?", string(kind)).
		UpdateColumn("next_id", gorm.Expr("next_id + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("next id %s: %w", kind, res.Error)
	}
	if res.RowsAffected == 0 {
		if err := tx.Create(&models.IdSequence{Entity: string(kind), NextId: 1}).Error; err != nil {
			return "", fmt.Errorf("seed id sequence %s: %w", kind, err)
		}
		return models.ConfirmedID(1), nil
	}
	var seq models.IdSequence
	if err := tx.Where("entity = ?", string(kind)).Take(&seq).Error; err != nil {
		return "", err
	}
	return models.ConfirmedID(seq.NextId), nil
}
