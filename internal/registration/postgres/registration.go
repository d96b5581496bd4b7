package postgres

import (
	"fmt"

	"gorm.io/gorm"

	datamodel "github.com/my-other-app/moa-backend/internal/core/datamodel/registration"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(id int64) (*datamodel.EventRegistration, error) {
	var reg datamodel.EventRegistration
	if err := r.db.First(&reg, id).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) GetByEventAndID(eventID, id int64) (*datamodel.EventRegistration, error) {
	var reg datamodel.EventRegistration
	if err := r.db.Where("event_id = ? AND id = ?", eventID, id).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) GetByReceipt(receipt string) (*datamodel.EventRegistration, error) {
	var reg datamodel.EventRegistration
	if err := r.db.Where("payment_receipt = ?", receipt).First(&reg).Error; err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *Repository) Update(reg *datamodel.EventRegistration) error {
	if err := r.db.Save(reg).Error; err != nil {
		return fmt.Errorf("update event registration: %w", err)
	}
	return nil
}
