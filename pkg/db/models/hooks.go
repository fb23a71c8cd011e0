package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (o *ProcurementOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	return nil
}

func (i *ProcurementOrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (a *ArchivedOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (o *CustomerOrder) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	for i := range o.Items {
		o.Items[i].OrderID = o.ID
	}
	return nil
}

func (i *CustomerOrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (p *Payment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (d *SupplierDiscount) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (d *OutboxDLQ) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
