package models

import (
	"time"

	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// SupportTicket is a customer request attached to an order.
type SupportTicket struct {
	ID        int64               `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64               `gorm:"column:order_id;not null;index"`
	Subject   enums.TicketSubject `gorm:"column:subject;type:text;not null"`
	Body      string              `gorm:"column:body"`
	Reply     string              `gorm:"column:reply"`
	Status    enums.TicketStatus  `gorm:"column:status;type:text;not null;default:'Pending';index"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
