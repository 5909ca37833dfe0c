package support

import (
	"context"

	"gorm.io/gorm"

	"github.com/zawlinn/boostline-backend/pkg/db/models"
	"github.com/zawlinn/boostline-backend/pkg/enums"
)

// Repository defines persistence operations for support tickets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindUnhandled returns Pending tickets that have not been escalated or
	// answered yet.
	FindUnhandled(ctx context.Context) ([]models.SupportTicket, error)
	SaveReply(ctx context.Context, ticketID int64, reply string, status enums.TicketStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a support repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindUnhandled(ctx context.Context) ([]models.SupportTicket, error) {
	var tickets []models.SupportTicket
	// The website inserts tickets with a NULL reply; the escalation marker
	// written by SaveReply is what takes a ticket out of this set.
	err := r.db.WithContext(ctx).
		Where("status = ? AND (reply = '' OR reply IS NULL)", enums.TicketStatusPending).
		Order("id ASC").
		Find(&tickets).Error
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repository) SaveReply(ctx context.Context, ticketID int64, reply string, status enums.TicketStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.SupportTicket{}).
		Where("id = ?", ticketID).
		Updates(map[string]any{"reply": reply, "status": status}).Error
}
