package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/packfinderz-inventory/pkg/db/models"
	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/pagination"
)

// HistoryPage is one page of movements, oldest first. NextCursor is empty on
// the last page.
type HistoryPage struct {
	Rows       []models.InventoryTransaction
	NextCursor string
}

// HistoryPage pages through the movements of one product at one location.
func (s *Service) HistoryPage(ctx context.Context, locationID, productID uuid.UUID, params pagination.Params) (*HistoryPage, error) {
	after, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListTransactionsAfter(ctx, locationID, productID, after, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list inventory transactions")
	}

	page := &HistoryPage{Rows: rows}
	if len(rows) > limit {
		page.Rows = rows[:limit]
		last := page.Rows[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
