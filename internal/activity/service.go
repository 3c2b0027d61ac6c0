package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bizdirect/bizdirect-backend/pkg/db/models"
	dbtypes "github.com/bizdirect/bizdirect-backend/pkg/db/types"
	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
	"github.com/bizdirect/bizdirect-backend/pkg/pagination"
)

// Service records and lists management activity.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, filter Filter) (*Page, error)
}

type service struct {
	repo Repository
}

// NewService builds the activity service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &service{repo: repo}, nil
}

// Record appends one log row, joining the caller's transaction when provided
// so the entry commits or rolls back with the mutation it describes.
func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if entry.BranchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	if entry.ActorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}
	if entry.EntityID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}

	row := &models.ManagerActivityLog{
		BranchID:    entry.BranchID,
		ManagerID:   entry.ManagerID,
		ActorID:     entry.ActorID,
		Action:      entry.Action,
		Description: entry.Description,
		EntityKind:  entry.EntityKind,
		EntityID:    entry.EntityID,
		OldValues:   dbtypes.JSONMap(entry.OldValues),
		NewValues:   dbtypes.JSONMap(entry.NewValues),
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Insert(ctx, row); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append activity log")
	}
	return nil
}

func (s *service) List(ctx context.Context, filter Filter) (*Page, error) {
	if filter.BranchID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity log")
	}

	limit := pagination.NormalizeLimit(filter.Page.Limit)
	page := &Page{Items: make([]LogDTO, 0, len(rows))}
	for i, row := range rows {
		if i == limit {
			last := rows[limit-1]
			page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
				CreatedAt: last.CreatedAt,
				ID:        last.ID,
			})
			break
		}
		page.Items = append(page.Items, logFromModel(row))
	}
	return page, nil
}

func logFromModel(row models.ManagerActivityLog) LogDTO {
	return LogDTO{
		ID:          row.ID,
		BranchID:    row.BranchID,
		ManagerID:   row.ManagerID,
		ActorID:     row.ActorID,
		Action:      row.Action,
		Description: row.Description,
		EntityKind:  row.EntityKind,
		EntityID:    row.EntityID,
		OldValues:   map[string]any(row.OldValues),
		NewValues:   map[string]any(row.NewValues),
		IPAddress:   row.IPAddress,
		UserAgent:   row.UserAgent,
		CreatedAt:   row.CreatedAt,
	}
}
