package branches

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/bizdirect/bizdirect-backend/pkg/errors"
)

// Service answers branch lookups and tenancy questions for the registry.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*BranchDTO, error)
	ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]BranchDTO, error)
	ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]BusinessSummary, error)
	OwnedBy(ctx context.Context, branchID, userID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService builds the branches service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("branches repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*BranchDTO, error) {
	branch, err := s.repo.FindBranch(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load branch")
	}
	return FromModel(branch), nil
}

func (s *service) ListByBusiness(ctx context.Context, businessID uuid.UUID) ([]BranchDTO, error) {
	rows, err := s.repo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branches")
	}
	out := make([]BranchDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) ListBusinessesByOwner(ctx context.Context, ownerID uuid.UUID) ([]BusinessSummary, error) {
	rows, err := s.repo.ListBusinessesByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list businesses")
	}
	out := make([]BusinessSummary, 0, len(rows))
	for _, b := range rows {
		out = append(out, BusinessSummary{ID: b.ID, Name: b.Name, LogoURL: b.LogoURL})
	}
	return out, nil
}

// OwnedBy reports whether the branch belongs to a business the user owns.
// An unknown branch answers false with a not-found error so callers can
// distinguish a denial from a dangling id.
func (s *service) OwnedBy(ctx context.Context, branchID, userID uuid.UUID) (bool, error) {
	ownerID, err := s.repo.BranchOwner(ctx, branchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve branch owner")
	}
	return ownerID == userID, nil
}
