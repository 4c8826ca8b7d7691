package ports

import (
	"context"

	"github.com/egta-tools/egta-cli/internal/domain"
)

type SiteRepository interface {
	GetByID(ctx context.Context, id domain.SiteID) (domain.Site, error)
	List(ctx context.Context) ([]domain.Site, error)
	Save(ctx context.Context, site domain.Site) error
	Delete(ctx context.Context, id domain.SiteID) error
}
