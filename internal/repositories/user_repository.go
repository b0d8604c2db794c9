package repositories

import (
	"context"

	"github.com/campusassess/assessment-service/internal/models"
)

// UserRepository is the read-only window onto the identity provider. The
// assessment service never writes user data.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	ExistsByID(ctx context.Context, id string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)
}
