package repositories

import (
	"context"
	"strings"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/pkg/store"
)

// UserRepository handles store operations for User.
type UserRepository struct {
	*Repository[models.User]
}

func NewUserRepository(db store.Client) *UserRepository {
	return &UserRepository{Repository: New[models.User](db, models.TableUsers)}
}

// FindByEmail looks a user up by their email address, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.First(ctx, store.Eq("email", strings.ToLower(strings.TrimSpace(email))))
}
