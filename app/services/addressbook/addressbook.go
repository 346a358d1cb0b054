// Package addressbook manages a shopper's delivery addresses.
package addressbook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/app/models"
	"github.com/shashiranjanraj/kirana/app/repositories"
	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/store"
	"github.com/shashiranjanraj/kirana/pkg/validate"
)

// Input is the editable part of an address.
type Input struct {
	Name   string `json:"name"   validate:"required,max=255"`
	Phone  string `json:"phone"  validate:"nullable,digits=10"`
	Street string `json:"street" validate:"required,max=255"`
	City   string `json:"city"   validate:"required,max=100"`
	State  string `json:"state"  validate:"required,max=100"`
	Zip    string `json:"zip"    validate:"required,digits=6"`
}

func (in Input) validate() error {
	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return &errs.ValidationError{Errors: fields}
	}
	return nil
}

type Book struct {
	repo *repositories.Repository[models.Address]
}

func New(db store.Client) *Book {
	return &Book{repo: repositories.Addresses(db)}
}

// List returns the owner's addresses, default first, then oldest first.
func (b *Book) List(ctx context.Context, owner string) ([]models.Address, error) {
	rows, err := b.repo.Where(ctx, store.Eq("owner_id", owner))
	if err != nil {
		return nil, fmt.Errorf("addressbook: list: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].IsDefault != rows[j].IsDefault {
			return rows[i].IsDefault
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	return rows, nil
}

// Get returns a StaleReferenceError when the address is gone or belongs
// to someone else.
func (b *Book) Get(ctx context.Context, owner, id string) (models.Address, error) {
	a, err := b.repo.First(ctx, store.Eq("id", id).Eq("owner_id", owner))
	if errors.Is(err, store.ErrNotFound) {
		return models.Address{}, errs.Stale("address", id)
	}
	if err != nil {
		return models.Address{}, fmt.Errorf("addressbook: get: %w", err)
	}
	return a, nil
}

// Create stores a new address. An owner's first address becomes default.
func (b *Book) Create(ctx context.Context, owner string, in Input) (models.Address, error) {
	if err := in.validate(); err != nil {
		return models.Address{}, err
	}

	existing, err := b.repo.Where(ctx, store.Eq("owner_id", owner).Take(1))
	if err != nil {
		return models.Address{}, fmt.Errorf("addressbook: count: %w", err)
	}

	now := time.Now().UTC()
	a := models.Address{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Name:      in.Name,
		Phone:     in.Phone,
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		Zip:       in.Zip,
		IsDefault: len(existing) == 0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.repo.Create(ctx, &a); err != nil {
		return models.Address{}, errs.RemoteWrite("create address", err)
	}
	return a, nil
}

func (b *Book) Update(ctx context.Context, owner, id string, in Input) (models.Address, error) {
	if err := in.validate(); err != nil {
		return models.Address{}, err
	}
	if _, err := b.Get(ctx, owner, id); err != nil {
		return models.Address{}, err
	}

	err := b.repo.Update(ctx, id, map[string]any{
		"name":       in.Name,
		"phone":      in.Phone,
		"street":     in.Street,
		"city":       in.City,
		"state":      in.State,
		"zip":        in.Zip,
		"updated_at": time.Now().UTC(),
	})
	if errors.Is(err, store.ErrNotFound) {
		return models.Address{}, errs.Stale("address", id)
	}
	if err != nil {
		return models.Address{}, errs.RemoteWrite("update address", err)
	}
	return b.Get(ctx, owner, id)
}

// Delete removes an address. Deleting the default leaves the owner with
// no default until they pick one.
func (b *Book) Delete(ctx context.Context, owner, id string) error {
	n, err := b.repo.DeleteWhere(ctx, store.Eq("id", id).Eq("owner_id", owner))
	if err != nil {
		return errs.RemoteWrite("delete address", err)
	}
	if n == 0 {
		return errs.Stale("address", id)
	}
	return nil
}

// SetDefault clears every default the owner has, then sets one.
func (b *Book) SetDefault(ctx context.Context, owner, id string) error {
	if _, err := b.Get(ctx, owner, id); err != nil {
		return err
	}

	if _, err := b.repo.UpdateWhere(ctx, store.Eq("owner_id", owner).Eq("is_default", true),
		map[string]any{"is_default": false}); err != nil {
		return errs.RemoteWrite("clear default address", err)
	}

	n, err := b.repo.UpdateWhere(ctx, store.Eq("id", id).Eq("owner_id", owner),
		map[string]any{"is_default": true})
	if err != nil {
		return errs.RemoteWrite("set default address", err)
	}
	if n == 0 {
		logger.WithCtx(ctx).Warn("addressbook: address vanished while setting default", "owner_id", owner, "address_id", id)
		return errs.Stale("address", id)
	}
	return nil
}

// Snapshot resolves an address for checkout and copies it.
func (b *Book) Snapshot(ctx context.Context, owner, id string) (models.AddressSnapshot, error) {
	a, err := b.Get(ctx, owner, id)
	if err != nil {
		return models.AddressSnapshot{}, err
	}
	return a.Snapshot(), nil
}
