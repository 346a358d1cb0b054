// Package savedcards keeps display metadata for a shopper's cards so the
// checkout page can offer them. Only brand, last four digits, expiry and a
// label are kept, sealed with AES-GCM under the owner's key.
package savedcards

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/kirana/app/services/errs"
	"github.com/shashiranjanraj/kirana/pkg/crypt"
	"github.com/shashiranjanraj/kirana/pkg/kv"
	"github.com/shashiranjanraj/kirana/pkg/logger"
	"github.com/shashiranjanraj/kirana/pkg/validate"
)

// MaxCards bounds the list per owner.
const MaxCards = 10

type Card struct {
	ID      string    `json:"id"`
	Brand   string    `json:"brand"`
	Last4   string    `json:"last4"`
	Expiry  string    `json:"expiry"`
	Label   string    `json:"label,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

type Input struct {
	Brand  string `json:"brand"  validate:"required,in=visa|mastercard|rupay|amex"`
	Last4  string `json:"last4"  validate:"required,digits=4"`
	Expiry string `json:"expiry" validate:"required"`
	Label  string `json:"label"  validate:"max=40"`
}

type Service struct {
	kv     kv.Store
	cipher *crypt.Cipher
	now    func() time.Time
}

func New(store kv.Store, cipher *crypt.Cipher) *Service {
	return &Service{kv: store, cipher: cipher, now: time.Now}
}

func Key(owner string) string { return "cards:" + owner }

// parseExpiry accepts MM/YY and reports whether the card is still usable
// at now.
func parseExpiry(s string, now time.Time) (bool, error) {
	mm, yy, ok := strings.Cut(s, "/")
	if !ok || len(mm) != 2 || len(yy) != 2 {
		return false, errors.New("format")
	}
	month, err := strconv.Atoi(mm)
	if err != nil || month < 1 || month > 12 {
		return false, errors.New("month")
	}
	year, err := strconv.Atoi(yy)
	if err != nil {
		return false, errors.New("year")
	}
	// valid through the last day of the month
	end := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return now.Before(end), nil
}

func (s *Service) List(ctx context.Context, owner string) ([]Card, error) {
	raw, err := s.kv.Get(ctx, Key(owner))
	if errors.Is(err, kv.ErrMissing) {
		return []Card{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cards []Card
	if err := s.cipher.DecryptJSON(raw, &cards); err != nil {
		// A rotated key leaves nothing readable; start over.
		logger.WithCtx(ctx).Warn("savedcards: stored list unreadable, discarding", "owner", owner, "error", err)
		return []Card{}, nil
	}
	return cards, nil
}

// Add saves a card, replacing an existing entry with the same brand, last
// four digits and expiry.
func (s *Service) Add(ctx context.Context, owner string, in Input) (Card, error) {
	fields := validate.Struct(in)
	if _, exists := fields["expiry"]; !exists {
		live, err := parseExpiry(in.Expiry, s.now())
		switch {
		case err != nil:
			fields["expiry"] = "The expiry must be in MM/YY form."
		case !live:
			fields["expiry"] = "The card has expired."
		}
	}
	if validate.HasErrors(fields) {
		return Card{}, &errs.ValidationError{Errors: fields}
	}

	cards, err := s.List(ctx, owner)
	if err != nil {
		return Card{}, err
	}

	card := Card{
		ID:      uuid.NewString(),
		Brand:   in.Brand,
		Last4:   in.Last4,
		Expiry:  in.Expiry,
		Label:   in.Label,
		SavedAt: s.now().UTC(),
	}
	kept := cards[:0]
	for _, c := range cards {
		if c.Brand == card.Brand && c.Last4 == card.Last4 && c.Expiry == card.Expiry {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) >= MaxCards {
		return Card{}, errs.Conflict(fmt.Sprintf("at most %d cards can be saved", MaxCards))
	}

	if err := s.save(ctx, owner, append(kept, card)); err != nil {
		return Card{}, err
	}
	return card, nil
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	cards, err := s.List(ctx, owner)
	if err != nil {
		return err
	}
	kept := cards[:0]
	for _, c := range cards {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(cards) {
		return errs.Stale("card", id)
	}
	return s.save(ctx, owner, kept)
}

func (s *Service) save(ctx context.Context, owner string, cards []Card) error {
	if len(cards) == 0 {
		if err := s.kv.Delete(ctx, Key(owner)); err != nil {
			return errs.RemoteWrite("save cards", err)
		}
		return nil
	}
	sealed, err := s.cipher.EncryptJSON(cards)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, Key(owner), sealed); err != nil {
		return errs.RemoteWrite("save cards", err)
	}
	return nil
}
