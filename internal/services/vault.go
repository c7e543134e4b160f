package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/cryptox"
	"github.com/dmitrijs2005/blockpass/internal/logging"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/dmitrijs2005/blockpass/internal/repositories/credentials"
)

// ItemSummary is the listing view of a vault item; it never carries the
// secret.
type ItemSummary struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// ItemDetail is a revealed vault item.
type ItemDetail struct {
	ID        string
	Title     string
	Secret    string
	CreatedAt time.Time
}

func summarize(it *models.VaultItem) *ItemSummary {
	return &ItemSummary{ID: it.ID, Title: it.Title, CreatedAt: it.CreatedAt}
}

// VaultService encrypts, stores and reveals vault items. The vault key is
// derived from the master password on every call, lives only inside
// cryptox.WithKey and is never held across store calls.
type VaultService struct {
	repo credentials.Repository
	log  logging.Logger
}

func NewVaultService(repo credentials.Repository, log logging.Logger) *VaultService {
	return &VaultService{repo: repo, log: log}
}

// seal encrypts secret under the user's key, binding title as associated data.
func seal(user *models.User, masterPassword, title, secret string) ([]byte, error) {
	var blob []byte
	err := cryptox.WithKey(masterPassword, user.KDFSalt, user.KDFParams, func(key *cryptox.VaultKey) error {
		var err error
		blob, err = cryptox.EncryptSecret(secret, key, []byte(title))
		return err
	})
	return blob, err
}

func unseal(user *models.User, masterPassword string, it *models.VaultItem) (string, error) {
	var secret string
	err := cryptox.WithKey(masterPassword, user.KDFSalt, user.KDFParams, func(key *cryptox.VaultKey) error {
		var err error
		secret, err = cryptox.DecryptSecret(it.CiphertextBlob, key, []byte(it.Title))
		return err
	})
	return secret, err
}

func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is empty", common.ErrorInvalidInput)
	}
	return nil
}

// Create encrypts secret and stores it as a new item titled title.
//
// The master password is not checked here: a different password simply
// produces an item only that password can reveal.
func (s *VaultService) Create(ctx context.Context, user *models.User, title, secret, masterPassword string) (*ItemSummary, error) {
	if user == nil {
		return nil, common.ErrorUnauthenticated
	}
	if err := checkTitle(title); err != nil {
		return nil, err
	}

	blob, err := seal(user, masterPassword, title, secret)
	if err != nil {
		return nil, err
	}

	it, err := s.repo.CreateItem(ctx, user.ID, title, blob)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, fmt.Errorf("error storing item: %w", err)
	}

	s.log.Info(ctx, "vault item created", "user_id", user.ID, "item_id", it.ID)
	return summarize(it), nil
}

// List returns item metadata, oldest first.
func (s *VaultService) List(ctx context.Context, user *models.User) ([]*ItemSummary, error) {
	if user == nil {
		return nil, common.ErrorUnauthenticated
	}

	items, err := s.repo.ListItems(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing items: %w", err)
	}

	result := make([]*ItemSummary, 0, len(items))
	for _, it := range items {
		result = append(result, summarize(it))
	}
	return result, nil
}

func (s *VaultService) getItem(ctx context.Context, user *models.User, itemID string) (*models.VaultItem, error) {
	it, err := s.repo.GetItem(ctx, user.ID, itemID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading item: %w", err)
	}
	return it, nil
}

// Reveal decrypts one item. A wrong master password and a damaged blob both
// yield common.ErrorAuthenticationFailure.
func (s *VaultService) Reveal(ctx context.Context, user *models.User, itemID, masterPassword string) (*ItemDetail, error) {
	if user == nil {
		return nil, common.ErrorUnauthenticated
	}

	it, err := s.getItem(ctx, user, itemID)
	if err != nil {
		return nil, err
	}

	secret, err := unseal(user, masterPassword, it)
	if err != nil {
		return nil, err
	}

	return &ItemDetail{ID: it.ID, Title: it.Title, Secret: secret, CreatedAt: it.CreatedAt}, nil
}

// Edit replaces an item with a new one carrying title and secret. The old
// item must decrypt under masterPassword first. The new item is stored before
// the old one is deleted, so a failure leaves at least the old item intact.
func (s *VaultService) Edit(ctx context.Context, user *models.User, itemID, title, secret, masterPassword string) (*ItemSummary, error) {
	if user == nil {
		return nil, common.ErrorUnauthenticated
	}
	if err := checkTitle(title); err != nil {
		return nil, err
	}

	old, err := s.getItem(ctx, user, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := unseal(user, masterPassword, old); err != nil {
		return nil, err
	}

	blob, err := seal(user, masterPassword, title, secret)
	if err != nil {
		return nil, err
	}

	it, err := s.repo.CreateItem(ctx, user.ID, title, blob)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthenticated
		}
		return nil, fmt.Errorf("error storing item: %w", err)
	}

	if err := s.repo.DeleteItem(ctx, user.ID, old.ID); err != nil {
		s.log.Error(ctx, "old vault item not deleted after edit", "user_id", user.ID, "item_id", old.ID, "error", err)
		return nil, fmt.Errorf("error deleting replaced item: %w", err)
	}

	s.log.Info(ctx, "vault item edited", "user_id", user.ID, "item_id", it.ID, "replaced_id", old.ID)
	return summarize(it), nil
}

// Delete removes an item. Deleting an absent item is not an error.
func (s *VaultService) Delete(ctx context.Context, user *models.User, itemID string) error {
	if user == nil {
		return common.ErrorUnauthenticated
	}
	if err := s.repo.DeleteItem(ctx, user.ID, itemID); err != nil {
		return fmt.Errorf("error deleting item: %w", err)
	}

	s.log.Info(ctx, "vault item deleted", "user_id", user.ID, "item_id", itemID)
	return nil
}
