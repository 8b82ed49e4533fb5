package usecase

import (
	"context"
	"strings"

	"github.com/satriahrh/synapse/domain"
)

// LibraryService manages saved paper collections.
type LibraryService struct {
	collections domain.CollectionStore
}

func NewLibraryService(collections domain.CollectionStore) *LibraryService {
	return &LibraryService{collections: collections}
}

func (s *LibraryService) Create(ctx context.Context, userID int64, name, description string) (*domain.Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.InvalidError("name is required")
	}
	c := &domain.Collection{UserID: userID, Name: name, Description: description, Items: []domain.CollectionItem{}}
	if err := s.collections.CreateCollection(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *LibraryService) List(ctx context.Context, userID int64) ([]domain.Collection, error) {
	return s.collections.ListCollections(ctx, userID)
}

func (s *LibraryService) Get(ctx context.Context, userID, id int64) (*domain.Collection, error) {
	c, err := s.collections.GetCollection(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, domain.NotFoundError("Collection")
	}
	return c, nil
}

func (s *LibraryService) Delete(ctx context.Context, userID, id int64) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.collections.DeleteCollection(ctx, userID, id)
}

func (s *LibraryService) AddItem(ctx context.Context, userID, collectionID int64, item domain.CollectionItem) (*domain.CollectionItem, error) {
	if strings.TrimSpace(item.PaperID) == "" {
		return nil, domain.InvalidError("paper_id is required")
	}
	if _, err := s.Get(ctx, userID, collectionID); err != nil {
		return nil, err
	}
	item.CollectionID = collectionID
	if err := s.collections.AddItem(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *LibraryService) RemoveItem(ctx context.Context, userID, collectionID, itemID int64) error {
	if _, err := s.Get(ctx, userID, collectionID); err != nil {
		return err
	}
	return s.collections.RemoveItem(ctx, collectionID, itemID)
}
