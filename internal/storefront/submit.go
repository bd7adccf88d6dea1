package storefront

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/masad40/next-sc/internal/catalog"
)

// ItemCreator persists a validated item.
type ItemCreator interface {
	CreateItem(ctx context.Context, in NewItem) (catalog.Item, error)
}

// Submitter runs the add-item flow: validate, upload the image, create the
// item. A failing step stops the flow, so an invalid form never reaches the
// network and a failed upload never reaches the catalog.
type Submitter struct {
	Images  ImageUploader
	Catalog ItemCreator
	Log     *zap.Logger
}

func (s *Submitter) Submit(ctx context.Context, form NewItemForm) (catalog.Item, error) {
	in, err := form.Validate()
	if err != nil {
		return catalog.Item{}, err
	}

	url, err := s.Images.Upload(ctx, form.Image)
	if err != nil {
		s.logger().Warn("image upload failed", zap.Error(err))
		return catalog.Item{}, err
	}
	in.Image = url

	it, err := s.Catalog.CreateItem(ctx, in)
	if err != nil {
		s.logger().Error("create item failed", zap.Error(err), zap.String("image", url))
		return catalog.Item{}, fmt.Errorf("create item: %w", err)
	}

	s.logger().Info("item submitted", zap.Int64("id", it.ID), zap.String("name", it.Name))
	return it, nil
}

func (s *Submitter) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
