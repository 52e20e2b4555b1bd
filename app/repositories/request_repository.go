package repositories

import (
	"context"
	"time"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
)

// RequestRepository is the seller inbox (Requests collection).
type RequestRepository struct {
	col docstore.Collection[models.Request]
}

func NewRequestRepository(store docstore.Store) *RequestRepository {
	return &RequestRepository{col: docstore.NewCollection[models.Request](store, models.RequestsCollection)}
}

func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	_, err := r.col.Insert(ctx, req)
	return err
}

func (r *RequestRepository) Get(ctx context.Context, id string) (models.Request, error) {
	return r.col.Get(ctx, id)
}

func (r *RequestRepository) BySeller(ctx context.Context, email string) ([]models.Request, error) {
	return r.col.Find(ctx, docstore.Filter{"sellerEmail": email})
}

// PendingForProduct lists open requests that reference productID.
func (r *RequestRepository) PendingForProduct(ctx context.Context, productID string) ([]models.Request, error) {
	return r.col.Find(ctx, docstore.Filter{"productId": productID, "status": models.StatusPending})
}

func (r *RequestRepository) SetStatus(ctx context.Context, id, status string) error {
	return r.col.Update(ctx, id, docstore.Fields{"status": status})
}

func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}

// HistoryRepository is the buyer-side audit trail (requestHistory collection).
type HistoryRepository struct {
	col docstore.Collection[models.RequestHistory]
}

func NewHistoryRepository(store docstore.Store) *HistoryRepository {
	return &HistoryRepository{col: docstore.NewCollection[models.RequestHistory](store, models.RequestHistoryCollection)}
}

func (r *HistoryRepository) Create(ctx context.Context, h *models.RequestHistory) error {
	_, err := r.col.Insert(ctx, h)
	return err
}

func (r *HistoryRepository) Get(ctx context.Context, id string) (models.RequestHistory, error) {
	return r.col.Get(ctx, id)
}

// ByRequest finds the history paired with requestID.
func (r *HistoryRepository) ByRequest(ctx context.Context, requestID string) (models.RequestHistory, error) {
	return r.col.First(ctx, docstore.Filter{"requestId": requestID})
}

func (r *HistoryRepository) ByBuyer(ctx context.Context, email string) ([]models.RequestHistory, error) {
	return r.col.Find(ctx, docstore.Filter{"buyerEmail": email})
}

// SetStatus records an outcome. reason is stored only when non-empty.
func (r *HistoryRepository) SetStatus(ctx context.Context, id, status, reason string) error {
	fields := docstore.Fields{"status": status, "updatedAt": time.Now().UTC()}
	if reason != "" {
		fields["reason"] = reason
	}
	return r.col.Update(ctx, id, fields)
}

func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	return r.col.Delete(ctx, id)
}
