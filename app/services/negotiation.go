package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shashiranjanraj/kachra/app/models"
	"github.com/shashiranjanraj/kachra/app/repositories"
	"github.com/shashiranjanraj/kachra/pkg/auth"
	"github.com/shashiranjanraj/kachra/pkg/docstore"
	"github.com/shashiranjanraj/kachra/pkg/errs"
	"github.com/shashiranjanraj/kachra/pkg/event"
	"github.com/shashiranjanraj/kachra/pkg/logger"
	"github.com/shashiranjanraj/kachra/pkg/metrics"
	"github.com/shashiranjanraj/kachra/pkg/validate"
)

// compensationTimeout bounds cleanup that must run even after the caller's
// context is gone.
const compensationTimeout = 10 * time.Second

// SubmitRequestInput is a buyer's offer on a product.
type SubmitRequestInput struct {
	ProductID     string      `json:"productId"     validate:"required,max=16"`
	Phone         string      `json:"phone"         validate:"required,max=20"`
	ExpectedPrice json.Number `json:"expectedPrice" validate:"required,numeric,gte=0"`
}

// Resolution is the outcome of a seller decision as recorded in history.
type Resolution struct {
	RequestID string `json:"requestId"`
	HistoryID string `json:"requestHistoryId"`
	ProductID string `json:"productId"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// NegotiationService runs the offer lifecycle across the Requests inbox,
// the requestHistory trail and the product catalog. The store has no
// multi-document transactions: every write is idempotent and partial
// failures are compensated or reported as integrity errors.
type NegotiationService struct {
	products *repositories.ProductRepository
	requests *repositories.RequestRepository
	history  *repositories.HistoryRepository
	bus      *event.Bus
}

func NewNegotiationService(
	products *repositories.ProductRepository,
	requests *repositories.RequestRepository,
	history *repositories.HistoryRepository,
	bus *event.Bus,
) *NegotiationService {
	s := &NegotiationService{products: products, requests: requests, history: history, bus: bus}
	bus.Listen(event.ProductRemoved, s.onProductRemoved)
	return s
}

// SubmitRequest records a buyer's offer: first the history entry, then the
// seller's inbox entry pointing back at it. If the inbox write fails after
// its retries, both entries are deleted again.
func (s *NegotiationService) SubmitRequest(ctx context.Context, buyer auth.Identity, in SubmitRequestInput) (string, error) {
	const op = "negotiation.submit"

	if fields := validate.Struct(in); validate.HasErrors(fields) {
		return "", errs.Validation(op, fields)
	}
	expected, err := models.NewMoney(in.ExpectedPrice.String())
	if err != nil || expected.IsNegative() {
		return "", errs.Validation(op, map[string]string{"expectedPrice": "The expectedPrice must be a non-negative number."})
	}

	code := strings.TrimSpace(in.ProductID)
	p, err := s.products.FindByCode(ctx, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return "", errs.NotFound(op, "product %s not found", code)
	}
	if err != nil {
		return "", err
	}

	offer := models.Offer{
		ProductID:     p.ProductID,
		ProductName:   p.Name,
		OfferedPrice:  p.Price,
		ExpectedPrice: expected,
		BuyerEmail:    buyer.Email,
		SellerEmail:   p.Email,
		Phone:         strings.TrimSpace(in.Phone),
	}
	now := time.Now().UTC()
	req := models.Request{
		ID:               docstore.NewID(),
		Offer:            offer,
		Status:           models.StatusPending,
		RequestHistoryID: docstore.NewID(),
		CreatedAt:        now,
	}
	hist := models.RequestHistory{
		ID:        req.RequestHistoryID,
		Offer:     offer,
		Status:    models.StatusPending,
		RequestID: req.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	log := logger.WithCtx(ctx).With("request_id", req.ID, "history_id", hist.ID, "product_id", p.ProductID)

	if err := s.history.Create(ctx, &hist); err != nil {
		return "", err
	}

	if err := s.requests.Create(ctx, &req); err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
		defer cancel()

		// The insert may have landed with every acknowledgement lost, so the
		// request is removed too, before the history it points at.
		cerr := errors.Join(
			ignoreNotFound(s.requests.Delete(cctx, req.ID)),
			ignoreNotFound(s.history.Delete(cctx, hist.ID)),
		)
		if cerr != nil {
			ierr := errs.Integrity(op, "offer could not be rolled back", recordIDs(req), errors.Join(err, cerr))
			log.Error("submit compensation failed", "error", ierr)
			return "", ierr
		}
		log.Warn("submit rolled back", "error", err)
		return "", err
	}

	metrics.RecordTransition("submitted")
	log.Info("request submitted", "buyer", buyer.Email)
	s.bus.FireAsync(ctx, event.New(event.RequestSubmitted, req.ID, req))
	return req.ID, nil
}

// ResolveRequest applies a seller's decision. The steps run in a fixed
// order and each is idempotent, so repeating the same decision completes
// an interrupted resolution and otherwise succeeds without changes:
//
//  1. the request takes the terminal status
//  2. the paired history takes the same status
//  3. on accept, the product is deleted
//  4. the request is deleted
func (s *NegotiationService) ResolveRequest(ctx context.Context, actor auth.Identity, requestID string, d models.Decision) (Resolution, error) {
	const op = "negotiation.resolve"

	if !d.Valid() {
		return Resolution{}, errs.Validation(op, map[string]string{"decision": "The decision must be accept or reject."})
	}

	req, err := s.requests.Get(ctx, requestID)
	if errors.Is(err, docstore.ErrNotFound) {
		return s.resolveSettled(ctx, actor, requestID, d)
	}
	if err != nil {
		return Resolution{}, err
	}

	if req.SellerEmail != actor.Email {
		return Resolution{}, errs.Forbidden(op, "request %s belongs to another seller", requestID)
	}
	if models.IsTerminal(req.Status) && req.Status != d.Status() {
		return Resolution{}, errs.Conflict(op, "request %s is already %s", requestID, strings.ToLower(req.Status))
	}

	log := logger.WithCtx(ctx).With("request_id", req.ID, "history_id", req.RequestHistoryID, "product_id", req.ProductID)
	status := d.Status()

	var product *models.Product
	if d == models.Accept {
		p, err := s.products.FindByCode(ctx, req.ProductID)
		switch {
		case err == nil:
			product = &p
		case !errors.Is(err, docstore.ErrNotFound):
			return Resolution{}, err
		case req.Status == models.StatusPending:
			if rerr := s.autoReject(ctx, req); rerr != nil {
				return Resolution{}, s.integrity(ctx, op, "could not reject request for a vanished product", req, rerr)
			}
			return Resolution{}, errs.NotFound(op, "product %s is no longer available", req.ProductID)
		}
		// An Accepted request whose product is gone was interrupted after
		// step 3; finish the remaining steps.
	}

	if req.Status != status {
		if err := s.requests.SetStatus(ctx, req.ID, status); err != nil {
			return Resolution{}, err
		}
	}

	if err := s.history.SetStatus(ctx, req.RequestHistoryID, status, ""); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return Resolution{}, s.integrity(ctx, op, "request has no history record", req, err)
		}
		return Resolution{}, s.integrity(ctx, op, "request status changed but history was not updated", req, err)
	}

	if product != nil {
		err := s.products.Delete(ctx, product.ID)
		if errors.Is(err, docstore.ErrNotFound) {
			// Another accept won the race for this product.
			if rerr := s.autoReject(ctx, req); rerr != nil {
				return Resolution{}, s.integrity(ctx, op, "could not reject request for a sold product", req, rerr)
			}
			return Resolution{}, errs.NotFound(op, "product %s is no longer available", req.ProductID)
		}
		if err != nil {
			return Resolution{}, s.integrity(ctx, op, "request accepted but product was not removed", req, err)
		}
		s.bus.Fire(ctx, event.New(event.ProductRemoved, product.ProductID, RemovedProduct{Product: *product, Reason: RemovalSold}))
	}

	if err := s.requests.Delete(ctx, req.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return Resolution{}, s.integrity(ctx, op, "request resolved but not removed from the inbox", req, err)
	}

	res := Resolution{RequestID: req.ID, HistoryID: req.RequestHistoryID, ProductID: req.ProductID, Status: status}
	metrics.RecordTransition(strings.ToLower(status))
	log.Info("request resolved", "status", status, "seller", actor.Email)
	s.bus.FireAsync(ctx, event.New(event.RequestResolved, req.ID, res))
	return res, nil
}

// resolveSettled answers a decision on a request that has already left the
// inbox, using its history record.
func (s *NegotiationService) resolveSettled(ctx context.Context, actor auth.Identity, requestID string, d models.Decision) (Resolution, error) {
	const op = "negotiation.resolve"

	h, err := s.history.ByRequest(ctx, requestID)
	if errors.Is(err, docstore.ErrNotFound) {
		return Resolution{}, errs.NotFound(op, "request %s not found", requestID)
	}
	if err != nil {
		return Resolution{}, err
	}
	if h.SellerEmail != actor.Email {
		return Resolution{}, errs.Forbidden(op, "request %s belongs to another seller", requestID)
	}

	res := Resolution{RequestID: requestID, HistoryID: h.ID, ProductID: h.ProductID, Status: h.Status, Reason: h.Reason}
	switch {
	case h.Status == d.Status():
		return res, nil
	case h.Status == models.StatusPending:
		ierr := errs.Integrity(op, "history is pending but its request is missing",
			map[string]string{"request_id": requestID, "history_id": h.ID, "product_id": h.ProductID}, docstore.ErrNotFound)
		logger.WithCtx(ctx).Error("integrity violation", "error", ierr, "request_id", requestID, "history_id", h.ID)
		return Resolution{}, ierr
	case d == models.Accept && h.Reason == models.ReasonProductUnavailable:
		return Resolution{}, errs.NotFound(op, "product %s is no longer available", h.ProductID)
	default:
		return Resolution{}, errs.Conflict(op, "request %s is already %s", requestID, strings.ToLower(h.Status))
	}
}

// SellerRequests lists the seller's open inbox.
func (s *NegotiationService) SellerRequests(ctx context.Context, seller auth.Identity) ([]models.Request, error) {
	rs, err := s.requests.BySeller(ctx, seller.Email)
	if rs == nil && err == nil {
		rs = []models.Request{}
	}
	return rs, err
}

// BuyerHistory lists every offer the buyer has made and its outcome.
func (s *NegotiationService) BuyerHistory(ctx context.Context, buyer auth.Identity) ([]models.RequestHistory, error) {
	hs, err := s.history.ByBuyer(ctx, buyer.Email)
	if hs == nil && err == nil {
		hs = []models.RequestHistory{}
	}
	return hs, err
}

// onProductRemoved rejects every pending request for a product that was
// sold or withdrawn.
func (s *NegotiationService) onProductRemoved(ctx context.Context, e event.Event) error {
	pending, err := s.requests.PendingForProduct(ctx, e.Subject)
	if err != nil {
		return err
	}
	var failed []error
	for _, req := range pending {
		if err := s.autoReject(ctx, req); err != nil {
			failed = append(failed, s.integrity(ctx, "negotiation.sweep", "could not reject request for a removed product", req, err))
		}
	}
	return errors.Join(failed...)
}

// autoReject moves req to Rejected with the unavailable reason and clears
// it from the inbox.
func (s *NegotiationService) autoReject(ctx context.Context, req models.Request) error {
	if req.Status != models.StatusRejected {
		if err := s.requests.SetStatus(ctx, req.ID, models.StatusRejected); err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
	}
	if err := s.history.SetStatus(ctx, req.RequestHistoryID, models.StatusRejected, models.ReasonProductUnavailable); err != nil {
		return err
	}
	if err := s.requests.Delete(ctx, req.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
		return err
	}
	metrics.RecordTransition("auto_rejected")
	logger.WithCtx(ctx).Info("request auto-rejected", "request_id", req.ID, "history_id", req.RequestHistoryID, "product_id", req.ProductID)
	return nil
}

func (s *NegotiationService) integrity(ctx context.Context, op, msg string, req models.Request, cause error) error {
	err := errs.Integrity(op, msg, recordIDs(req), cause)
	metrics.RecordTransition("integrity_error")
	logger.WithCtx(ctx).Error("integrity violation", "error", err,
		"request_id", req.ID, "history_id", req.RequestHistoryID, "product_id", req.ProductID)
	return err
}

func ignoreNotFound(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}

func recordIDs(req models.Request) map[string]string {
	return map[string]string{
		"request_id": req.ID,
		"history_id": req.RequestHistoryID,
		"product_id": req.ProductID,
	}
}
