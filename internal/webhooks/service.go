package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/reconcile"
	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/internal/webhookreceipts"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
)

type secretSource interface {
	WebhookSecrets(ctx context.Context, gateway enums.Gateway) ([]string, error)
}

type replayGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

type reconciler interface {
	Reconcile(ctx context.Context, input reconcile.Input) (*reconcile.Outcome, error)
}

// RequestMeta carries request provenance into the payment log.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// Result describes how a delivery was handled. Every variant maps to a
// 200 response; failures surface as errors instead.
type Result struct {
	EventID       string
	Duplicate     bool
	UnknownCharge bool
	Outcome       *reconcile.Outcome
}

type ServiceParams struct {
	Adapter     gateways.Adapter
	Engine      reconciler
	Receipts    webhookreceipts.Repository
	RoyaltyRepo royalties.Repository
	Secrets     secretSource
	Guard       replayGuard
	Logger      *logger.Logger
}

// Service processes one gateway's webhook deliveries: authenticate,
// deduplicate, resolve the charge, and hand the fact to the
// reconciliation engine.
type Service struct {
	adapter     gateways.Adapter
	engine      reconciler
	receipts    webhookreceipts.Repository
	royaltyRepo royalties.Repository
	secrets     secretSource
	guard       replayGuard
	logg        *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Adapter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway adapter required")
	}
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile engine required")
	}
	if params.Receipts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "receipt repo required")
	}
	if params.RoyaltyRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "royalty repo required")
	}
	if params.Secrets == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "secret source required")
	}
	return &Service{
		adapter:     params.Adapter,
		engine:      params.Engine,
		receipts:    params.Receipts,
		royaltyRepo: params.RoyaltyRepo,
		secrets:     params.Secrets,
		guard:       params.Guard,
		logg:        params.Logger,
	}, nil
}

func (s *Service) Gateway() enums.Gateway {
	return s.adapter.Gateway()
}

// HandleDelivery runs the full receive pipeline for one raw delivery.
func (s *Service) HandleDelivery(ctx context.Context, payload []byte, headers http.Header, meta RequestMeta) (result *Result, retErr error) {
	gateway := s.adapter.Gateway()

	secrets, err := s.secrets.WebhookSecrets(ctx, gateway)
	if err != nil {
		return nil, err
	}
	if len(secrets) == 0 {
		s.warn(ctx, "no webhook secret configured, accepting unsigned delivery")
	} else if !s.verifyAgainstAny(payload, headers, secrets) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "webhook signature verification failed")
	}

	event, err := s.adapter.ParseEvent(payload)
	if err != nil {
		return nil, err
	}
	if event.EventID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id missing")
	}
	result = &Result{EventID: event.EventID}

	// Fast-path replay filter. Redis being down must not reject the
	// delivery; the durable receipt below still dedupes.
	guardKey := string(gateway) + ":" + event.EventID
	marked := false
	if s.guard != nil {
		seen, guardErr := s.guard.CheckAndMark(ctx, guardKey)
		if guardErr != nil {
			s.warn(ctx, fmt.Sprintf("idempotency guard unavailable: %v", guardErr))
		} else if seen {
			result.Duplicate = true
			return result, nil
		} else {
			marked = true
		}
	}
	// Any failure from here on answers 500 and the gateway retries with
	// the same event id. The mark must not survive that failure or the
	// retry would be swallowed as a duplicate for the guard TTL.
	defer func() {
		if retErr == nil || !marked {
			return
		}
		if err := s.guard.Delete(ctx, guardKey); err != nil {
			s.warn(ctx, fmt.Sprintf("release idempotency mark: %v", err))
		}
	}()

	receipt, err := s.receipts.Upsert(ctx, gateway, event.EventID, json.RawMessage(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert webhook receipt")
	}
	if receipt != nil && receipt.Processed {
		result.Duplicate = true
		return result, nil
	}

	royaltyID, resolved, err := s.resolveRoyalty(ctx, event)
	if err != nil {
		return nil, err
	}
	if !resolved {
		note := fmt.Sprintf("charge not resolved: reference %q, payment id %q",
			event.ExternalReference, event.ExternalPaymentID)
		s.warn(ctx, note)
		if err := s.receipts.MarkProcessed(ctx, gateway, event.EventID, &note); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark receipt processed")
		}
		result.UnknownCharge = true
		return result, nil
	}

	outcome, err := s.engine.Reconcile(ctx, reconcile.Input{
		RoyaltyID:         royaltyID,
		Gateway:           gateway,
		NativeStatus:      event.NativeStatus,
		ExternalPaymentID: event.ExternalPaymentID,
		EventID:           event.EventID,
		PaidAt:            event.PaidAt,
		Action:            enums.PaymentLogActionWebhook,
		RawPayload:        json.RawMessage(payload),
		SourceIP:          optional(meta.SourceIP),
		UserAgent:         optional(meta.UserAgent),
	})
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil && coded.Code() == pkgerrors.CodeNotFound {
			note := "charge vanished during reconciliation"
			if markErr := s.receipts.MarkProcessed(ctx, gateway, event.EventID, &note); markErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, markErr, "mark receipt processed")
			}
			result.UnknownCharge = true
			return result, nil
		}
		s.recordFailure(ctx, gateway, event.EventID, err)
		return nil, err
	}

	var note *string
	if outcome.Ignored {
		ignored := fmt.Sprintf("conflicting transition ignored, charge already %s", outcome.Current)
		note = &ignored
	}
	if err := s.receipts.MarkProcessed(ctx, gateway, event.EventID, note); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark receipt processed")
	}

	result.Outcome = outcome
	return result, nil
}

func (s *Service) resolveRoyalty(ctx context.Context, event *gateways.Event) (uuid.UUID, bool, error) {
	if id, ok := gateways.ParseReference(event.ExternalReference); ok {
		return id, true, nil
	}
	royalty, err := s.royaltyRepo.FindByExternalPaymentID(ctx, s.adapter.Gateway(), event.ExternalPaymentID)
	if err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup by external payment id")
	}
	if royalty == nil {
		return uuid.Nil, false, nil
	}
	return royalty.ID, true, nil
}

// verifyAgainstAny accepts the delivery if the signature checks out
// under any configured secret. A shared gateway endpoint can serve
// establishments holding different secrets.
func (s *Service) verifyAgainstAny(payload []byte, headers http.Header, secrets []string) bool {
	for _, secret := range secrets {
		if s.adapter.VerifySignature(payload, headers, secret) {
			return true
		}
	}
	return false
}

// recordFailure leaves the receipt unprocessed with the failure note so
// the gateway's retry reprocesses the event.
func (s *Service) recordFailure(ctx context.Context, gateway enums.Gateway, eventID string, cause error) {
	if err := s.receipts.RecordFailure(ctx, gateway, eventID, cause.Error()); err != nil {
		s.warn(ctx, fmt.Sprintf("record receipt failure: %v", err))
	}
}

func (s *Service) warn(ctx context.Context, msg string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithGateway(ctx, string(s.adapter.Gateway()))
	s.logg.Warn(logCtx, msg)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
