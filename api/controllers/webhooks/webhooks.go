package webhooks

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/choppgest/choppgest-backend/api/responses"
	webhooksvc "github.com/choppgest/choppgest-backend/internal/webhooks"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/metrics"
)

const maxPayloadBytes = 1 << 20

// DeliveryService is the per-gateway webhook pipeline.
type DeliveryService interface {
	Gateway() enums.Gateway
	HandleDelivery(ctx context.Context, payload []byte, headers http.Header, meta webhooksvc.RequestMeta) (*webhooksvc.Result, error)
}

// Gateway builds the HTTP handler for one provider endpoint. Providers
// retry on any non-2xx, so the status code is the contract: 400 tells
// them the payload will never parse, 401 that the signature is wrong,
// 500 that a retry may succeed. Everything else acks with 200.
func Gateway(svc DeliveryService, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteWebhookAck(w, http.StatusInternalServerError, "webhook service unavailable")
			return
		}

		gateway := string(svc.Gateway())
		if logg != nil {
			ctx = logg.WithGateway(ctx, gateway)
		}
		if wm != nil {
			wm.IncReceived(gateway)
		}
		start := time.Now()
		defer func() {
			if wm != nil {
				wm.ObserveDuration(gateway, time.Since(start))
			}
		}()

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
		if err != nil {
			if wm != nil {
				wm.IncRejected(gateway, "read_body")
			}
			responses.WriteWebhookAck(w, http.StatusInternalServerError, "could not read payload")
			return
		}

		meta := webhooksvc.RequestMeta{
			SourceIP:  clientIP(r),
			UserAgent: r.UserAgent(),
		}

		result, err := svc.HandleDelivery(ctx, payload, r.Header, meta)
		if err != nil {
			writeFailure(ctx, w, gateway, wm, logg, err)
			return
		}

		switch {
		case result.Duplicate:
			if wm != nil {
				wm.IncDuplicate(gateway)
			}
			responses.WriteWebhookAck(w, http.StatusOK, "duplicate event")
		case result.UnknownCharge:
			if wm != nil {
				wm.IncRejected(gateway, "unknown_charge")
			}
			responses.WriteWebhookAck(w, http.StatusOK, "event acknowledged")
		default:
			if wm != nil && result.Outcome != nil {
				wm.IncApplied(gateway, string(result.Outcome.Current))
			}
			responses.WriteWebhookAck(w, http.StatusOK, "event processed")
		}
	}
}

func writeFailure(ctx context.Context, w http.ResponseWriter, gateway string, wm *metrics.WebhookMetrics, logg *logger.Logger, err error) {
	typed := pkgerrors.As(err)
	code := pkgerrors.CodeInternal
	if typed != nil {
		code = typed.Code()
	}

	if logg != nil {
		logg.Error(ctx, "webhook delivery failed", err)
	}

	switch code {
	case pkgerrors.CodeValidation:
		if wm != nil {
			wm.IncRejected(gateway, "unparseable")
		}
		responses.WriteWebhookAck(w, http.StatusBadRequest, "payload could not be parsed")
	case pkgerrors.CodeUnauthorized:
		if wm != nil {
			wm.IncRejected(gateway, "bad_signature")
		}
		responses.WriteWebhookAck(w, http.StatusUnauthorized, "signature verification failed")
	default:
		if wm != nil {
			wm.IncRejected(gateway, "internal")
		}
		responses.WriteWebhookAck(w, http.StatusInternalServerError, "event processing failed")
	}
}

func clientIP(r *http.Request) string {
	// X-Forwarded-For carries one entry per proxy hop; the first is the
	// original client.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
