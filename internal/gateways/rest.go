package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/choppgest/choppgest-backend/pkg/config"
	"github.com/choppgest/choppgest-backend/pkg/enums"
	pkgerrors "github.com/choppgest/choppgest-backend/pkg/errors"
	"github.com/choppgest/choppgest-backend/pkg/logger"
)

// httpDoer lets tests swap the transport.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTClient talks to one provider's charge API. Each provider gets its
// own request profile; the lifecycle around it (auth, timeouts, error
// mapping) is shared.
type RESTClient struct {
	gateway enums.Gateway
	baseURL string
	apiKey  string
	http    httpDoer
	logg    *logger.Logger
	profile restProfile
}

type restProfile struct {
	createPath  string
	fetchPath   func(externalID string) string
	authorize   func(req *http.Request, apiKey string)
	encodeBody  func(input CreateChargeInput) (string, []byte, error)
	parseCreate func(body []byte) (*ChargeHandle, error)
	parseFetch  func(body []byte) (*PaymentDetails, error)
}

// NewRESTClient builds the outbound client for one gateway.
func NewRESTClient(gateway enums.Gateway, cfg config.GatewayClientConfig, timeout time.Duration, logg *logger.Logger) (*RESTClient, error) {
	if !gateway.IsProvider() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s base url required", gateway))
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s api key required", gateway))
	}
	profile, ok := restProfiles[gateway]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("no rest profile for gateway %s", gateway))
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RESTClient{
		gateway: gateway,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		logg:    logg,
		profile: profile,
	}, nil
}

func (c *RESTClient) CreateCharge(ctx context.Context, input CreateChargeInput) (*ChargeHandle, error) {
	contentType, body, err := c.profile.encodeBody(input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "encode charge request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.profile.createPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build charge request")
	}
	req.Header.Set("Content-Type", contentType)
	c.profile.authorize(req, c.apiKey)

	respBody, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	handle, err := c.profile.parseCreate(respBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode charge response")
	}
	return handle, nil
}

func (c *RESTClient) FetchPaymentDetails(ctx context.Context, externalPaymentID string) (*PaymentDetails, error) {
	if strings.TrimSpace(externalPaymentID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external payment id required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.profile.fetchPath(externalPaymentID), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build fetch request")
	}
	c.profile.authorize(req, c.apiKey)

	respBody, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	details, err := c.profile.parseFetch(respBody)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment details")
	}
	return details, nil
}

func (c *RESTClient) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s request failed", c.gateway))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read provider response")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if c.logg != nil {
			logCtx := c.logg.WithFields(ctx, map[string]any{
				"gateway":     string(c.gateway),
				"http_status": resp.StatusCode,
			})
			c.logg.Warn(logCtx, "provider returned an error status")
		}
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("%s responded with status %d", c.gateway, resp.StatusCode))
	}
	return body, nil
}

func bearerAuth(req *http.Request, apiKey string) {
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

func accessTokenAuth(req *http.Request, apiKey string) {
	req.Header.Set("access_token", apiKey)
}

var restProfiles = map[enums.Gateway]restProfile{
	enums.GatewayStripe: {
		createPath: "/payment_links",
		fetchPath: func(id string) string {
			return "/checkout/sessions/" + url.PathEscape(id)
		},
		authorize: bearerAuth,
		encodeBody: func(input CreateChargeInput) (string, []byte, error) {
			form := url.Values{}
			form.Set("line_items[0][price_data][currency]", input.Currency)
			form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(input.AmountCents, 10))
			form.Set("line_items[0][price_data][product_data][name]", input.Description)
			form.Set("line_items[0][quantity]", "1")
			form.Set("metadata[external_reference]", input.ExternalReference)
			return "application/x-www-form-urlencoded", []byte(form.Encode()), nil
		},
		parseCreate: func(body []byte) (*ChargeHandle, error) {
			var resp struct {
				ID  string `json:"id"`
				URL string `json:"url"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &ChargeHandle{
				ExternalPaymentID: resp.ID,
				PaymentLinkID:     resp.ID,
				InvoiceURL:        resp.URL,
			}, nil
		},
		parseFetch: func(body []byte) (*PaymentDetails, error) {
			var resp struct {
				ID            string `json:"id"`
				Status        string `json:"status"`
				PaymentStatus string `json:"payment_status"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			status := resp.PaymentStatus
			if status == "" {
				status = resp.Status
			}
			return &PaymentDetails{ExternalPaymentID: resp.ID, NativeStatus: status}, nil
		},
	},
	enums.GatewayMercadoPago: {
		createPath: "/checkout/preferences",
		fetchPath: func(id string) string {
			return "/v1/payments/" + url.PathEscape(id)
		},
		authorize: bearerAuth,
		encodeBody: func(input CreateChargeInput) (string, []byte, error) {
			payload := map[string]any{
				"external_reference": input.ExternalReference,
				"items": []map[string]any{{
					"title":       input.Description,
					"quantity":    1,
					"unit_price":  float64(input.AmountCents) / 100,
					"currency_id": strings.ToUpper(input.Currency),
				}},
			}
			body, err := json.Marshal(payload)
			return "application/json", body, err
		},
		parseCreate: func(body []byte) (*ChargeHandle, error) {
			var resp struct {
				ID        string `json:"id"`
				InitPoint string `json:"init_point"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &ChargeHandle{
				ExternalPaymentID: resp.ID,
				PaymentLinkID:     resp.ID,
				InvoiceURL:        resp.InitPoint,
			}, nil
		},
		parseFetch: func(body []byte) (*PaymentDetails, error) {
			var resp struct {
				ID           json.Number `json:"id"`
				Status       string      `json:"status"`
				DateApproved string      `json:"date_approved"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &PaymentDetails{
				ExternalPaymentID: resp.ID.String(),
				NativeStatus:      resp.Status,
				PaidAt:            parseEventTime(resp.DateApproved),
			}, nil
		},
	},
	enums.GatewayAsaas: {
		createPath: "/payments",
		fetchPath: func(id string) string {
			return "/payments/" + url.PathEscape(id)
		},
		authorize: accessTokenAuth,
		encodeBody: func(input CreateChargeInput) (string, []byte, error) {
			payload := map[string]any{
				"billingType":       "UNDEFINED",
				"value":             float64(input.AmountCents) / 100,
				"dueDate":           input.DueDate.Format("2006-01-02"),
				"description":       input.Description,
				"externalReference": input.ExternalReference,
			}
			body, err := json.Marshal(payload)
			return "application/json", body, err
		},
		parseCreate: func(body []byte) (*ChargeHandle, error) {
			var resp struct {
				ID          string `json:"id"`
				InvoiceURL  string `json:"invoiceUrl"`
				BankSlipURL string `json:"bankSlipUrl"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &ChargeHandle{
				ExternalPaymentID: resp.ID,
				InvoiceURL:        resp.InvoiceURL,
				BoletoID:          resp.BankSlipURL,
			}, nil
		},
		parseFetch: func(body []byte) (*PaymentDetails, error) {
			var resp struct {
				ID          string `json:"id"`
				Status      string `json:"status"`
				PaymentDate string `json:"paymentDate"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &PaymentDetails{
				ExternalPaymentID: resp.ID,
				NativeStatus:      resp.Status,
				PaidAt:            parseEventTime(resp.PaymentDate),
			}, nil
		},
	},
	enums.GatewayCora: {
		createPath: "/v2/invoices",
		fetchPath: func(id string) string {
			return "/v2/invoices/" + url.PathEscape(id)
		},
		authorize: bearerAuth,
		encodeBody: func(input CreateChargeInput) (string, []byte, error) {
			payload := map[string]any{
				"code": input.ExternalReference,
				"customer": map[string]any{
					"email": input.BillingEmail,
				},
				"services": []map[string]any{{
					"name":   input.Description,
					"amount": input.AmountCents,
				}},
				"payment_terms": map[string]any{
					"due_date": input.DueDate.Format("2006-01-02"),
				},
			}
			body, err := json.Marshal(payload)
			return "application/json", body, err
		},
		parseCreate: func(body []byte) (*ChargeHandle, error) {
			var resp struct {
				ID             string `json:"id"`
				Status         string `json:"status"`
				PaymentOptions struct {
					BankSlip struct {
						URL string `json:"url"`
					} `json:"bank_slip"`
				} `json:"payment_options"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &ChargeHandle{
				ExternalPaymentID: resp.ID,
				BoletoID:          resp.ID,
				InvoiceURL:        resp.PaymentOptions.BankSlip.URL,
			}, nil
		},
		parseFetch: func(body []byte) (*PaymentDetails, error) {
			var resp struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				PaidAt string `json:"paidAt"`
			}
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, err
			}
			return &PaymentDetails{
				ExternalPaymentID: resp.ID,
				NativeStatus:      resp.Status,
				PaidAt:            parseEventTime(resp.PaidAt),
			}, nil
		},
	},
}

// NewClientsFromConfig wires one REST client per provider that has
// credentials configured. Providers without an API key are skipped so a
// deployment can run with a subset of gateways.
func NewClientsFromConfig(cfg config.GatewaysConfig, logg *logger.Logger) (Clients, error) {
	clients := Clients{}
	for _, gateway := range []enums.Gateway{
		enums.GatewayStripe,
		enums.GatewayMercadoPago,
		enums.GatewayAsaas,
		enums.GatewayCora,
	} {
		gc := cfg.ForGateway(string(gateway))
		if strings.TrimSpace(gc.APIKey) == "" {
			continue
		}
		client, err := NewRESTClient(gateway, gc, cfg.HTTPTimeout, logg)
		if err != nil {
			return nil, err
		}
		clients[gateway] = client
	}
	return clients, nil
}
