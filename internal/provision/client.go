package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/NikitaSkrynnik/huly-cef-mcp/internal/config"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/apperr"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/logg"
	"github.com/NikitaSkrynnik/huly-cef-mcp/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	provisionClientName = "ProvisionClient"
	provisionTracer     = "provision.client"
	maxBodyBytes        = 1 << 20
)

// Client looks up the backend address of a browser profile:
// GET {base}/profiles/{profile}/cef -> {"data": {"address": "..."}, "error": "..."}.
type Client struct {
	baseURL    string
	logger     *zap.Logger
	tracer     trace.Tracer
	httpClient *http.Client
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params Params) *Client {
	return &Client{
		baseURL: strings.TrimRight(params.Config.ProvisionConfig.BaseURL, "/"),
		logger:  params.Logger.With(zap.String(logg.Layer, provisionClientName)),
		tracer:  otel.Tracer(provisionTracer),
		httpClient: &http.Client{
			Timeout: params.Config.ProvisionConfig.Timeout,
		},
	}
}

type profileResponse struct {
	Data *struct {
		Address string `json:"address"`
	} `json:"data"`
	Error string `json:"error,omitempty"`
}

// Resolve returns the address for profile. A refusal by the service (non-2xx
// status or an error field) comes back as failure with a nil error; err is
// reserved for requests that got no usable answer at all.
func (c *Client) Resolve(ctx context.Context, profile string) (address string, failure string, err error) {
	const op = "Resolve"
	logger := c.logger.With(zap.String(logg.Operation, op), zap.String(logg.Profile, profile))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.String("profile", profile))
	defer func() {
		step.End(err)
	}()

	endpoint := fmt.Sprintf("%s/profiles/%s/cef", c.baseURL, url.PathEscape(profile))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "request_create_failed",
			apperr.MetaStage:  apperr.StageProvision,
		})
	}

	req.Header.Set("Accept", "application/json")

	step.AddEvent("sending HTTP request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "http_request_failed",
			apperr.MetaStage:  apperr.StageProvision,
			apperr.MetaURL:    endpoint,
		})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", "", apperr.Wrap(op, apperr.CodeUnavailable, err, map[string]any{
			apperr.MetaReason: "read_body_failed",
			apperr.MetaStage:  apperr.StageProvision,
		})
	}

	step.SetAttributes(attribute.Int("status_code", resp.StatusCode))

	var parsed profileResponse
	decodeErr := json.Unmarshal(body, &parsed)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok || parsed.Error != "" {
		logger.Warn("Profile lookup refused",
			zap.Int("status_code", resp.StatusCode),
			zap.String("error", parsed.Error))

		return "", parsed.Error, nil
	}

	if decodeErr != nil {
		return "", "", apperr.Wrap(op, apperr.CodeInternal, decodeErr, map[string]any{
			apperr.MetaReason: "unmarshal_failed",
			apperr.MetaStage:  apperr.StageProvision,
		})
	}

	if parsed.Data == nil || parsed.Data.Address == "" {
		return "", "", apperr.WrapErrorWithReason(op, apperr.CodeInternal, "address_missing")
	}

	logger.Debug("Profile resolved", zap.String(logg.Address, parsed.Data.Address))

	return parsed.Data.Address, "", nil
}
