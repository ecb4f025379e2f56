// Package subgraph reads protocol state from the GraphQL indexer and falls
// back to direct contract reads when the indexer is unavailable.
package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"TroveDesk/internal/health"
	"TroveDesk/internal/logging"
	"TroveDesk/internal/metrics"
	"TroveDesk/internal/recorder"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Indicator messages shown to users.
const (
	MsgUnableToFetch   = "Subgraph error: unable to fetch data."
	MsgInvalidResponse = "Subgraph error: invalid response."
)

var (
	// ErrTransport covers network failures and non-2xx answers.
	ErrTransport = errors.New("error while fetching data from the subgraph")
	// ErrInvalidResponse covers bodies without a data member.
	ErrInvalidResponse = errors.New("invalid response from the subgraph")
	// ErrUnavailable is returned when neither the indexer nor the chain could answer.
	ErrUnavailable = errors.New("trove data unavailable")
)

const defaultTimeout = 10 * time.Second

// Config configures the indexer endpoint.
type Config struct {
	URL     string
	Timeout time.Duration
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("subgraph url is required")
	}
	if c.Timeout < 0 {
		return errors.New("subgraph timeout must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	return nil
}

// Options carries the collaborators of a Client. All are optional.
type Options struct {
	HTTPClient *http.Client
	Indicator  *health.Indicator
	Chain      ChainReader
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Logger     logging.Logger
}

// Client executes the named indexer queries.
type Client struct {
	url       string
	http      *http.Client
	indicator *health.Indicator
	chain     ChainReader
	recorder  recorder.Recorder
	metrics   *metrics.Metrics
	logger    logging.Logger
	tracer    trace.Tracer
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config, opts Options) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	c := &Client{
		url:       cfg.URL,
		http:      opts.HTTPClient,
		indicator: opts.Indicator,
		chain:     opts.Chain,
		recorder:  opts.Recorder,
		metrics:   opts.Metrics,
		logger:    logging.OrDiscard(opts.Logger),
		tracer:    otel.Tracer("trovedesk/subgraph"),
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	if c.indicator == nil {
		c.indicator = health.NewIndicator()
	}
	if c.recorder == nil {
		c.recorder = recorder.NewNoopRecorder()
	}
	return c, nil
}

// Indicator returns the health indicator the client reports to.
func (c *Client) Indicator() *health.Indicator { return c.indicator }

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// query runs one named query and decodes its data member into out.
func (c *Client) query(ctx context.Context, name, document string, vars map[string]any, out any) error {
	ticket := c.indicator.Begin()
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "subgraph."+name, trace.WithAttributes(attribute.String("graphql.operation", name)))
	defer span.End()

	err := c.do(ctx, document, vars, out)
	switch {
	case err == nil:
		c.indicator.Clear(ticket)
		c.metrics.ObserveSubgraphQuery(name, "ok", time.Since(start))
		return nil
	case errors.Is(err, ErrInvalidResponse):
		c.indicator.SetError(ticket, MsgInvalidResponse)
		c.metrics.ObserveSubgraphQuery(name, "invalid", time.Since(start))
	default:
		c.indicator.SetError(ticket, MsgUnableToFetch)
		c.metrics.ObserveSubgraphQuery(name, "transport", time.Since(start))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return fmt.Errorf("%s: %w", name, err)
}

func (c *Client) do(ctx context.Context, document string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphRequest{Query: document, Variables: vars})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/graphql-response+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	var gr graphResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}
	if len(gr.Data) == 0 || string(gr.Data) == "null" {
		if len(gr.Errors) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidResponse, gr.Errors[0].Message)
		}
		return ErrInvalidResponse
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
