package dataapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"tg-portfolio-bot/internal/domain"
	"tg-portfolio-bot/internal/infra/metrics"
)

// Client — HTTP-клиент сервиса портфельных данных. Любая сетевая или
// серверная ошибка сводится к domain.ErrDataUnavailable: вызывающая
// сторона деградирует по секциям, а не разбирает коды транспорта.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option настраивает клиент.
type Option func(*Client)

// WithTimeout задаёт таймаут HTTP-клиента.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New создаёт клиент по базовому URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	client := &Client{
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type portfolioResponse struct {
	TotalValue     float64 `json:"total_value"`
	DailyChangePct float64 `json:"daily_change_pct"`
	DrawdownPct    float64 `json:"drawdown_pct"`
	MarketRegime   string  `json:"market_regime"`
}

// PortfolioSnapshot возвращает срез портфеля пользователя.
func (c *Client) PortfolioSnapshot(ctx context.Context, callerID int64) (domain.PortfolioSnapshot, error) {
	var resp portfolioResponse
	endpoint := fmt.Sprintf("/api/v1/portfolio/%d", callerID)
	if err := c.get(ctx, "portfolio", endpoint, &resp); err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	return domain.PortfolioSnapshot{
		TotalValue:     resp.TotalValue,
		DailyChangePct: resp.DailyChangePct,
		DrawdownPct:    resp.DrawdownPct,
		MarketRegime:   domain.MarketRegime(resp.MarketRegime),
	}, nil
}

type positionResponse struct {
	ID           string  `json:"id"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	EntryPrice   float64 `json:"entry_price"`
	CurrentPrice float64 `json:"current_price"`
	PnLPct       float64 `json:"pnl_pct"`
}

// Positions возвращает открытые позиции пользователя.
func (c *Client) Positions(ctx context.Context, callerID int64) ([]domain.Position, error) {
	var resp []positionResponse
	endpoint := fmt.Sprintf("/api/v1/positions/%d", callerID)
	if err := c.get(ctx, "positions", endpoint, &resp); err != nil {
		return nil, err
	}
	positions := make([]domain.Position, 0, len(resp))
	for _, p := range resp {
		positions = append(positions, domain.Position{
			ID:           p.ID,
			Symbol:       p.Symbol,
			Quantity:     p.Quantity,
			EntryPrice:   p.EntryPrice,
			CurrentPrice: p.CurrentPrice,
			PnLPct:       p.PnLPct,
		})
	}
	return positions, nil
}

type analysisResponse struct {
	Summary    string   `json:"summary"`
	Signals    []string `json:"signals"`
	Confidence float64  `json:"confidence"`
}

// AIAnalysis возвращает текущий AI-анализ рынка.
func (c *Client) AIAnalysis(ctx context.Context) (domain.AIAnalysis, error) {
	var resp analysisResponse
	if err := c.get(ctx, "analysis", "/api/v1/analysis", &resp); err != nil {
		return domain.AIAnalysis{}, err
	}
	return domain.AIAnalysis{
		Summary:    resp.Summary,
		Signals:    resp.Signals,
		Confidence: resp.Confidence,
	}, nil
}

type alertResponse struct {
	ID       string `json:"id"`
	Severity string `json:"severity"`
	Text     string `json:"text"`
}

// RiskAlerts возвращает активные риск-алерты пользователя.
func (c *Client) RiskAlerts(ctx context.Context, callerID int64) ([]domain.RiskAlert, error) {
	var resp []alertResponse
	endpoint := fmt.Sprintf("/api/v1/alerts/%d", callerID)
	if err := c.get(ctx, "alerts", endpoint, &resp); err != nil {
		return nil, err
	}
	alerts := make([]domain.RiskAlert, 0, len(resp))
	for _, a := range resp {
		alerts = append(alerts, domain.RiskAlert{
			ID:       a.ID,
			Severity: domain.AlertSeverity(a.Severity),
			Text:     a.Text,
		})
	}
	return alerts, nil
}

func (c *Client) get(ctx context.Context, operation, endpoint string, out any) error {
	resolved := *c.baseURL
	basePath := strings.TrimSuffix(c.baseURL.Path, "/")
	resolved.Path = path.Clean(basePath + endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveNetworkRequest("data_api", operation, endpoint, start, err)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", domain.ErrDataUnavailable, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrDataUnavailable, err)
	}
	return nil
}

// IsUnavailable сообщает, является ли ошибка деградацией провайдера.
func IsUnavailable(err error) bool {
	return errors.Is(err, domain.ErrDataUnavailable)
}

var _ domain.DataProvider = (*Client)(nil)
