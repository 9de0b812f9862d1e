// Command seed populates a running storefront with a demo catalogue and a
// funded demo customer through the public API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/slug"
)

// Config is read from the environment.
type Config struct {
	BaseURL          string        `env:"SEED_BASE_URL" envDefault:"http://localhost:8080"`
	AdminUsername    string        `env:"BOOTSTRAP_ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword    string        `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	CustomerUsername string        `env:"SEED_CUSTOMER_USERNAME" envDefault:"demo"`
	CustomerPassword string        `env:"SEED_CUSTOMER_PASSWORD" envDefault:"demo-password"`
	WalletTopUp      string        `env:"SEED_WALLET_TOP_UP" envDefault:"500.00"`
	Timeout          time.Duration `env:"SEED_TIMEOUT" envDefault:"2m"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
}

type productDef struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Price       string `json:"price"`
	StockCount  int    `json:"stock_count"`
}

var catalogue = []productDef{
	{"Ceramic Mug", "kitchen", "350ml stoneware mug", "12.50", 40},
	{"Chef Knife", "kitchen", "20cm stainless steel blade", "64.90", 15},
	{"Cast Iron Skillet", "kitchen", "26cm pre-seasoned skillet", "39.00", 20},
	{"Trail Running Shoes", "sports", "Lightweight shoes with grippy outsole", "89.99", 25},
	{"Yoga Mat", "sports", "6mm non-slip mat", "24.00", 30},
	{"Insulated Bottle", "sports", "750ml double-wall bottle", "19.95", 50},
	{"Paperback Notebook", "books", "A5 dotted notebook, 192 pages", "8.75", 100},
	{"Field Guide to Birds", "books", "Illustrated regional field guide", "29.00", 12},
	{"Wireless Earbuds", "electronics", "Bluetooth earbuds with charging case", "79.00", 18},
	{"USB-C Charger", "electronics", "65W GaN wall charger", "34.50", 35},
}

func main() {
	var cfg Config
	if err := pkgconfig.Load(&cfg); err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("storefront-seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	s := newSeeder(cfg.BaseURL, &http.Client{Timeout: 10 * time.Second}, log)
	if err := s.run(ctx, cfg); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}

// apiError is a non-2xx response from the storefront.
type apiError struct {
	Status int
	Code   string
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d %s: %s", e.Status, e.Code, e.Body)
}

type seeder struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func newSeeder(baseURL string, client *http.Client, logger *slog.Logger) *seeder {
	return &seeder{baseURL: strings.TrimRight(baseURL, "/"), client: client, logger: logger}
}

func (s *seeder) run(ctx context.Context, cfg Config) error {
	if cfg.AdminPassword == "" {
		return errors.New("BOOTSTRAP_ADMIN_PASSWORD is required")
	}

	adminToken, err := s.login(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}

	created := 0
	for _, p := range catalogue {
		ok, err := s.ensureProduct(ctx, adminToken, p)
		if err != nil {
			return fmt.Errorf("product %q: %w", p.Name, err)
		}
		if ok {
			created++
		}
	}
	s.logger.Info("catalogue seeded",
		slog.Int("created", created),
		slog.Int("existing", len(catalogue)-created),
	)

	if err := s.ensureCustomer(ctx, cfg.CustomerUsername, cfg.CustomerPassword); err != nil {
		return fmt.Errorf("register demo customer: %w", err)
	}
	customerToken, err := s.login(ctx, cfg.CustomerUsername, cfg.CustomerPassword)
	if err != nil {
		return fmt.Errorf("demo customer login: %w", err)
	}

	var balance struct {
		Balance string `json:"balance"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/v1/wallet/charge", customerToken,
		map[string]string{"amount": cfg.WalletTopUp}, &balance); err != nil {
		return fmt.Errorf("charge demo wallet: %w", err)
	}
	s.logger.Info("demo customer funded",
		slog.String("username", cfg.CustomerUsername),
		slog.String("balance", balance.Balance),
	)
	return nil
}

func (s *seeder) login(ctx context.Context, username, password string) (string, error) {
	var result struct {
		AccessToken string `json:"access_token"`
	}
	err := s.do(ctx, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"username": username, "password": password}, &result)
	if err != nil {
		return "", err
	}
	return result.AccessToken, nil
}

// ensureProduct creates p unless a product with its slug already exists.
func (s *seeder) ensureProduct(ctx context.Context, token string, p productDef) (bool, error) {
	err := s.do(ctx, http.MethodGet, "/api/v1/inventory/slug/"+slug.Generate(p.Name), "", nil, nil)
	if err == nil {
		return false, nil
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		return false, err
	}

	if err := s.do(ctx, http.MethodPost, "/api/v1/inventory", token, p, nil); err != nil {
		return false, err
	}
	s.logger.Debug("product created", slog.String("name", p.Name), slog.String("category", p.Category))
	return true, nil
}

func (s *seeder) ensureCustomer(ctx context.Context, username, password string) error {
	err := s.do(ctx, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"full_name":      "Demo Customer",
		"username":       username,
		"password":       password,
		"age":            30,
		"address":        "1 Demo Street",
		"gender":         domain.GenderOther,
		"marital_status": domain.MaritalStatusSingle,
	}, nil)

	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		s.logger.Info("demo customer already registered", slog.String("username", username))
		return nil
	}
	return err
}

// do sends body as JSON and decodes the envelope's data into out when out
// is non-nil.
func (s *seeder) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(respBody, &envelope)

	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode, Body: string(respBody)}
		if envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
