//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/api"
	"github.com/extgov-platform/extgov/internal/audit"
	"github.com/extgov-platform/extgov/internal/auth"
	"github.com/extgov-platform/extgov/internal/commands"
	"github.com/extgov-platform/extgov/internal/config"
	"github.com/extgov-platform/extgov/internal/enforcement"
	"github.com/extgov-platform/extgov/internal/middleware"
	inats "github.com/extgov-platform/extgov/internal/nats"
	"github.com/extgov-platform/extgov/internal/provider"
	"github.com/extgov-platform/extgov/internal/provision"
)

// AdminAPIKey is the plaintext admin key used by the test environment.
const AdminAPIKey = "test-admin-api-key-32-chars-long"

// remoteConfig is a swappable in-process stand-in for the remote trust
// configuration endpoint. Tests change the response between refresh cycles.
type remoteConfig struct {
	mu     sync.Mutex
	status int
	body   string
}

func (rc *remoteConfig) Set(status int, body string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.status = status
	rc.body = body
}

func (rc *remoteConfig) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	w.WriteHeader(rc.status)
	io.WriteString(w, rc.body)
}

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	NATSClient  *inats.Client
	Server      *httptest.Server
	Registry    *allowlist.Registry
	Runner      *provision.Runner
	Remote      *remoteConfig
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "extgov_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Start NATS container
	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2-alpine",
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--jetstream", "--store_dir", "/data"},
			WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting nats container: %v", err)
	}
	t.Cleanup(func() { natsContainer.Terminate(ctx) })

	natsHost, _ := natsContainer.Host(ctx)
	natsPort, _ := natsContainer.MappedPort(ctx, "4222")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/extgov_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	m, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Connect to NATS
	natsClient, err := inats.NewClient(ctx, config.NATSConfig{
		URL: fmt.Sprintf("nats://%s:%s", natsHost, natsPort.Port()),
	})
	if err != nil {
		t.Fatalf("connecting to nats: %v", err)
	}
	t.Cleanup(func() { natsClient.Close() })
	publisher := inats.NewPublisher(natsClient.JetStream())

	// Remote trust configuration endpoint, baseline-only at startup
	remote := &remoteConfig{status: http.StatusOK, body: `{"entries":[]}`}
	remoteSrv := httptest.NewServer(remote)
	t.Cleanup(remoteSrv.Close)

	// Registry and provisioning
	registry := allowlist.NewRegistry(allowlist.Baseline())
	cache := provision.NewCache(t.TempDir() + "/remote-config.json")
	fetcher := provision.NewFetcher(remoteSrv.URL, 5*time.Second, 1, registry, cache)
	runner := provision.NewRunner(fetcher, registry, cache, publisher, nil, time.Hour)

	runCtx, runCancel := context.WithCancel(ctx)
	t.Cleanup(runCancel)
	go runner.Run(runCtx)

	// Audit trail
	auditRepo := audit.NewRepository(pool)
	consumer := audit.NewConsumer(auditRepo, inats.NewConsumerManager(natsClient.JetStream()))
	go func() {
		if err := consumer.Start(runCtx); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	// Auth
	keyHash, err := bcrypt.GenerateFromPassword([]byte(AdminAPIKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing admin key: %v", err)
	}
	jwtManager := auth.NewJWTManager("test-jwt-secret-32-chars-long!!!!", time.Hour)
	authSvc := auth.NewService(jwtManager, string(keyHash))
	authHandler := auth.NewHandler(authSvc)

	// Governance surfaces
	bridge := provider.NewBridge(registry, true)
	providerHandler := provider.NewHandler(bridge)

	guard := enforcement.NewDisableGuard(registry, publisher)
	gate := enforcement.NewOverrideGate(registry, publisher)
	enforcementHandler := enforcement.NewHandler(guard, gate)

	commandsHandler := commands.NewHandler(config.FeaturesConfig{AssistantPanel: true})

	provisionHandler := provision.NewHandler(runner)
	auditHandler := audit.NewHandler(auditRepo)

	rateLimiter := middleware.NewRateLimiter(redisClient, 100, 60)

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		TokenRateLimiter: rateLimiter.Middleware,
	}, api.HandlerSet{
		Token: authHandler.Token,

		ListProviderExtensions: providerHandler.ListExtensions,
		CheckDisable:           enforcementHandler.CheckDisable,
		CheckOverride:          enforcementHandler.CheckOverride,
		ListCommands:           commandsHandler.List,

		ProvisionStatus:  provisionHandler.Status,
		ProvisionRefresh: provisionHandler.Refresh,
		ListAuditLogs:    auditHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
		ProvisionState: func() string { return string(runner.Status().State) },
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		NATSClient:  natsClient,
		Server:      server,
		Registry:    registry,
		Runner:      runner,
		Remote:      remote,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

// AdminToken exchanges the test admin key for a JWT.
func AdminToken(t *testing.T, env *TestEnv) string {
	t.Helper()
	resp := DoRequest(t, env, "POST", "/api/v1/auth/token", map[string]string{"api_key": AdminAPIKey}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token exchange failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
