package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/tripbooker/internal/booking"
	"github.com/teemow/tripbooker/internal/config"
	"github.com/teemow/tripbooker/internal/events"
	"github.com/teemow/tripbooker/internal/google"
	"github.com/teemow/tripbooker/internal/instrumentation"
	"github.com/teemow/tripbooker/internal/logging"
	"github.com/teemow/tripbooker/internal/mcp/oauth"
	"github.com/teemow/tripbooker/internal/payments"
	"github.com/teemow/tripbooker/internal/resources"
	"github.com/teemow/tripbooker/internal/server"
	"github.com/teemow/tripbooker/internal/store"
	"github.com/teemow/tripbooker/internal/tools/booking_tools"
)

// serveOptions holds the serve flags after environment fallbacks
type serveOptions struct {
	debug     bool
	logFormat string

	httpAddr      string
	baseURL       string
	widgetBaseURL string

	googleClientID     string
	googleClientSecret string
	googleOAuthBaseURL string
	stateKey           string
	encryptionKey      string

	// decoded by complete
	encryptionKeyBytes []byte

	rateLimit  float64
	rateBurst  int
	trustProxy bool

	redisURL    string
	databaseURL string

	amqpURL      string
	amqpExchange string

	rapidAPIKey    string
	rapidAPIHost   string
	bookingBaseURL string

	stripeKey string

	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OAuth proxy and the MCP server",
		Long: `Start the HTTP server hosting the OAuth 2.0 proxy to Google, the protected
MCP endpoint at /mcp and the payments API.

OAuth Configuration:
  Base URL (required for deployed instances):
    --base-url https://your-domain.com OR MCP_BASE_URL env var
    Auto-detected for localhost (development only)

  Google credentials (required for sign-in):
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars
    Register <base-url>/oauth/callback as the redirect URI in Google.

  Multiple replicas:
    Set OAUTH_STATE_KEY (32+ bytes) and REDIS_URL so every replica can
    verify state and redeem codes issued by another one.

Environment:
  Variables may also come from a .env file (ENV_FILE_PATH) or a JSON secret
  in AWS Secrets Manager (AWS_SECRETS_MANAGER_SECRET_ID).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			opts.logFormat = envFallback(cmd, "log-format", opts.logFormat, "LOG_FORMAT")
			if !cmd.Flags().Changed("debug") && os.Getenv("DEBUG") == "true" {
				opts.debug = true
			}
			logger := logging.NewLogger(os.Stderr, opts.logFormat, opts.debug)
			slog.SetDefault(logger)

			config.LoadEnv(ctx, logger)

			if err := opts.applyEnv(cmd); err != nil {
				return err
			}
			if err := opts.complete(logger); err != nil {
				return err
			}
			return runServe(ctx, opts, logger)
		},
	}

	opts.bindFlags(cmd)

	return cmd
}

// bindFlags registers the serve flags on cmd
func (o *serveOptions) bindFlags(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.BoolVar(&o.debug, "debug", false, "Enable debug logging. Can also use DEBUG=true.")
	fs.StringVar(&o.logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use LOG_FORMAT env var.")
	fs.StringVar(&o.httpAddr, "http-addr", ":8080", "HTTP server address. PORT env var sets the port.")
	fs.StringVar(&o.baseURL, "base-url", "", "Public base URL. Required for deployed instances. Can also use MCP_BASE_URL env var. Example: https://trips.example.com")
	fs.StringVar(&o.widgetBaseURL, "widget-base-url", "", "Base URL widget HTML templates are fetched from (default: the base URL). Can also use WIDGET_BASE_URL env var.")

	fs.StringVar(&o.googleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	fs.StringVar(&o.googleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	fs.StringVar(&o.googleOAuthBaseURL, "google-oauth-base-url", "", "Base URL serving /auth and /token in place of Google's OAuth endpoints, for staging and local emulators. Can also use GOOGLE_OAUTH_BASE_URL env var.")
	fs.StringVar(&o.stateKey, "oauth-state-key", "", "HMAC key (32+ bytes) sealing the OAuth state. Random per process when unset. Can also use OAUTH_STATE_KEY env var.")
	fs.StringVar(&o.encryptionKey, "oauth-encryption-key", "", "AES-256 key (32 bytes, base64 encoded) encrypting codes stored in Redis. Can also use OAUTH_ENCRYPTION_KEY env var. Generate with: openssl rand -base64 32")

	fs.Float64Var(&o.rateLimit, "oauth-rate-limit", 10, "Requests per second per IP on /oauth/register and /oauth/token (0 disables). Can also use OAUTH_RATE_LIMIT env var.")
	fs.IntVar(&o.rateBurst, "oauth-rate-burst", 20, "Burst size for the OAuth rate limit. Can also use OAUTH_RATE_BURST env var.")
	fs.BoolVar(&o.trustProxy, "oauth-trust-proxy", false, "Trust X-Forwarded-For and X-Real-IP for rate limiting. Only behind a trusted proxy. Can also use OAUTH_TRUST_PROXY env var.")

	fs.StringVar(&o.redisURL, "redis-url", "", "Redis URL for the client registry and code vault (default: in-memory). Can also use REDIS_URL env var.")
	fs.StringVar(&o.databaseURL, "database-url", "", "PostgreSQL DSN for users and payments (default: in-memory). Can also use DATABASE_URL env var.")
	fs.StringVar(&o.amqpURL, "amqp-url", "", "RabbitMQ URL for domain events (default: disabled). Can also use AMQP_URL env var.")
	fs.StringVar(&o.amqpExchange, "amqp-exchange", events.DefaultExchange, "RabbitMQ topic exchange for domain events. Can also use AMQP_EXCHANGE env var.")

	fs.StringVar(&o.rapidAPIKey, "rapidapi-key", "", "RapidAPI key for the Booking API. Can also use RAPIDAPI_KEY env var.")
	fs.StringVar(&o.rapidAPIHost, "rapidapi-host", booking.DefaultHost, "RapidAPI host header. Can also use RAPIDAPI_HOST env var.")
	fs.StringVar(&o.bookingBaseURL, "booking-api-base-url", booking.DefaultBaseURL, "Booking API base URL. Can also use BOOKING_API_BASE_URL env var.")
	fs.StringVar(&o.stripeKey, "stripe-key", "", "Stripe secret key for checkout sessions. Can also use STRIPE_KEY env var.")

	fs.BoolVar(&o.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	fs.StringVar(&o.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")
}

// envFallback returns value when flag was set on the command line, otherwise
// the first non-empty environment variable of keys, otherwise value.
func envFallback(cmd *cobra.Command, flag, value string, keys ...string) string {
	if cmd.Flags().Changed(flag) {
		return value
	}
	return config.Getenv(value, keys...)
}

// applyEnv fills every flag not set on the command line from the environment
func (o *serveOptions) applyEnv(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("http-addr") {
		if port := os.Getenv("PORT"); port != "" {
			o.httpAddr = ":" + port
		}
	}
	o.baseURL = envFallback(cmd, "base-url", o.baseURL, "MCP_BASE_URL")
	o.widgetBaseURL = envFallback(cmd, "widget-base-url", o.widgetBaseURL, "WIDGET_BASE_URL")

	o.googleClientID = envFallback(cmd, "google-client-id", o.googleClientID, "GOOGLE_CLIENT_ID")
	o.googleClientSecret = envFallback(cmd, "google-client-secret", o.googleClientSecret, "GOOGLE_CLIENT_SECRET")
	o.googleOAuthBaseURL = envFallback(cmd, "google-oauth-base-url", o.googleOAuthBaseURL, "GOOGLE_OAUTH_BASE_URL")
	o.stateKey = envFallback(cmd, "oauth-state-key", o.stateKey, "OAUTH_STATE_KEY")
	o.encryptionKey = envFallback(cmd, "oauth-encryption-key", o.encryptionKey, "OAUTH_ENCRYPTION_KEY")

	o.redisURL = envFallback(cmd, "redis-url", o.redisURL, "REDIS_URL")
	o.databaseURL = envFallback(cmd, "database-url", o.databaseURL, "DATABASE_URL")
	o.amqpURL = envFallback(cmd, "amqp-url", o.amqpURL, "AMQP_URL")
	o.amqpExchange = envFallback(cmd, "amqp-exchange", o.amqpExchange, "AMQP_EXCHANGE")

	o.rapidAPIKey = envFallback(cmd, "rapidapi-key", o.rapidAPIKey, "RAPIDAPI_KEY")
	o.rapidAPIHost = envFallback(cmd, "rapidapi-host", o.rapidAPIHost, "RAPIDAPI_HOST")
	o.bookingBaseURL = envFallback(cmd, "booking-api-base-url", o.bookingBaseURL, "BOOKING_API_BASE_URL")
	o.stripeKey = envFallback(cmd, "stripe-key", o.stripeKey, "STRIPE_KEY", "STRIPE_SECRET_KEY")

	o.metricsAddr = envFallback(cmd, "metrics-addr", o.metricsAddr, "METRICS_ADDR")

	var err error
	if !cmd.Flags().Changed("oauth-rate-limit") {
		if o.rateLimit, err = envFloat("OAUTH_RATE_LIMIT", o.rateLimit); err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("oauth-rate-burst") {
		if o.rateBurst, err = envInt("OAUTH_RATE_BURST", o.rateBurst); err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("oauth-trust-proxy") {
		if o.trustProxy, err = envBool("OAUTH_TRUST_PROXY", o.trustProxy); err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if o.metricsEnabled, err = envBool("METRICS_ENABLED", o.metricsEnabled); err != nil {
			return err
		}
	}
	return nil
}

// complete derives defaults and rejects unusable combinations
func (o *serveOptions) complete(logger *slog.Logger) error {
	if o.httpAddr == "" {
		return errors.New("http address must not be empty")
	}
	if o.baseURL == "" {
		o.baseURL = "http://" + localAddr(o.httpAddr)
		logger.Warn("No base URL configured, using auto-detected value; set --base-url or MCP_BASE_URL for deployed instances",
			"base_url", o.baseURL)
	}
	o.baseURL = strings.TrimRight(o.baseURL, "/")
	if o.widgetBaseURL == "" {
		o.widgetBaseURL = o.baseURL
	}
	o.googleOAuthBaseURL = strings.TrimRight(o.googleOAuthBaseURL, "/")

	if o.rateLimit < 0 {
		return fmt.Errorf("oauth rate limit must not be negative, got %v", o.rateLimit)
	}
	key, err := oauth.EncryptionKeyFromBase64(o.encryptionKey)
	if err != nil {
		return fmt.Errorf("invalid OAuth encryption key: %w", err)
	}
	o.encryptionKeyBytes = key
	if key != nil && o.redisURL == "" {
		logger.Warn("OAuth encryption key is only used with Redis; ignoring it")
	}
	if o.googleOAuthBaseURL != "" {
		logger.Warn("Google OAuth endpoints overridden", "base_url", o.googleOAuthBaseURL)
	}
	if o.googleClientID == "" || o.googleClientSecret == "" {
		logger.Warn("Google OAuth credentials are not configured; sign-in will fail until GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are set")
	}
	if o.rapidAPIKey == "" {
		logger.Warn("RAPIDAPI_KEY is not set; booking search tools will return errors")
	}
	return nil
}

// localAddr turns a listen address into one a browser can reach. An empty or
// unspecified host listens on every interface and is reached as localhost.
func localAddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || net.ParseIP(host).IsUnspecified() {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

func runServe(ctx context.Context, opts *serveOptions, logger *slog.Logger) error {
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during instrumentation shutdown", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	st, err := openStore(ctx, opts.databaseURL, logger)
	if err != nil {
		return err
	}
	if metrics != nil {
		st = store.WithMetrics(st, metrics)
	}

	publisher, err := openPublisher(opts.amqpURL, opts.amqpExchange, logger)
	if err != nil {
		_ = st.Close()
		return err
	}

	bookingConfig := booking.Config{
		APIKey:  opts.rapidAPIKey,
		Host:    opts.rapidAPIHost,
		BaseURL: opts.bookingBaseURL,
	}
	if metrics != nil {
		bookingConfig.Metrics = metrics
	}

	// The server context owns the store and the publisher from here on
	serverContext := server.NewServerContext(ctx, st, booking.NewClient(bookingConfig), publisher, logger)
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("Error during server context shutdown", logging.Err(err))
		}
	}()
	if metrics != nil {
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging))
	}

	oauthConfig := &oauth.Config{
		BaseURL: opts.baseURL,
		GoogleAuth: oauth.GoogleAuthConfig{
			ClientID:     opts.googleClientID,
			ClientSecret: opts.googleClientSecret,
			Endpoint:     google.Endpoint(opts.googleOAuthBaseURL),
		},
		RateLimit: oauth.RateLimitConfig{
			Rate:       opts.rateLimit,
			Burst:      opts.rateBurst,
			TrustProxy: opts.trustProxy,
		},
		OnSignIn: newSignInRecorder(st, publisher, logger).Hook,
		Logger:   logger,
	}
	if opts.stateKey != "" {
		oauthConfig.StateKey = []byte(opts.stateKey)
	}
	if metrics != nil {
		oauthConfig.Metrics = metrics
	}

	if opts.redisURL != "" {
		redisClient, err := openRedis(ctx, opts.redisURL)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()

		cipher, err := oauth.NewPayloadCipher(opts.encryptionKeyBytes)
		if err != nil {
			return err
		}
		oauthConfig.Clients = oauth.NewRedisClientStore(redisClient)
		oauthConfig.Codes = oauth.NewRedisCodeVault(redisClient, cipher)
		logger.Info("Using Redis for OAuth clients and codes", "encrypted", cipher.Enabled())
	} else {
		logger.Warn("REDIS_URL not set; OAuth clients and codes are kept in memory and lost on restart")
	}

	validator, err := google.NewTokenInfoValidator(ctx, google.TokenInfoConfig{
		Audience: opts.googleClientID,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create token validator: %w", err)
	}
	oauthConfig.TokenValidator = validator

	oauthHandler, err := oauth.NewHandler(oauthConfig)
	if err != nil {
		return fmt.Errorf("failed to create OAuth handler: %w", err)
	}
	defer oauthHandler.Close()
	if metrics != nil {
		if err := metrics.RegisterActiveCodesGauge(oauthHandler.ActiveCodeCounter()); err != nil {
			logger.Warn("Failed to register active codes gauge", logging.Err(err))
		}
	}

	paymentsConfig := payments.Config{
		BaseURL: opts.baseURL,
		Store:   st,
		Events:  publisher,
		Logger:  logger,
	}
	if opts.stripeKey != "" {
		paymentsConfig.Sessions = payments.NewStripeSessions(opts.stripeKey)
	} else {
		logger.Warn("STRIPE_KEY not set; /api/checkout will answer 500")
	}
	paymentsHandler, err := payments.NewHandler(paymentsConfig)
	if err != nil {
		return fmt.Errorf("failed to create payments handler: %w", err)
	}

	mcpSrv := newMCPServer()
	if err := booking_tools.RegisterBookingTools(mcpSrv, serverContext, booking_tools.Config{
		WidgetBaseURL: opts.widgetBaseURL,
	}); err != nil {
		return fmt.Errorf("failed to register booking tools: %w", err)
	}
	if err := resources.RegisterUserResources(mcpSrv, serverContext); err != nil {
		return fmt.Errorf("failed to register user resources: %w", err)
	}

	health := server.NewHealthChecker(serverContext)
	httpServer, err := server.NewOAuthHTTPServer(server.OAuthHTTPServerConfig{
		Addr:      opts.httpAddr,
		MCPServer: mcpSrv,
		OAuth:     oauthHandler,
		Payments:  paymentsHandler,
		Health:    health,
		Metrics:   metrics,
		Tracing:   provider.Enabled() && instrConfig.TracingExporter != instrumentation.ExporterNone,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if opts.metricsEnabled && provider.Enabled() && provider.PrometheusHandler() != nil {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
	}

	logger.Info("Starting tripbooker",
		"version", version,
		"addr", opts.httpAddr,
		"base_url", opts.baseURL,
		"mcp_endpoint", opts.baseURL+oauth.PathMCP)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	if metricsServer != nil {
		g.Go(metricsServer.Start)
	}
	g.Go(func() error {
		<-gctx.Done()
		health.SetReady(false)
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()

		var errs []error
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// newMCPServer creates the MCP server the booking tools register on
func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("tripbooker", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)
}

// openStore connects to PostgreSQL when dsn is set, otherwise returns the
// in-memory store
func openStore(ctx context.Context, dsn string, logger *slog.Logger) (store.Store, error) {
	if dsn == "" {
		logger.Warn("DATABASE_URL not set; users and payments are kept in memory")
		return store.NewMemoryStore(), nil
	}
	st, err := store.NewPostgresStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return st, nil
}

// openPublisher connects to RabbitMQ when url is set
func openPublisher(url, exchange string, logger *slog.Logger) (events.Publisher, error) {
	if url == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewAMQPPublisher(url, exchange, logging.WithComponent(logger, "events"))
	if err != nil {
		return nil, err
	}
	return publisher, nil
}

// openRedis parses url and checks the connection
func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q (expected true/false): %w", key, v, err)
	}
	return b, nil
}
