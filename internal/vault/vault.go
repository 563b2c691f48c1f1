package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/instrumentation"
	"github.com/perfpulse/meetsched/internal/logging"
)

// RefreshWindow is the safety margin before token expiry within which a
// refresh is performed before handing the token out.
const RefreshWindow = 5 * time.Minute

// DefaultHTTPTimeout bounds each outbound token-endpoint call.
const DefaultHTTPTimeout = 15 * time.Second

const maxRefreshAttempts = 3

// ZoomEndpoint is Zoom's OAuth 2.0 endpoint. Zoom authenticates the token
// request with HTTP basic auth (client id/secret in the header).
var ZoomEndpoint = oauth2.Endpoint{
	AuthURL:   "https://zoom.us/oauth/authorize",
	TokenURL:  "https://zoom.us/oauth/token",
	AuthStyle: oauth2.AuthStyleInHeader,
}

// GoogleScopes are the scopes requested during the Google consent flow.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/userinfo.email",
}

// AppConfig is the OAuth application registration for one provider.
// AuthURL/TokenURL override the provider defaults and exist for tests.
type AppConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
}

// Config configures the vault.
type Config struct {
	Google      AppConfig
	Zoom        AppConfig
	HTTPTimeout time.Duration
}

// Vault reads, refreshes and writes OAuth credentials through a
// domain.CredentialStore.
type Vault struct {
	store   domain.CredentialStore
	config  Config
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	group   singleflight.Group

	// now is replaceable in tests
	now func() time.Time
}

// New creates a Vault. logger and metrics may be nil.
func New(store domain.CredentialStore, config Config, logger *slog.Logger, metrics *instrumentation.Metrics) *Vault {
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = DefaultHTTPTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Vault{
		store:   store,
		config:  config,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// oauthConfig builds a fresh OAuth2 config for the provider. A new value is
// returned on every call so no shared client state is ever mutated across
// users.
func (v *Vault) oauthConfig(provider domain.Provider) (*oauth2.Config, error) {
	var app AppConfig
	var endpoint oauth2.Endpoint
	var scopes []string

	switch provider {
	case domain.ProviderGoogle:
		app = v.config.Google
		endpoint = googleoauth.Endpoint
		scopes = GoogleScopes
	case domain.ProviderZoom:
		app = v.config.Zoom
		endpoint = ZoomEndpoint
	default:
		return nil, &domain.ValidationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", provider)}
	}

	if app.AuthURL != "" {
		endpoint.AuthURL = app.AuthURL
	}
	if app.TokenURL != "" {
		endpoint.TokenURL = app.TokenURL
	}

	return &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		RedirectURL:  app.RedirectURL,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}, nil
}

// AuthCodeURL returns the provider's consent URL for the given CSRF state.
func (v *Vault) AuthCodeURL(provider domain.Provider, state string) (string, error) {
	conf, err := v.oauthConfig(provider)
	if err != nil {
		return "", err
	}
	if provider == domain.ProviderGoogle {
		// Refresh tokens are only issued for offline access, and only on a
		// consenting grant.
		return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
	}
	return conf.AuthCodeURL(state), nil
}

// Exchange swaps an authorization code for tokens and persists them for the
// user. It replaces any previously stored credential for the provider.
func (v *Vault) Exchange(ctx context.Context, userID string, provider domain.Provider, code string) error {
	conf, err := v.oauthConfig(provider)
	if err != nil {
		return err
	}

	token, err := conf.Exchange(v.httpContext(ctx), code)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code with %s: %w", provider, err)
	}

	cred := &domain.OAuthCredential{
		ID:           uuid.NewString(),
		UserID:       userID,
		Provider:     provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if err := v.store.UpsertCredential(ctx, cred); err != nil {
		return fmt.Errorf("failed to persist %s credential: %w", provider, err)
	}

	v.logger.Info("stored provider credential",
		logging.Operation("oauth_exchange"),
		logging.ProviderAttr(string(provider)),
		logging.UserHash(userID),
	)
	return nil
}

// GetValidToken returns an access token for the user and provider, refreshing
// it first when it expires within RefreshWindow. It fails with
// domain.AuthRequiredError when no refresh token is on file or the stored one
// was permanently rejected by the provider.
func (v *Vault) GetValidToken(ctx context.Context, userID string, provider domain.Provider) (string, error) {
	cred, err := v.store.GetCredential(ctx, userID, provider)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			return "", &domain.AuthRequiredError{UserID: userID, Provider: provider}
		}
		return "", fmt.Errorf("failed to load %s credential: %w", provider, err)
	}
	if cred == nil || cred.RefreshToken == "" {
		return "", &domain.AuthRequiredError{UserID: userID, Provider: provider}
	}

	if cred.ExpiresAt.After(v.now().Add(RefreshWindow)) {
		return cred.AccessToken, nil
	}

	// Collapse concurrent refreshes for the same user+provider so two
	// requests cannot race and overwrite each other's new tokens.
	key := userID + "/" + string(provider)
	result, err, _ := v.group.Do(key, func() (interface{}, error) {
		return v.refresh(ctx, userID, provider, cred.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// errRefreshRejected marks a refresh the provider rejected outright, as
// opposed to a transient transport or server failure.
var errRefreshRejected = errors.New("refresh token rejected by provider")

// refresh performs one provider token refresh with bounded retry and persists
// the result. Retries only cover transient failures; a provider-signaled
// rejection (revoked or invalid refresh token) is permanent.
func (v *Vault) refresh(ctx context.Context, userID string, provider domain.Provider, refreshToken string) (string, error) {
	conf, err := v.oauthConfig(provider)
	if err != nil {
		return "", err
	}

	start := v.now()
	operation := func() (*oauth2.Token, error) {
		source := conf.TokenSource(v.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
		token, err := source.Token()
		if err != nil {
			var retrieve *oauth2.RetrieveError
			if errors.As(err, &retrieve) && retrieve.Response != nil &&
				(retrieve.Response.StatusCode == http.StatusBadRequest || retrieve.Response.StatusCode == http.StatusUnauthorized) {
				return nil, backoff.Permanent(fmt.Errorf("%w: %v", errRefreshRejected, err))
			}
			return nil, err
		}
		return token, nil
	}

	token, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxRefreshAttempts),
	)
	if err != nil {
		if errors.Is(err, errRefreshRejected) {
			// The grant is gone; keeping stale tokens around would just keep
			// failing, so clear everything and force a new consent flow.
			if clearErr := v.store.ClearCredential(ctx, userID, provider); clearErr != nil {
				v.logger.Error("failed to clear rejected credential",
					logging.ProviderAttr(string(provider)),
					logging.UserHash(userID),
					logging.Err(clearErr),
				)
			}
			v.metrics.RecordTokenRefresh(ctx, string(provider), instrumentation.RefreshResultRevoked)
			v.logger.Warn("refresh token permanently rejected, credential cleared",
				logging.Operation("token_refresh"),
				logging.ProviderAttr(string(provider)),
				logging.UserHash(userID),
			)
			return "", &domain.AuthRequiredError{UserID: userID, Provider: provider}
		}
		v.metrics.RecordTokenRefresh(ctx, string(provider), instrumentation.RefreshResultFailure)
		return "", &domain.ProviderError{
			Provider: provider,
			Message:  "token refresh failed",
			Err:      err,
		}
	}

	// Providers may rotate the refresh token; keep the stored one when they
	// don't.
	if err := v.store.UpdateTokens(ctx, userID, provider, token.AccessToken, token.RefreshToken, token.Expiry); err != nil {
		return "", fmt.Errorf("failed to persist refreshed %s token: %w", provider, err)
	}

	v.metrics.RecordTokenRefresh(ctx, string(provider), instrumentation.RefreshResultSuccess)
	v.metrics.RecordProviderOperation(ctx, string(provider), "refresh_token", instrumentation.StatusSuccess, v.now().Sub(start))
	v.logger.Debug("refreshed provider token",
		logging.Operation("token_refresh"),
		logging.ProviderAttr(string(provider)),
		logging.UserHash(userID),
	)
	return token.AccessToken, nil
}

// httpContext returns a context whose oauth2 transport uses a fresh HTTP
// client with the configured timeout.
func (v *Vault) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: v.config.HTTPTimeout})
}
