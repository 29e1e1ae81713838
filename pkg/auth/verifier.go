package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/sjlangley/social-golf-spa/pkg/apierrors"
	"github.com/sjlangley/social-golf-spa/pkg/observability"
)

// Verifier exchanges an opaque bearer credential for a verified Identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// OIDCVerifier verifies bearer tokens as OIDC ID tokens against a
// single identity provider. The underlying go-oidc verifier caches the
// provider's signing keys, so one OIDCVerifier should be created per
// process and shared; it is safe for concurrent use.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	logger   *observability.Logger
}

// VerifierConfig configures the identity provider connection.
type VerifierConfig struct {
	// IssuerURL is the provider's issuer, used for OIDC discovery.
	IssuerURL string
	// ClientID is the expected audience of verified tokens.
	ClientID string
	// HTTPClient overrides the discovery/JWKS client. Optional.
	HTTPClient *http.Client
}

// NewOIDCVerifier discovers the identity provider and builds a token
// verifier bound to the configured audience. The discovery call hits
// the network, so the caller's ctx bounds it.
func NewOIDCVerifier(ctx context.Context, cfg VerifierConfig, logger *observability.Logger) (*OIDCVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}

	if cfg.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, cfg.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return &OIDCVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		logger:   logger,
	}, nil
}

// idClaims are the claims this service reads from a verified token.
type idClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Verify checks the token's signature, issuer, audience and expiry,
// then builds an Identity from its claims. All provider rejections map
// to the same generic Unauthorized error; the provider's diagnostic
// goes to logs only.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		v.logger.WithError(err).Info("Bearer token verification failed")
		return nil, apierrors.Unauthorized("invalid token", err)
	}

	if idToken.Subject == "" {
		v.logger.Warn("Verified token is missing a subject claim")
		return nil, apierrors.Unauthorized("invalid token payload", nil)
	}

	var claims idClaims
	if err := idToken.Claims(&claims); err != nil {
		v.logger.WithError(err).Warn("Failed to parse verified token claims")
		return nil, apierrors.Unauthorized("invalid token payload", err)
	}

	return &Identity{
		UserID: idToken.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
	}, nil
}
