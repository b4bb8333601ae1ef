package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-authgate/consentgate/internal/logger"
	"github.com/go-authgate/consentgate/internal/metrics"
	"github.com/go-authgate/consentgate/internal/models"
)

const responseTypeCode = "code"

// AuthorizeRequest holds the query parameters of an authorization request.
type AuthorizeRequest struct {
	ClientID     string
	ResponseType string
	RedirectURI  string
	Scope        string
	State        string
}

// ConsentRequest is the user's answer to a consent prompt.
type ConsentRequest struct {
	ClientID    string
	RedirectURI string
	State       string
	Scope       string
	Approved    bool
}

// AuthorizeResultKind tells the caller what to do next.
type AuthorizeResultKind string

const (
	ResultLoginRequired   AuthorizeResultKind = "login_required"
	ResultConsentRequired AuthorizeResultKind = "consent_required"
	ResultCodeIssued      AuthorizeResultKind = "code_issued"
)

// ConsentPrompt is what the frontend shows the user before they approve.
type ConsentPrompt struct {
	ClientID      string   `json:"clientId"`
	ServiceName   string   `json:"serviceName"`
	ServiceDomain string   `json:"serviceDomain"`
	Scope         []string `json:"scope"`
	ConsentURL    string   `json:"consentUrl"`
}

// IssuedCode is a fresh authorization code and where to send it.
type IssuedCode struct {
	Code        string `json:"code"`
	State       string `json:"state"`
	RedirectURL string `json:"redirectUrl"`
}

// AuthorizeResult is exactly one of: a login URL, a consent prompt, or a code.
type AuthorizeResult struct {
	Kind     AuthorizeResultKind
	LoginURL string
	Consent  *ConsentPrompt
	Code     *IssuedCode
}

// AuthorizationService drives the authorization request through login,
// consent and code issuance.
type AuthorizationService struct {
	clients     *ClientRegistry
	consents    *ConsentLedger
	tokens      *TokenService
	frontendURL string
	metrics     metrics.Recorder
}

func NewAuthorizationService(
	clients *ClientRegistry,
	consents *ConsentLedger,
	tokens *TokenService,
	frontendURL string,
	m metrics.Recorder,
) *AuthorizationService {
	return &AuthorizationService{
		clients:     clients,
		consents:    consents,
		tokens:      tokens,
		frontendURL: frontendURL,
		metrics:     m,
	}
}

// Authorize handles an authorization request for principal, which is nil
// when the caller has no session.
func (s *AuthorizationService) Authorize(
	ctx context.Context,
	principal *models.Principal,
	req AuthorizeRequest,
) (*AuthorizeResult, error) {
	result, err := s.authorize(ctx, principal, req)
	if err != nil {
		s.metrics.RecordAuthorizeOutcome(metrics.OutcomeError)
		return nil, err
	}
	s.metrics.RecordAuthorizeOutcome(string(result.Kind))
	return result, nil
}

func (s *AuthorizationService) authorize(
	ctx context.Context,
	principal *models.Principal,
	req AuthorizeRequest,
) (*AuthorizeResult, error) {
	// 1. Only the code flow is supported
	if req.ResponseType != responseTypeCode {
		return nil, fmt.Errorf("%w: response_type must be %q", ErrInvalidRequest, responseTypeCode)
	}

	// 2. Redirect URI before anything that would redirect
	if !s.clients.IsRedirectURIAllowed(ctx, req.ClientID, req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	// 3. No session: send the user to log in and come back
	if principal == nil || principal.User == nil {
		return &AuthorizeResult{
			Kind:     ResultLoginRequired,
			LoginURL: s.loginURL(req),
		}, nil
	}

	// 4. Resolve the client
	client, err := s.resolveClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.AllowedUserType.Permits(principal.User.Role) {
		return nil, fmt.Errorf(
			"%w: %s accounts cannot use this application",
			ErrForbidden, principal.User.Role,
		)
	}

	// 5. Requested scope within what the client declares
	requested, err := requestedScopes(req.Scope, client)
	if err != nil {
		return nil, err
	}

	// 6. Existing consent covering the request skips the prompt
	consent, err := s.consents.ActiveConsent(ctx, principal.User.ID, client.ClientID)
	switch {
	case err == nil && len(missingScopes(requested, models.ParseScopes(consent.Scope))) == 0:
		code, err := s.issue(ctx, principal.User, client, req.RedirectURI, req.State, requested)
		if err != nil {
			return nil, err
		}
		return &AuthorizeResult{Kind: ResultCodeIssued, Code: code}, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	// 7. Ask the user
	return &AuthorizeResult{
		Kind: ResultConsentRequired,
		Consent: &ConsentPrompt{
			ClientID:      client.ClientID,
			ServiceName:   client.ServiceName,
			ServiceDomain: client.ServiceDomain,
			Scope:         requested,
			ConsentURL:    s.frontendURL + "/oauth/consent?" + preservedQuery(req).Encode(),
		},
	}, nil
}

// Consent records the user's decision and, when approved, issues a code.
func (s *AuthorizationService) Consent(
	ctx context.Context,
	principal *models.Principal,
	req ConsentRequest,
) (*IssuedCode, error) {
	if principal == nil || principal.User == nil {
		return nil, ErrUnauthorized
	}
	if !s.clients.IsRedirectURIAllowed(ctx, req.ClientID, req.RedirectURI) {
		return nil, ErrInvalidRedirectURI
	}

	client, err := s.resolveClient(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	if !req.Approved {
		logger.From(ctx).Info("consent denied",
			logger.UserID(principal.User.ID), logger.ClientID(client.ClientID))
		return nil, fmt.Errorf("%w: the user declined the request", ErrAccessDenied)
	}

	requested, err := requestedScopes(req.Scope, client)
	if err != nil {
		return nil, err
	}
	if !client.AllowedUserType.Permits(principal.User.Role) {
		return nil, fmt.Errorf(
			"%w: %s accounts cannot use this application",
			ErrForbidden, principal.User.Role,
		)
	}

	if err := s.consents.UpsertConsent(
		ctx, principal.User.ID, client, models.JoinScopes(requested),
	); err != nil {
		return nil, err
	}

	return s.issue(ctx, principal.User, client, req.RedirectURI, req.State, requested)
}

func (s *AuthorizationService) issue(
	ctx context.Context,
	user *models.User,
	client *models.Client,
	redirectURI, state string,
	scopes []string,
) (*IssuedCode, error) {
	code, err := s.tokens.IssueAuthorizationCode(ctx, user, client, state, models.JoinScopes(scopes))
	if err != nil {
		return nil, err
	}
	redirectURL, err := appendCode(redirectURI, code, state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRedirectURI, err)
	}
	return &IssuedCode{Code: code, State: state, RedirectURL: redirectURL}, nil
}

func (s *AuthorizationService) resolveClient(ctx context.Context, clientID string) (*models.Client, error) {
	client, err := s.clients.LookupByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown client", ErrInvalidClient)
		}
		return nil, err
	}
	return client, nil
}

func (s *AuthorizationService) loginURL(req AuthorizeRequest) string {
	replay := "/oauth/consent?" + preservedQuery(req).Encode()
	return s.frontendURL + "/login?" + url.Values{"redirect": {replay}}.Encode()
}

// requestedScopes parses scope, defaulting to everything the client
// declares, and rejects entries the client does not declare.
func requestedScopes(scope string, client *models.Client) ([]string, error) {
	requested := models.ParseScopes(scope)
	if len(requested) == 0 {
		return client.Scopes(), nil
	}
	if offending := missingScopes(requested, client.Scopes()); len(offending) > 0 {
		return nil, invalidScope(offending)
	}
	return requested, nil
}

func preservedQuery(req AuthorizeRequest) url.Values {
	q := url.Values{}
	q.Set("client_id", req.ClientID)
	q.Set("response_type", req.ResponseType)
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("state", req.State)
	if req.Scope != "" {
		q.Set("scope", req.Scope)
	}
	return q
}

// appendCode adds code and state to the redirect URI, keeping any query it
// already has.
func appendCode(redirectURI, code, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
