package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Promise30/promise-auth/internal/auth"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const (
	providerName        = "github"
	providerDisplayName = "GitHub"

	userEndpoint   = "https://api.github.com/user"
	emailsEndpoint = "https://api.github.com/user/emails"
)

// Provider implements OAuth authentication against GitHub. GitHub is plain
// OAuth (no OIDC id_token), so the identity is assembled from the REST
// profile and emails endpoints.
type Provider struct {
	oauthConfig *oauth2.Config
}

func New(clientID, clientSecret, redirectURL string) (*Provider, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("github oauth config missing required fields")
	}

	return &Provider{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     githuboauth.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
	}, nil
}

// Name returns the provider identifier used by the registry.
func (p *Provider) Name() string {
	return providerName
}

func (p *Provider) DisplayName() string {
	return providerDisplayName
}

// AuthCodeURL builds the OAuth authorization URL with PKCE parameters.
func (p *Provider) AuthCodeURL(state string, codeChallenge string) string {
	return p.oauthConfig.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

func (p *Provider) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {

	token, err := p.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("github token exchange failed: %w", err)
	}

	client := p.oauthConfig.Client(ctx, token)

	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, userEndpoint, &profile); err != nil {
		return nil, fmt.Errorf("github profile fetch failed: %w", err)
	}
	if profile.ID == 0 {
		return nil, errors.New("github profile missing id")
	}

	key := strconv.FormatInt(profile.ID, 10)
	claims := []auth.Claim{
		{Type: auth.ClaimTypeSubject, Value: key},
		{Type: "login", Value: profile.Login},
		{Type: auth.ClaimTypeName, Value: profile.Name},
	}

	if profile.Email != "" {
		claims = append(claims, auth.Claim{Type: auth.ClaimTypeEmail, Value: profile.Email})
	} else if email := p.primaryEmail(ctx, client); email != "" {
		// Private profile emails come back under a provider-specific claim
		// type; the reconciler's claim scan still finds it.
		claims = append(claims, auth.Claim{Type: "urn:github:primary_email", Value: email})
	}

	return &auth.Identity{
		Provider:    providerName,
		ProviderKey: key,
		DisplayName: providerDisplayName,
		Claims:      claims,
	}, nil
}

// primaryEmail asks the emails endpoint for the primary verified address.
// Failures degrade to "no candidate email" rather than failing the login.
func (p *Provider) primaryEmail(ctx context.Context, client *http.Client) string {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, emailsEndpoint, &emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
