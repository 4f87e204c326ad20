package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pennywise/pennywise/backend/go-services/internal/models"
	"golang.org/x/oauth2"
)

const DiscordAPIBase = "https://discord.com/api"

// DiscordVerifier turns a Discord authorization code into an identity:
// the code is exchanged server side with the client secret, then the access
// token is used once against /users/@me.
type DiscordVerifier struct {
	oauth   *oauth2.Config
	apiBase string
	client  *http.Client
}

func NewDiscordVerifier(clientID, clientSecret, redirectURI, apiBase string, client *http.Client) *DiscordVerifier {
	if apiBase == "" {
		apiBase = DiscordAPIBase
	}
	apiBase = strings.TrimRight(apiBase, "/")
	if client == nil {
		client = NewHTTPClient()
	}
	return &DiscordVerifier{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   apiBase + "/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: []string{"identify", "email"},
		},
		apiBase: apiBase,
		client:  client,
	}
}

func (d *DiscordVerifier) Provider() models.Provider { return models.ProviderDiscord }

type discordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Email      string `json:"email"`
}

func (d *DiscordVerifier) Verify(ctx context.Context, code string) (*ExternalIdentity, error) {
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: empty authorization code", ErrVerificationFailed)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.client)

	tok, err := d.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: discord token exchange: %v", ErrVerificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	resp, err := d.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: discord user fetch: %v", ErrVerificationFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: discord user fetch returned %d", ErrVerificationFailed, resp.StatusCode)
	}

	var u discordUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&u); err != nil {
		return nil, fmt.Errorf("%w: discord user decode: %v", ErrVerificationFailed, err)
	}
	if u.ID == "" || u.Email == "" {
		return nil, ErrMissingClaims
	}

	name := u.GlobalName
	if name == "" {
		name = u.Username
	}
	return &ExternalIdentity{
		Provider:    models.ProviderDiscord,
		ExternalID:  u.ID,
		Email:       models.NormalizeEmail(u.Email),
		DisplayName: name,
	}, nil
}
