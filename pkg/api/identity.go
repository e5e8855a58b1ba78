package api

import (
	"context"
	"net/http"

	"github.com/skillswap/swapclient/pkg/identity"
)

// IdentityClient implements the identity collaborator over REST.
type IdentityClient struct {
	*Client
}

// NewIdentityClient creates an identity collaborator on the shared REST client.
func NewIdentityClient(client *Client) *IdentityClient {
	return &IdentityClient{Client: client}
}

// CurrentIdentity fetches the canonical identity for the given token.
// Callable immediately after Login/Register and reflects the newly
// established session.
func (c *IdentityClient) CurrentIdentity(ctx context.Context, token string) (*identity.User, error) {
	var user identity.User
	if _, err := c.doJSON(ctx, http.MethodGet, c.cfg.UsersPath+"/me", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile applies a profile edit and returns the refreshed identity.
func (c *IdentityClient) UpdateProfile(ctx context.Context, token string, update identity.ProfileUpdate) (*identity.User, error) {
	var user identity.User
	if _, err := c.doJSON(ctx, http.MethodPut, c.cfg.UsersPath+"/me", token, update, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
