package matrix

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // Synapse shared-secret registration is defined over HMAC-SHA1
	"encoding/hex"
	"net/http"

	"github.com/pkg/errors"
)

const synapseAdminPrefix = "/_synapse/admin/v1/"

// Registration describes an account created through the Synapse shared-secret
// registration endpoint.
type Registration struct {
	Username    string
	DisplayName string
	Password    string
	Admin       bool
}

// RegisterResponse is returned by a successful registration.
type RegisterResponse struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	HomeServer  string `json:"home_server"`
	DeviceID    string `json:"device_id"`
}

type registerRequest struct {
	Nonce       string `json:"nonce"`
	Username    string `json:"username"`
	DisplayName string `json:"displayname,omitempty"`
	Password    string `json:"password"`
	Admin       bool   `json:"admin"`
	Mac         string `json:"mac"`
}

// RegistrationMAC computes the hex HMAC-SHA1 Synapse expects over
// nonce, username, password and the admin flag, NUL separated.
func RegistrationMAC(sharedSecret, nonce string, reg Registration) string {
	mac := hmac.New(sha1.New, []byte(sharedSecret))
	mac.Write([]byte(nonce))
	mac.Write([]byte{0})
	mac.Write([]byte(reg.Username))
	mac.Write([]byte{0})
	mac.Write([]byte(reg.Password))
	mac.Write([]byte{0})
	if reg.Admin {
		mac.Write([]byte("admin"))
	} else {
		mac.Write([]byte("notadmin"))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// RegistrationNonce fetches a single-use registration nonce.
func (c *Client) RegistrationNonce(ctx context.Context) (string, error) {
	var response struct {
		Nonce string `json:"nonce"`
	}
	err := c.do(ctx, request{method: http.MethodGet, path: synapseAdminPrefix + "register"}, &response)
	if err != nil {
		return "", errors.Wrap(err, "failed to get registration nonce")
	}
	if response.Nonce == "" {
		return "", errors.New("registration nonce response is empty")
	}
	return response.Nonce, nil
}

// RegisterUser creates an account with the shared secret and returns its
// user id and access token. An existing localpart yields an error matched by
// IsUserInUse.
func (c *Client) RegisterUser(ctx context.Context, sharedSecret string, reg Registration) (*RegisterResponse, error) {
	if sharedSecret == "" {
		return nil, errors.New("registration shared secret not configured")
	}

	nonce, err := c.RegistrationNonce(ctx)
	if err != nil {
		return nil, err
	}

	body := registerRequest{
		Nonce:       nonce,
		Username:    reg.Username,
		DisplayName: reg.DisplayName,
		Password:    reg.Password,
		Admin:       reg.Admin,
		Mac:         RegistrationMAC(sharedSecret, nonce, reg),
	}

	var response RegisterResponse
	err = c.do(ctx, request{
		method:  http.MethodPost,
		path:    synapseAdminPrefix + "register",
		body:    body,
		limiter: c.limits.registrations,
	}, &response)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to register user %s", reg.Username)
	}
	return &response, nil
}

// RoomCreator returns the creator of roomID from the admin room details API.
// An empty string means the homeserver did not report one.
func (c *Client) RoomCreator(ctx context.Context, cred Credential, roomID string) (string, error) {
	var response struct {
		RoomID  string `json:"room_id"`
		Creator string `json:"creator"`
	}
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   synapseAdminPrefix + "rooms/" + escapeSegments([]string{roomID}),
		cred:   cred,
	}, &response)
	if err != nil {
		return "", errors.Wrapf(err, "failed to get details of room %s", roomID)
	}
	return response.Creator, nil
}
