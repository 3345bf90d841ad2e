package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// WellKnownResponse is the body of /.well-known/matrix/server.
type WellKnownResponse struct {
	Server string `json:"m.server"`
}

// ServerDiscovery works out the server name used in Matrix ids.
type ServerDiscovery struct {
	logger     Logger
	httpClient *http.Client
	scheme     string
}

// NewServerDiscovery creates a ServerDiscovery.
func NewServerDiscovery(logger Logger) *ServerDiscovery {
	if logger == nil {
		logger = nopLogger{}
	}
	return &ServerDiscovery{
		logger: logger,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		scheme: "https",
	}
}

// DiscoverServerName returns, in order of preference: the configured server
// name, the homeserver hostname when it serves a valid .well-known document,
// or the homeserver hostname as is.
func (sd *ServerDiscovery) DiscoverServerName(ctx context.Context, serverURL, configuredServerName string) (string, error) {
	if configuredServerName != "" {
		sd.logger.LogDebug("Using configured server name", "server_name", configuredServerName)
		return NormalizeServerName(configuredServerName), nil
	}

	hostname, err := ExtractServerDomain(serverURL)
	if err != nil {
		return "", err
	}

	wellKnownServerName, err := sd.tryWellKnownDiscovery(ctx, hostname)
	if err == nil && wellKnownServerName != "" {
		sd.logger.LogDebug("Discovered server name via .well-known", "hostname", hostname, "server_name", wellKnownServerName)
		return wellKnownServerName, nil
	}
	if err != nil {
		sd.logger.LogDebug("No usable .well-known, using hostname", "hostname", hostname, "error", err.Error())
	}

	return hostname, nil
}

// tryWellKnownDiscovery confirms hostname delegates to a homeserver. The
// server name for ids stays the queried hostname; m.server only names where
// the homeserver API lives.
func (sd *ServerDiscovery) tryWellKnownDiscovery(ctx context.Context, hostname string) (string, error) {
	wellKnownURL := fmt.Sprintf("%s://%s/.well-known/matrix/server", sd.scheme, hostname)
	sd.logger.LogDebug("Attempting .well-known server discovery", "url", wellKnownURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnownURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create .well-known request")
	}

	resp, err := sd.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to fetch .well-known")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf(".well-known returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024))
	if err != nil {
		return "", errors.Wrap(err, "failed to read .well-known response")
	}

	var wellKnown WellKnownResponse
	if err := json.Unmarshal(body, &wellKnown); err != nil {
		return "", errors.Wrap(err, "failed to parse .well-known JSON")
	}
	if wellKnown.Server == "" {
		return "", errors.New(".well-known response missing m.server field")
	}

	return NormalizeServerName(hostname), nil
}

// ExtractServerDomain returns the hostname of a homeserver URL.
func ExtractServerDomain(serverURL string) (string, error) {
	if serverURL == "" {
		return "", errors.New("server URL not configured")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse server URL")
	}

	hostname := parsedURL.Hostname()
	if hostname == "" {
		return "", errors.New("could not extract hostname from server URL")
	}
	return hostname, nil
}

// NormalizeServerName strips scheme, port and trailing slash.
func NormalizeServerName(serverName string) string {
	serverName = strings.TrimPrefix(serverName, "https://")
	serverName = strings.TrimPrefix(serverName, "http://")
	serverName = strings.TrimSuffix(serverName, "/")

	if idx := strings.Index(serverName, ":"); idx != -1 {
		serverName = serverName[:idx]
	}
	return serverName
}

// UserID builds a fully qualified Matrix user id.
func UserID(localpart, serverName string) string {
	return "@" + strings.TrimPrefix(localpart, "@") + ":" + serverName
}
