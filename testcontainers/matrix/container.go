package matrix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	mclient "github.com/mattermost/rocketchat-matrix-migrator/matrix"
)

const synapsePort = 18008

// SynapseContainer wraps a testcontainer running Synapse
type SynapseContainer struct {
	Container    testcontainers.Container
	ServerURL    string
	ServerDomain string
	ASToken      string
	HSToken      string
	SharedSecret string

	// Client talks to the container without client side rate limiting.
	Client *mclient.Client
	// Admin is the credential of the server admin registered at startup.
	Admin mclient.Credential
}

// StartSynapseContainer starts a Synapse container and registers the admin
// account.
func StartSynapseContainer(t *testing.T, config SynapseTestConfig) *SynapseContainer {
	ctx := context.Background()

	// Host networking avoids VPN routing problems with bridge networks
	req := testcontainers.ContainerRequest{
		Image:       "matrixdotorg/synapse:latest",
		NetworkMode: "host",
		Env: map[string]string{
			"SYNAPSE_SERVER_NAME":  config.ServerName,
			"SYNAPSE_REPORT_STATS": "no",
			"SYNAPSE_NO_TLS":       "true",
		},
		Files: []testcontainers.ContainerFile{
			{
				ContainerFilePath: "/data/homeserver.yaml",
				FileMode:          0644,
				Reader:            strings.NewReader(generateSynapseConfig(config)),
			},
			{
				ContainerFilePath: "/data/appservice.yaml",
				FileMode:          0644,
				Reader:            strings.NewReader(generateAppServiceConfig(config)),
			},
			{
				ContainerFilePath: "/data/log.config",
				FileMode:          0644,
				Reader:            strings.NewReader(generateLogConfig()),
			},
		},
		Entrypoint: []string{
			"sh", "-c",
			"python -m synapse.app.homeserver --config-path=/data/homeserver.yaml --generate-keys && python -m synapse.app.homeserver --config-path=/data/homeserver.yaml",
		},
		WaitingFor: wait.ForLog(fmt.Sprintf("SynapseSite starting on %d", synapsePort)).WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	serverURL := fmt.Sprintf("http://localhost:%d", synapsePort)
	t.Logf("Using host networking: %s", serverURL)

	sc := &SynapseContainer{
		Container:    container,
		ServerURL:    serverURL,
		ServerDomain: config.ServerName,
		ASToken:      config.ASToken,
		HSToken:      config.HSToken,
		SharedSecret: config.SharedSecret,
		Client:       mclient.NewClient(serverURL, nil, mclient.DisabledRateLimitConfig()),
	}

	sc.waitForSynapseReady(t)

	admin, err := sc.Client.RegisterUser(ctx, config.SharedSecret, mclient.Registration{
		Username:    config.AdminUsername,
		DisplayName: "Administrator",
		Password:    config.AdminPassword,
		Admin:       true,
	})
	require.NoError(t, err)
	sc.Admin = mclient.Credential{UserID: admin.UserID, AccessToken: admin.AccessToken}

	return sc
}

// Cleanup terminates the Synapse container
func (sc *SynapseContainer) Cleanup(t *testing.T) {
	err := sc.Container.Terminate(context.Background())
	require.NoError(t, err)
}

// waitForSynapseReady waits for the client API to answer
func (sc *SynapseContainer) waitForSynapseReady(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Logf("Synapse connectivity check timed out, proceeding since the container logged startup")
			return
		default:
			if sc.isSynapseReady() {
				t.Logf("Synapse is ready and responding")
				return
			}
			time.Sleep(1 * time.Second)
		}
	}
}

func (sc *SynapseContainer) isSynapseReady() bool {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}
	resp, err := client.Get(sc.ServerURL + "/_matrix/client/versions")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// RoomEvents returns up to the latest 100 events of a room, newest first, as
// seen by the admin. The admin must be able to read the room history.
func (sc *SynapseContainer) RoomEvents(t *testing.T, roomID string) []map[string]any {
	query := url.Values{"dir": {"b"}, "limit": {"100"}}
	result, err := sc.makeRequest(http.MethodGet, "/_synapse/admin/v1/rooms/"+url.PathEscape(roomID)+"/messages?"+query.Encode(), sc.Admin.AccessToken, nil)
	require.NoError(t, err)

	response := result.(map[string]any)
	chunk, _ := response["chunk"].([]any)

	events := make([]map[string]any, 0, len(chunk))
	for _, event := range chunk {
		events = append(events, event.(map[string]any))
	}
	return events
}

// RoomMembers returns the joined members of a room through the admin API.
func (sc *SynapseContainer) RoomMembers(t *testing.T, roomID string) []string {
	result, err := sc.makeRequest(http.MethodGet, "/_synapse/admin/v1/rooms/"+url.PathEscape(roomID)+"/members", sc.Admin.AccessToken, nil)
	require.NoError(t, err)

	response := result.(map[string]any)
	raw, _ := response["members"].([]any)
	members := make([]string, 0, len(raw))
	for _, member := range raw {
		members = append(members, member.(string))
	}
	return members
}

// PinnedEvents returns the pinned event ids of a room, read with token.
func (sc *SynapseContainer) PinnedEvents(t *testing.T, token, roomID string) []string {
	result, err := sc.makeRequest(http.MethodGet, "/_matrix/client/v3/rooms/"+url.PathEscape(roomID)+"/state/m.room.pinned_events/", token, nil)
	require.NoError(t, err)

	response := result.(map[string]any)
	raw, _ := response["pinned"].([]any)
	pinned := make([]string, 0, len(raw))
	for _, id := range raw {
		pinned = append(pinned, id.(string))
	}
	return pinned
}

// makeRequest makes a request to Synapse, authenticated when token is set
func (sc *SynapseContainer) makeRequest(method, endpoint, token string, data any) (any, error) {
	var body io.Reader

	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(string(jsonData))
	}

	req, err := http.NewRequest(method, sc.ServerURL+endpoint, body)
	if err != nil {
		return nil, err
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("synapse API error: %d %s", resp.StatusCode, string(responseBody))
	}

	if len(responseBody) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// generateSynapseConfig generates a Synapse configuration with shared secret
// registration and relaxed rate limits
func generateSynapseConfig(config SynapseTestConfig) string {
	return fmt.Sprintf(`
server_name: "%[1]s"
pid_file: /tmp/homeserver.pid

listeners:
  - port: %[2]d
    tls: false
    type: http
    x_forwarded: true
    bind_addresses: ['0.0.0.0']
    resources:
      - names: [client, federation]
        compress: false

database:
  name: sqlite3
  args:
    database: ":memory:"

log_config: "/data/log.config"

media_store_path: /tmp/media_store
registration_shared_secret: "%[3]s"
report_stats: false
macaroon_secret_key: "test_macaroon_12345"
form_secret: "test_form_12345"

signing_key_path: "/tmp/signing.key"

trusted_key_servers: []

app_service_config_files:
  - /data/appservice.yaml

user_directory:
  enabled: false

encryption_enabled_by_default_for_room_type: off

rc_message:
  per_second: 1000
  burst_count: 1000

rc_registration:
  per_second: 1000
  burst_count: 1000

rc_joins:
  local:
    per_second: 1000
    burst_count: 1000

rc_invites:
  per_room:
    per_second: 1000
    burst_count: 1000
  per_user:
    per_second: 1000
    burst_count: 1000

rc_login:
  address:
    per_second: 1000
    burst_count: 1000
  account:
    per_second: 1000
    burst_count: 1000
  failed_attempts:
    per_second: 1000
    burst_count: 1000
`, config.ServerName, synapsePort, config.SharedSecret)
}

// generateAppServiceConfig claims every local user non exclusively, so the
// migrator can send as any user with a preserved timestamp
func generateAppServiceConfig(config SynapseTestConfig) string {
	return fmt.Sprintf(`
id: rocketchat-migrator
url: null
as_token: "%s"
hs_token: "%s"
sender_localpart: _rocketchat_migrator

namespaces:
  users:
    - exclusive: false
      regex: "@.*:%s"
  aliases: []
  rooms: []

protocols: []
`, config.ASToken, config.HSToken, strings.ReplaceAll(config.ServerName, ".", `\\.`))
}

// generateLogConfig generates a simple logging configuration for Synapse
func generateLogConfig() string {
	return `version: 1
formatters:
  precise:
    format: '%(asctime)s - %(name)s - %(lineno)d - %(levelname)s - %(request)s - %(message)s'
handlers:
  console:
    class: logging.StreamHandler
    formatter: precise
    stream: ext://sys.stdout
root:
  level: INFO
  handlers: [console]
`
}
