// Package matrix provides a Synapse testcontainer for end-to-end migration
// tests.
package matrix

// SynapseTestConfig contains configuration for the Synapse test setup
type SynapseTestConfig struct {
	ServerName   string
	ASToken      string
	HSToken      string
	SharedSecret string

	// AdminUsername is registered as a server admin once Synapse is up.
	AdminUsername string
	AdminPassword string
}

// DefaultSynapseConfig returns a default test configuration
func DefaultSynapseConfig() SynapseTestConfig {
	return SynapseTestConfig{
		ServerName:    "test.matrix.local",
		ASToken:       "test_as_token_12345",
		HSToken:       "test_hs_token_67890",
		SharedSecret:  "test_secret_12345",
		AdminUsername: "admin",
		AdminPassword: "admin_password_12345",
	}
}
