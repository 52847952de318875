package queue

import "github.com/fluxgate/eventpipe/internal/config"

// DefaultBrokerURL is used when BROKER_URL is unset.
const DefaultBrokerURL = "redis://broker:6379/0"

// LoadBrokerURL reads BROKER_URL from the environment, falling back to
// DefaultBrokerURL. The name is fixed by the external interface contract and
// is not prefixed like this service's other configuration.
func LoadBrokerURL() string {
	return config.GetEnvStr("BROKER_URL", DefaultBrokerURL)
}
