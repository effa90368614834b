// Package account exposes the merchant account's fraud-services
// configuration. The configuration is static per deployment; a connected
// account API could replace this without touching the application layer.
package account

import "context"

type Static struct {
	fraudServices map[string]map[string]string
}

// NewStatic builds an account service enabling the named fraud integrations.
func NewStatic(services []string) *Static {
	cfg := make(map[string]map[string]string, len(services))
	for _, s := range services {
		cfg[s] = map[string]string{}
	}
	return &Static{fraudServices: cfg}
}

func (s *Static) FraudServicesConfig(ctx context.Context) (map[string]map[string]string, error) {
	return s.fraudServices, nil
}
