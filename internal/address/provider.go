package address

import (
	"log/slog"
	"strings"

	"github.com/JonMunkholm/shipbatch/internal/config"
)

// New builds the validation chain selected by cfg.Provider.
//
//	usps   -> USPS, heuristic, basic
//	google -> Google, heuristic, basic
//	mock   -> heuristic, basic
//
// Unknown provider names fall back to mock.
func New(cfg config.AddressConfig) *Chain {
	var external Validator
	switch strings.ToLower(cfg.Provider) {
	case "usps":
		external = NewUSPS(cfg.USPSUserID, cfg.USPSURL, cfg.Timeout, cfg.RateLimit)
	case "google":
		external = NewGoogle(cfg.GoogleAPIKey, cfg.GoogleURL, cfg.Timeout, cfg.RateLimit)
	case "mock", "":
	default:
		slog.Warn("unknown address provider, using heuristic validation", "provider", cfg.Provider)
	}

	if external == nil {
		return NewChain()
	}
	return NewChain(external)
}
