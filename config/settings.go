package config

import (
	"fmt"
	"sync"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Settings holds the environment-driven service configuration. The
// location/warehouse mapping is configured separately (see locations.LoadMapping)
// because it is a structured JSON document rather than flat env vars.
type Settings struct {
	Port string `envconfig:"PORT" default:"8080"`

	ShopDomain      string `envconfig:"SHOPIFY_SHOP_DOMAIN" required:"true"`
	ShopAccessToken string `envconfig:"SHOPIFY_ACCESS_TOKEN" required:"true"`
	ShopAPIVersion  string `envconfig:"SHOPIFY_API_VERSION" default:"2024-10"`

	LedgerBaseURL   string `envconfig:"SAP_BASE_URL" required:"true"`
	LedgerCompanyDB string `envconfig:"SAP_COMPANY_DB" required:"true"`
	LedgerUsername  string `envconfig:"SAP_USERNAME" required:"true"`
	LedgerPassword  string `envconfig:"SAP_PASSWORD" required:"true"`

	LocationMappingFile string `envconfig:"LOCATION_MAPPING_FILE" default:"location_mapping.json"`
	TrackingFile        string `envconfig:"RETURNS_TRACKING_FILE" default:"returns_tracking.json"`

	SyncIntervalMinutes int `envconfig:"SYNC_INTERVAL_MINUTES" default:"15"`
	FollowUpWindowDays  int `envconfig:"FOLLOWUP_WINDOW_DAYS" default:"30"`
	OrderLookbackDays   int `envconfig:"ORDER_LOOKBACK_DAYS" default:"7"`

	PubSubTopic        string `envconfig:"PUBSUB_TOPIC"`
	PubSubSubscription string `envconfig:"PUBSUB_SUBSCRIPTION"`
}

var (
	settings     *Settings
	settingsOnce sync.Once
	settingsErr  error
)

// GetSettings loads the settings from the environment once and caches them.
func GetSettings() (*Settings, error) {
	settingsOnce.Do(func() {
		godotenv.Load()
		s := &Settings{}
		if err := envconfig.Process("", s); err != nil {
			settingsErr = fmt.Errorf("load settings: %w", err)
			return
		}
		settings = s
	})
	return settings, settingsErr
}
