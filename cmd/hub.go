package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/protexsync/internal/utils"
	"github.com/sw33tLie/protexsync/pkg/hub"
	"github.com/sw33tLie/protexsync/pkg/whttp"
)

// newHubClient configures the shared HTTP client from flags and config and
// returns an authenticated Hub client.
func newHubClient(ctx context.Context, cmd *cobra.Command) (*hub.Client, error) {
	baseURL := viper.GetString("hub.url")
	token := viper.GetString("hub.token")
	if baseURL == "" || token == "" {
		return nil, errors.New("hub.url and hub.token must be set in ~/.protexsync.yaml (or PROTEXSYNC_HUB_URL / PROTEXSYNC_HUB_TOKEN)")
	}

	proxy, _ := cmd.Flags().GetString("proxy")
	if proxy != "" {
		if err := whttp.SetupProxy(proxy); err != nil {
			return nil, err
		}
	}
	if viper.GetBool("hub.insecure") {
		whttp.SetInsecure()
	}
	whttp.SetTimeout(viper.GetDuration("hub.timeout"))

	client := hub.NewClient(baseURL, token, hub.WithPageSize(viper.GetInt("hub.pagesize")))
	if err := client.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("authenticating to %s: %w", baseURL, err)
	}
	utils.Log.Debugf("Authenticated to %s", baseURL)
	return client, nil
}
