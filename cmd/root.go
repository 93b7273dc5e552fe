package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"trafficwatch-cli/internal/client"
	"trafficwatch-cli/internal/config"
)

var cfgFile string
var jsonOutput bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trafficwatch-cli",
	Short: "A CLI for the traffic-camera vehicle counting backend",
	Long: `Inspect cameras, configure counting lines, watch live detection
streams and pull crossing statistics from the vehicle detection backend.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setupClient builds the API client from the loaded configuration.
func setupClient() *client.TrafficClient {
	baseURL := viper.GetString("base_url")
	if baseURL == "" {
		fmt.Println("Error: no backend address configured. Set base_url in the config file or BASE_URL in the environment.")
		os.Exit(1)
	}

	return client.New(client.ClientConfig{
		BaseURL:      baseURL,
		WSBaseURL:    viper.GetString("ws_url"),
		TunnelBypass: viper.GetBool("tunnel_bypass"),
	})
}

func init() {
	cobra.OnInitialize(func() { config.InitConfig(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.trafficwatch-cli.yaml)")

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}
