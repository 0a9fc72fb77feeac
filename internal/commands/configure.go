package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kuhlman-labs/sonar-collector/internal/config"
	"github.com/kuhlman-labs/sonar-collector/internal/logging"
	"github.com/kuhlman-labs/sonar-collector/internal/sonarqube"
)

var (
	configureURL          string
	configureToken        string
	configureOrganization string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Configure the SonarQube server connection",
	Long: `Stores the SonarQube connection settings in config.yaml and then runs a
connection test against the server.

Without flags an interactive form collects the settings; the token input
stays masked. With --url and --token the form is skipped, for scripted
setups. Tuning sections of an existing configuration (collector,
database, export, logging) are preserved on reconfigure.`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureURL, "url", "",
		"SonarQube server URL (e.g. https://sonarqube.example.com)")
	configureCmd.Flags().StringVar(&configureToken, "token", "",
		"authentication token")
	configureCmd.Flags().StringVar(&configureOrganization, "organization", "",
		"organization key (SonarCloud only)")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	// Start from whatever configuration exists so a reconfigure keeps the
	// tuning sections. A broken file just means starting fresh.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		cfg = &config.Config{}
	}

	serverURL := cfg.SonarQube.URL
	token := cfg.SonarQube.Token
	organization := cfg.SonarQube.Organization
	authMode := cfg.SonarQube.AuthMode
	if authMode == "" {
		authMode = sonarqube.AuthModeBasic
	}

	if configureURL != "" {
		serverURL = configureURL
	}
	if configureToken != "" {
		token = configureToken
	}
	if configureOrganization != "" {
		organization = configureOrganization
	}

	if configureURL == "" || configureToken == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("SonarQube server URL").
					Description("Base URL of your server, or https://sonarcloud.io.").
					Placeholder("https://sonarqube.example.com").
					Value(&serverURL),
				huh.NewInput().
					Title("Authentication token").
					Description("Generate one under My Account > Security > Tokens.").
					Placeholder("squ_...").
					EchoMode(huh.EchoModePassword).
					Value(&token),
				huh.NewInput().
					Title("Organization key").
					Description("Required on SonarCloud; leave blank for self-hosted servers.").
					Value(&organization),
				huh.NewSelect[string]().
					Title("Authentication mode").
					Description("basic sends the token as the username; bearer targets SonarQube 10+.").
					Options(
						huh.NewOption("basic", sonarqube.AuthModeBasic),
						huh.NewOption("bearer", sonarqube.AuthModeBearer),
					).
					Value(&authMode),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
	}

	cfg.SonarQube.URL = strings.TrimSpace(serverURL)
	cfg.SonarQube.Token = strings.TrimSpace(token)
	cfg.SonarQube.Organization = strings.TrimSpace(organization)
	cfg.SonarQube.AuthMode = authMode

	if err := cfg.Validate(); err != nil {
		return err
	}

	path := cfgFile
	if path == "" {
		path = config.DefaultFilePath
	}
	if err := config.WriteFile(cfg, path); err != nil {
		return err
	}
	fmt.Printf("Configuration saved to %s\n", path)

	logger := logging.NewLogger(cfg.Logging)
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Testing connection to %s...\n", client.BaseURL())
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout(cfg))
	defer cancel()
	if err := client.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}

	fmt.Println("Connection successful!")
	return nil
}
