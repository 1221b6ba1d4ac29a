package main

import (
	"encoding/json"
	"io"

	"soracom-harvest/internal/config"
	"soracom-harvest/internal/logging"
	"soracom-harvest/internal/models"
	"soracom-harvest/internal/services"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	cmd    *cobra.Command
	viper  *viper.Viper
	stdout io.Writer
	stderr io.Writer

	pretty  bool
	verbose bool
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{
		viper:  config.NewViper(),
		stdout: stdout,
		stderr: stderr,
	}

	a.cmd = &cobra.Command{
		Use:   "soracom-harvest",
		Short: "SORACOM Harvest data downloader",
		Long: `SORACOM Harvest data downloader.

Authenticates as a SAM user, lists every subscriber and prints the decoded
Harvest data of each subscriber as a JSON array, one entry per subscriber.

Credentials may also be set with SORACOM_AUTH_KEY_ID and SORACOM_AUTH_KEY.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.harvestRun(cmd)
		},
	}
	a.cmd.SetOut(stdout)
	a.cmd.SetErr(stderr)

	flags := a.cmd.Flags()
	flags.StringP("authkey_id", "i", "", "AuthKeyId of SORACOM SAM user (`keyId-XXXXXXXXXXXXXXXXX`)")
	flags.StringP("authkey_secret", "s", "", "AuthKey secret of SORACOM SAM user (`secret-XXXXXXXXXXXXXXXX`)")
	flags.String("base-url", "", "SORACOM API base URL (default https://api.soracom.io/v1)")
	flags.BoolVar(&a.pretty, "pretty", false, "indent the JSON output")
	a.cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	_ = a.viper.BindPFlag("soracom.authKeyID", flags.Lookup("authkey_id"))
	_ = a.viper.BindPFlag("soracom.authKey", flags.Lookup("authkey_secret"))
	_ = a.viper.BindPFlag("soracom.apiURL", flags.Lookup("base-url"))

	installTokenCmd(a)
	return a
}

func (a *app) logger(cfg *config.Config) (*logrus.Logger, error) {
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	return logging.New(cfg.Log, a.stderr)
}

// harvestRun runs the pipeline and prints the result.
func (a *app) harvestRun(cmd *cobra.Command) error {
	cfg := config.LoadFrom(a.viper)
	logger, err := a.logger(cfg)
	if err != nil {
		return err
	}

	creds := models.Credentials{
		AuthKeyID: cfg.Soracom.AuthKeyID,
		AuthKey:   cfg.Soracom.AuthKey,
	}
	if creds.AuthKeyID == "" || creds.AuthKey == "" {
		return &services.MissingCredentialsError{AuthKeyID: creds.AuthKeyID, AuthKey: creds.AuthKey}
	}

	harvest := services.NewHarvestService(services.NewSoracomService(cfg.Soracom, logger), logger)
	result, err := harvest.Run(cmd.Context(), creds)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	if a.pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
