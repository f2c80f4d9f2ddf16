package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proxy-gateway/internal/config"
)

type rootOptions struct {
	envFile  string
	port     string
	upstream string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "gateway",
		Short: "Reverse proxy com rate limit e cache de respostas",
		Long: `gateway recebe requests numa rota configurável e as repassa para um upstream.

Cada request passa por:
  - autenticação opcional (Bearer API_KEY)
  - rate limit de janela fixa por cliente
  - cache de respostas com TTL
  - forward com timeout para o upstream`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "arquivo .env (padrão: ./.env se existir)")
	root.PersistentFlags().StringVar(&opts.port, "port", "", "sobrescreve PORT")
	root.PersistentFlags().StringVar(&opts.upstream, "upstream", "", "sobrescreve UPSTREAM_URL")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Sobe o gateway (ação padrão)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd, opts)
			},
		},
		newConfigCmd(opts),
	)
	return root
}

// load lê a configuração e aplica as flags por cima.
func (o *rootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, err
	}
	if o.port == "" && o.upstream == "" {
		return cfg, nil
	}

	if o.port != "" {
		cfg.Server.Port = o.port
	}
	if o.upstream != "" {
		cfg.Upstream.URL = o.upstream
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}
