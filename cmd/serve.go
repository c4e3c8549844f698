package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/kkokay07/K-Sites/internal/api"
	"github.com/kkokay07/K-Sites/internal/guides"
	"github.com/kkokay07/K-Sites/internal/logger"
	"github.com/kkokay07/K-Sites/internal/pathway"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd serves guide design over HTTP
var serveCmd = &cobra.Command{
	Use:                        "serve",
	Short:                      "Serve guide design over HTTP",
	RunE:                       runServe,
	SuggestionsMinimumDistance: 2,
	Example:                    "  ksites serve --addr :8080 --pathway-db postgres://ksites@localhost/ksites",
	Long: `Serve guide design over HTTP until interrupted.

Routes:
  GET  /healthz        liveness
  GET  /v1/nucleases   the nucleases guides can be designed with
  POST /v1/design      design guides for the targets in the request body

Requests without their own pathway memberships are checked against the
pathway file or database in the settings, if there is one.`,
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	serveCmd.Flags().String("pathways", "", "gene/pathway membership TSV")
	serveCmd.Flags().String("pathway-db", "", "Postgres url of a database with a gene_pathways table")

	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Named("http")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, _, err := registry()
	if err != nil {
		return err
	}

	// flags override the pathway settings
	pc := conf.Pathway
	if f, _ := cmd.Flags().GetString("pathways"); f != "" {
		pc.File = f
	}
	if u, _ := cmd.Flags().GetString("pathway-db"); u != "" {
		pc.PostgresURL = u
	}

	src, closeSrc, err := pathway.New(ctx, pc)
	if err != nil && !errors.Is(err, pathway.ErrNoSource) {
		return err
	}
	defer closeSrc()

	d := guides.NewDesigner(reg, conf.Settings(), logger.Named("design"))
	srv := api.NewServer(d, api.Options{
		Nuclease:      conf.Nuclease,
		MinEfficiency: conf.Score.MinEfficiency,
		Pathways:      src,
	}, log)

	return srv.ListenAndServe(ctx, conf.Serve.Addr)
}
