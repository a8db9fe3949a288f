package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/coalharbourgroup/PM-email-vcs/internal/config"
	"github.com/coalharbourgroup/PM-email-vcs/internal/logger"
	"github.com/coalharbourgroup/PM-email-vcs/internal/mandrill"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "import",
		Short: "Export published Mandrill templates as markdown documents",
		Long: `import writes one <slug>.md document per published Mandrill template
into the output directory. Commit the result to the template repository
to put existing templates under version control.`,
		Args:          cobra.NoArgs,
		RunE:          runImport,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Flags().StringP("out", "o", "", "Output directory (default: LOCAL_TEMPLATE_DIR_PATH)")
	rootCmd.Flags().Bool("dry-run", false, "List the files that would be written without writing them")
	rootCmd.Flags().Duration("timeout", 30*time.Second, "Mandrill API timeout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadImport()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = cfg.LocalTemplateDir
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := mandrill.New(cfg.Mandrill.APIURL, cfg.Mandrill.APIKey, timeout, log)
	exp := &exporter{lister: client, dir: out, dryRun: dryRun, log: log.Component("import")}

	written, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d template(s) exported to %s\n", len(written), out)
	return nil
}
