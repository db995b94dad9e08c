package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/settings"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and print the bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		resp, err := backend.Login(cmd.Context(), username, password)
		if err != nil {
			return errors.New(apperrors.UserMessage(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
		return nil
	},
}

var sellersCmd = &cobra.Command{
	Use:   "sellers",
	Short: "List sellers",
	RunE: func(cmd *cobra.Command, args []string) error {
		sellers, err := backend.ListSellers(cmd.Context())
		if err != nil {
			return errors.New(apperrors.UserMessage(err))
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tWHATSAPP")
		for _, s := range sellers {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.WhatsApp)
		}
		return tw.Flush()
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Preview a CSV inventory and create its cars",
	Long: `Parses FILE with the template layout, prints every row that will be
submitted and the lines that were skipped, then creates the cars one by
one. Ctrl-C stops before the next row; rows already created stay.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	sellerID, _ := cmd.Flags().GetString("seller")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	out := cmd.OutOrStdout()

	if err := importer.CheckFileName(args[0]); err != nil {
		return errors.New(apperrors.UserMessage(err))
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	preview, err := importer.Parse(f)
	f.Close()
	if err != nil {
		return errors.New(apperrors.UserMessage(err))
	}

	if err := printPreview(out, preview); err != nil {
		return err
	}
	if dryRun {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	submitter := importer.NewSubmitter(backend,
		importer.WithLogger(log),
		importer.WithProgress(func(done, total int, rowErr *models.RowError) {
			log.Debug().Int("done", done).Int("total", total).Bool("failed", rowErr != nil).Msg("Row submitted")
		}),
	)
	outcome, err := submitter.Run(ctx, preview.Rows, sellerID)
	if outcome == nil {
		return errors.New(apperrors.UserMessage(err))
	}

	printOutcome(out, outcome)
	if errors.Is(err, context.Canceled) {
		return errors.New("import interrupted")
	}
	return nil
}

func printPreview(w io.Writer, preview *importer.Preview) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tBRAND\tMODEL\tYEAR\tKM\tPRICE\tSTATUS\tFEATURED\tIMAGES")
	for _, row := range preview.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.2f\t%s\t%t\t%d\n",
			row.Line, row.Brand, row.Model, row.Year, row.Km, row.Price,
			row.Status, row.Featured, len(row.Images))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n%d vehicles ready to import\n", preview.Len())
	for _, s := range preview.Skipped {
		fmt.Fprintf(w, "Skipped line %d: %s (%d fields)\n", s.Line, s.Reason, s.Fields)
	}
	return nil
}

func printOutcome(w io.Writer, outcome *models.ImportOutcome) {
	fmt.Fprintf(w, "\n%d of %d vehicles imported\n", outcome.SuccessCount, outcome.Total)
	if outcome.Cancelled {
		fmt.Fprintf(w, "Cancelled: %d vehicles not attempted\n", outcome.NotAttempted)
	}
	if len(outcome.Errors) == 0 {
		return
	}
	fmt.Fprintf(w, "%d errors:\n", len(outcome.Errors))
	for _, e := range outcome.Errors {
		fmt.Fprintf(w, "  Line %d (%s): %s\n", e.Line, e.Vehicle, e.Message)
	}
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Print the site settings, optionally watching for changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("watch")
		out := cmd.OutOrStdout()

		store := settings.New(backend, log)
		if err := store.Refresh(cmd.Context()); err != nil {
			log.Warn().Err(err).Msg("Showing default settings")
		}
		printSettings(out, store.Get())

		if interval <= 0 {
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		unsubscribe := store.Subscribe(func(s models.SiteSettings) {
			fmt.Fprintf(out, "\n--- %s ---\n", time.Now().Format(time.TimeOnly))
			printSettings(out, s)
		})
		defer unsubscribe()

		store.Watch(ctx, interval)
		return nil
	},
}

func printSettings(w io.Writer, s models.SiteSettings) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	rows := [][2]string{
		{"Site name", s.SiteName},
		{"Primary color", s.PrimaryColor},
		{"Logo", backend.ResolveImageURL(s.LogoURL)},
		{"Address", s.Address},
		{"Phone", s.Phone},
		{"Email", s.Email},
		{"WhatsApp", s.StoreWhatsApp},
		{"Message template", strconv.Quote(s.WhatsAppMessageTemplate)},
		{"Contact title", s.ContactTitle},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	_ = tw.Flush()
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the CSV import template",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			_, err := cmd.OutOrStdout().Write(importer.Template)
			return err
		}
		if err := os.WriteFile(output, importer.Template, 0644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Template written to %s\n", output)
		return nil
	},
}
