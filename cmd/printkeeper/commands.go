package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"printkeeper/internal/service"
)

// networkPollInterval is how often boot-notify re-checks for an address
const networkPollInterval = 2 * time.Second

// withApp loads config, wires the app and runs fn until SIGINT/SIGTERM
func withApp(cmd *cobra.Command, flags *flagValues, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newDiscoverCmd(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Run one discovery and reconciliation pass and print the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				report, err := a.reconciler.Run(ctx)
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), report.Summary())
				return nil
			})
		},
	}
}

func newBootNotifyCmd(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "boot-notify",
		Short: "Wait for network and spooler, reconcile, then print a status notice on every printer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				boot := a.cfg.Boot
				notifier := service.NewBootNotifier(service.BootConfig{
					Delay:          boot.Delay.Duration(),
					StabilizeDelay: boot.StabilizeDelay.Duration(),
					SpoolerWait:    boot.SpoolerWait.Duration(),
					ServerPort:     a.cfg.Server.Port,
					Policy:         a.bootPolicy(),
				}, service.BootDeps{
					WaitForNetwork: func(ctx context.Context) (string, error) {
						return a.detector.WaitForNetwork(ctx, boot.NetworkWait.Duration(), networkPollInterval, a.logger)
					},
					Scheduler:  a.cups,
					Reconciler: a.reconciler,
					Queues:     a.cups,
					Submitter:  a.dispatcher,
				}, a.logger)

				summary, err := notifier.Run(ctx)
				if summary != nil {
					if perr := printJSON(cmd.OutOrStdout(), summary); perr != nil {
						return perr
					}
					fmt.Fprintln(cmd.ErrOrStderr(), summary.String())
				}
				if err != nil {
					return err
				}
				if len(summary.Failed) > 0 {
					return fmt.Errorf("%d of %d printers not notified",
						len(summary.Failed), len(summary.Failed)+len(summary.Notified))
				}
				return nil
			})
		},
	}
}

func newReadinessCmd(flags *flagValues) *cobra.Command {
	var remediate bool

	cmd := &cobra.Command{
		Use:   "readiness <printer>",
		Short: "Check whether a printer can take a job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				fix := a.cfg.Readiness.Remediate
				if cmd.Flags().Changed("remediate") {
					fix = remediate
				}
				readiness := a.gate.Check(ctx, args[0], fix)
				if err := printJSON(cmd.OutOrStdout(), readiness); err != nil {
					return err
				}
				return readiness.Err()
			})
		},
	}
	cmd.Flags().BoolVar(&remediate, "remediate", true, "re-enable a stopped queue and make it accept jobs")
	return cmd
}

func newPrintCmd(flags *flagValues) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "print <printer> [file]",
		Short: "Send raw device bytes from a file or stdin, with readiness checks and retries",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read job: %w", err)
			}

			return withApp(cmd, flags, func(ctx context.Context, a *app) error {
				jobID, err := a.dispatcher.Submit(ctx, service.JobRequest{
					Queue: args[0],
					Title: title,
					Data:  data,
				}, a.retryPolicy())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", jobID, len(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", service.DefaultJobTitle, "job title shown by the spooler")
	return cmd
}
