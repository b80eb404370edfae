package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
)

func newEventsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect change events published by the backend",
	}
	cmd.AddCommand(newEventsTailCommand(a))
	return cmd
}

func newEventsTailCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tail",
		Short: "Print change events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AMQPURL == "" {
				return errors.New("events tail needs --amqp-url or FINTRACK_AMQP_URL")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// An empty queue name gives this consumer its own temporary queue.
			client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, "", a.logger)
			if err != nil {
				return err
			}
			defer client.Close()

			w := cmd.OutOrStdout()
			err = client.Consume(ctx, func(ev *amqp.ResourceEvent) error {
				if a.cfg.Output == "json" {
					return writeJSON(w, ev)
				}
				_, err := fmt.Fprintf(w, "%s  %-22s %s\n", ev.Timestamp.Format("2006-01-02 15:04:05"), ev.RoutingKey(), ev.RecordID)
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
