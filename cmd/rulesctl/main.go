package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dbPath    string
	namespace string
	key       string
	verbose   bool
	notify    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "rulesctl",
		Short: "Manage delivery date rules stored in SQLite",
		Long: `rulesctl edits the delivery date rules of a store directly in the SQLite
database used by the service.

Defaults come from the same environment variables as the service
(SQLITE_PATH, RULES_NAMESPACE, RULES_KEY, RABBITMQ_*).`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the SQLite database (default: $SQLITE_PATH)")
	cmd.PersistentFlags().StringVar(&opts.namespace, "namespace", "", "rules namespace (default: $RULES_NAMESPACE)")
	cmd.PersistentFlags().StringVar(&opts.key, "key", "", "rules key (default: $RULES_KEY)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")
	cmd.PersistentFlags().BoolVar(&opts.notify, "notify", true, "publish a rules-changed event when RabbitMQ is enabled")

	cmd.AddCommand(showCmd(opts))
	cmd.AddCommand(addDateCmd(opts))
	cmd.AddCommand(toggleDayCmd(opts))
	cmd.AddCommand(removeCmd(opts))
	cmd.AddCommand(checkCmd(opts))
	cmd.AddCommand(blockedCmd(opts))

	return cmd
}
