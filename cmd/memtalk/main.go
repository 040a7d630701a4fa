package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kartva/memtalk"
	"github.com/kartva/memtalk/internal/logging"
)

var cmd Cmd

// Cmd is the command line arguments.
type Cmd struct {
	// Name is the shared memory object the two peers rendezvous on.
	Name string
}

var rootCmd = &cobra.Command{
	Use:   "memtalk -f <name>",
	Short: "Bidirectional stdin/stdout channel between two processes over shared memory",
	Args:  cobra.NoArgs,
	Run: func(rawCmd *cobra.Command, _ []string) {
		if err := run(cmd); err != nil {
			if errors.Is(err, Interrupted{}) {
				return
			}

			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cmd.Name, "file", "f", "", "Name of the shared memory object (required)")
	rootCmd.MarkFlagRequired("file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd Cmd) error {
	log, err := logging.Init(logging.DefaultConfig())
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg := memtalk.DefaultConfig()
	cfg.Name = cmd.Name

	ch, err := memtalk.NewChannel(cfg, memtalk.WithLog(log))
	if err != nil {
		return err
	}
	defer ch.Close()

	// The pumps block in stdin reads that no context can cancel, so the
	// signal path must not wait for them: first outcome wins and the
	// deferred Close runs the cleanup either way.
	ctx := context.Background()
	errc := make(chan error, 2)
	go func() {
		errc <- ch.Run(ctx)
	}()
	go func() {
		err := WaitInterrupted(ctx)
		log.Infof("caught signal: %v", err)
		errc <- err
	}()

	return <-errc
}

type Interrupted struct {
	os.Signal
}

func (m Interrupted) Error() string {
	return m.String()
}

func (m Interrupted) Is(target error) bool {
	_, ok := target.(Interrupted)
	return ok
}

// WaitInterrupted blocks until either SIGINT or SIGTERM signal is received
// or the provided context is canceled.
func WaitInterrupted(ctx context.Context) error {
	ch := make(chan os.Signal, 1)

	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case v := <-ch:
		return Interrupted{Signal: v}
	case <-ctx.Done():
		return ctx.Err()
	}
}
