package cli

import (
	"fmt"

	"github.com/harun/chatrelay/internal/daemon"
	"github.com/harun/chatrelay/internal/logger"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveBackend string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat relay HTTP and WebSocket server",
	Long: `Run the chat relay server in the foreground. It serves the chat API,
watches the persona catalog when configured, and runs the session retention
sweep. SIGINT or SIGTERM stops it gracefully.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override server.port")
	serveCmd.Flags().StringVar(&serveBackend, "backend", "", "override backend.kind (bedrock, echo)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveBackend != "" {
		cfg.Backend.Kind = serveBackend
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()

	d, err := daemon.New(cfg, log)
	if err != nil {
		return err
	}
	if err := d.Start(); err != nil {
		return err
	}
	return d.Wait()
}
