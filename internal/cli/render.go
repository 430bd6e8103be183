package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/harun/chatrelay/internal/daemon"
	"github.com/harun/chatrelay/pkg/conversation"
	"github.com/harun/chatrelay/pkg/dispatch"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	renderFile     string
	renderModel    string
	renderMode     string
	renderMessages []string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the backend payload a chat request would produce",
	Long: `Render runs a chat request through validation, persona resolution,
normalization and the model family adapter, then prints the payload that
would be sent to the backend. Nothing is invoked or stored.

The request is read from --file (use - for stdin) or built from --message
flags, each of which adds one user turn.`,
	Example: `  chatrelay render --model amazon.nova-lite-v1:0 --mode arquitecto --message "I need a CRM"
  echo '{"messages":[{"role":"user","content":"hi"}]}' | chatrelay render --file -`,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderFile, "file", "f", "", "request JSON file, - for stdin")
	renderCmd.Flags().StringVar(&renderModel, "model", "", "backend model id")
	renderCmd.Flags().StringVar(&renderMode, "mode", "", "persona tag")
	renderCmd.Flags().StringArrayVarP(&renderMessages, "message", "m", nil, "user message (repeatable)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req, err := readRenderRequest(cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// rendering never reaches the backend or the stores
	cfg.Backend.Kind = "echo"
	cfg.Store.Kind = "none"
	cfg.Blob.Kind = "none"

	components, err := daemon.BuildComponents(ctx, cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	defer components.Close()

	d, err := daemon.NewDispatcher(components, cfg, zerolog.Nop())
	if err != nil {
		return err
	}

	rendered, err := d.Render(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(rendered)
}

func readRenderRequest(stdin io.Reader) (dispatch.Request, error) {
	var req dispatch.Request

	if renderFile != "" {
		var (
			data []byte
			err  error
		)
		if renderFile == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(renderFile)
		}
		if err != nil {
			return req, fmt.Errorf("failed to read request: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("failed to parse request: %w", err)
		}
	}

	for _, m := range renderMessages {
		req.Messages = append(req.Messages, conversation.Message{Role: conversation.RoleUser, Content: m})
	}
	if renderModel != "" {
		req.ModelID = renderModel
	}
	if renderMode != "" {
		req.Mode = renderMode
	}
	return req, nil
}
