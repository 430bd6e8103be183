package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to out
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for the settings that usually differ between deployments and
// returns the defaults with the answers applied.
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== chatrelay Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	// Backend
	fmt.Fprintln(w.out, "Backend:")
	kind, err := w.ask("Backend kind (bedrock/echo)", cfg.Backend.Kind, validator.ValidateBackendKind)
	if err != nil {
		return nil, err
	}
	cfg.Backend.Kind = kind

	if kind == "bedrock" {
		region, err := w.ask("AWS region", cfg.Backend.Region, nil)
		if err != nil {
			return nil, err
		}
		cfg.Backend.Region = region
	}

	model, err := w.ask("Default model", cfg.Backend.DefaultModel, validator.ValidateModel)
	if err != nil {
		return nil, err
	}
	cfg.Backend.DefaultModel = model
	fmt.Fprintln(w.out)

	// Storage
	fmt.Fprintln(w.out, "Session storage:")
	storeKind, err := w.ask("Store kind (none/file/sqlite/dynamodb)", cfg.Store.Kind, validator.ValidateStoreKind)
	if err != nil {
		return nil, err
	}
	cfg.Store.Kind = storeKind

	if storeKind == "dynamodb" {
		table, err := w.ask("Sessions table", "", func(s string) error {
			if s == "" {
				return errors.New("table name is required")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		cfg.Store.Dynamo.SessionsTable = table

		projects, err := w.ask("Projects table (optional)", "", nil)
		if err != nil {
			return nil, err
		}
		cfg.Store.Dynamo.ProjectsTable = projects
	}
	fmt.Fprintln(w.out)

	// Server
	fmt.Fprintln(w.out, "Server:")
	port, err := w.ask("Port", strconv.Itoa(cfg.Server.Port), func(s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("port must be a number")
		}
		return validator.ValidatePort(n)
	})
	if err != nil {
		return nil, err
	}
	cfg.Server.Port, _ = strconv.Atoi(port)
	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level, validator.ValidateLogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = level

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

// ask prompts until the answer passes validate. An empty answer selects def.
func (w *Wizard) ask(prompt, def string, validate func(string) error) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
		} else {
			fmt.Fprintf(w.out, "%s: ", prompt)
		}

		answer, err := w.readLine()
		if err != nil {
			return "", err
		}
		if answer == "" {
			answer = def
		}

		if validate != nil {
			if err := validate(answer); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
		}
		return answer, nil
	}
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
