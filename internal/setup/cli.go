package setup

import (
	"flag"
	"fmt"
	"io"
	"os"
)

const usage = `Fertilizer Advisor MCP Setup

Usage:
  mcp-server setup <command> [options]

Commands:
  claude-desktop  Register the server in Claude Desktop
                  --binary PATH     server binary (defaults to this executable)
                  --data-dir DIR    directory for the history database
                  --config PATH     Claude Desktop config file
  status          Show the current registration
  help            Show this message
`

// CLI provides command-line interface for setup operations.
type CLI struct {
	out io.Writer
}

// NewCLI creates a new setup CLI writing to out.
func NewCLI(out io.Writer) *CLI {
	return &CLI{out: out}
}

// Run executes the setup command based on the provided arguments.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(c.out, usage)
		return nil
	}

	switch args[0] {
	case "claude-desktop":
		return c.configure(args[1:])
	case "status":
		return c.status(args[1:])
	case "help", "--help", "-h":
		fmt.Fprint(c.out, usage)
		return nil
	default:
		fmt.Fprint(c.out, usage)
		return fmt.Errorf("unknown setup command: %s", args[0])
	}
}

func (c *CLI) configure(args []string) error {
	var opts Options
	fs := flag.NewFlagSet("claude-desktop", flag.ContinueOnError)
	fs.SetOutput(c.out)
	fs.StringVar(&opts.BinaryPath, "binary", "", "server binary")
	fs.StringVar(&opts.DataDir, "data-dir", "", "history directory")
	fs.StringVar(&opts.ConfigPath, "config", "", "Claude Desktop config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.BinaryPath == "" {
		if execPath, err := os.Executable(); err == nil {
			opts.BinaryPath = execPath
		}
	}

	configPath, err := ConfigureClaudeDesktop(opts)
	if err != nil {
		return fmt.Errorf("failed to configure Claude Desktop: %w", err)
	}

	fmt.Fprintf(c.out, "✓ Registered %s in %s\n", ServerName, configPath)
	fmt.Fprintf(c.out, "  Binary: %s\n", opts.BinaryPath)
	fmt.Fprintln(c.out, "Restart Claude Desktop to load the new configuration.")
	return nil
}

func (c *CLI) status(args []string) error {
	var configPath string
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(c.out)
	fs.StringVar(&configPath, "config", "", "Claude Desktop config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if configPath == "" {
		var err error
		if configPath, err = GetClaudeDesktopConfigPath(); err != nil {
			return err
		}
	}

	status, err := GetStatus(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Config path: %s\n", status.ConfigPath)
	if !status.Configured {
		fmt.Fprintln(c.out, "Status: ✗ Not configured")
		return nil
	}
	fmt.Fprintln(c.out, "Status: ✓ Configured")
	fmt.Fprintf(c.out, "Binary: %s\n", status.ServerPath)
	if status.HistoryPath != "" {
		fmt.Fprintf(c.out, "History: %s\n", status.HistoryPath)
	}
	for _, issue := range status.Issues {
		fmt.Fprintf(c.out, "  ! %s\n", issue)
	}
	return nil
}
