// Package setup registers the fertilizer advisor MCP server with desktop MCP
// clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the advisor is registered under in client configs.
const ServerName = "fertilizer-advisor"

// envHistoryPath points the MCP server at its SQLite history file.
const envHistoryPath = "FERT_ADVISOR_STORAGE_SQLITE_PATH"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options contains options for registering the server.
type Options struct {
	ConfigPath string // Claude Desktop config file; detected when empty
	BinaryPath string // Path to the mcp-server binary; detected when empty
	DataDir    string // Directory for the history database
}

// GetClaudeDesktopConfigPath returns the path to Claude Desktop's config file.
func GetClaudeDesktopConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClaudeDesktopConfig loads the existing configuration. A missing file
// yields an empty config.
func LoadClaudeDesktopConfig(configPath string) (*ClaudeDesktopConfig, error) {
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &ClaudeDesktopConfig{MCPServers: make(map[string]MCPServerConfig)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ClaudeDesktopConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]MCPServerConfig)
	}
	return &config, nil
}

// SaveClaudeDesktopConfig saves the configuration to the Claude Desktop config file.
func SaveClaudeDesktopConfig(configPath string, config *ClaudeDesktopConfig) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConfigureClaudeDesktop adds or updates the advisor entry, leaving other
// servers untouched. It returns the config path written.
func ConfigureClaudeDesktop(opts Options) (string, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		var err error
		if configPath, err = GetClaudeDesktopConfigPath(); err != nil {
			return "", err
		}
	}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return "", err
	}

	binaryPath := opts.BinaryPath
	if binaryPath == "" {
		if binaryPath, err = findBinary(); err != nil {
			return "", fmt.Errorf("could not find server binary: %w", err)
		}
	}

	entry := MCPServerConfig{Command: binaryPath}
	if opts.DataDir != "" {
		entry.Env = map[string]string{
			envHistoryPath: filepath.Join(opts.DataDir, "history.db"),
		}
	}
	config.MCPServers[ServerName] = entry

	return configPath, SaveClaudeDesktopConfig(configPath, config)
}

func findBinary() (string, error) {
	const binaryName = "mcp-server"

	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}

	locations := []string{
		"./" + binaryName,
		"./bin/" + binaryName,
		"/usr/local/bin/" + binaryName,
	}
	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}

	return "", fmt.Errorf("binary '%s' not found in common locations", binaryName)
}

// Status represents the current registration status.
type Status struct {
	ConfigPath   string
	Configured   bool
	ServerPath   string
	HistoryPath  string
	BinaryExists bool
	Issues       []string
}

// GetStatus inspects the advisor entry in the config at configPath.
func GetStatus(configPath string) (*Status, error) {
	status := &Status{ConfigPath: configPath, Issues: []string{}}

	config, err := LoadClaudeDesktopConfig(configPath)
	if err != nil {
		return nil, err
	}

	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "fertilizer advisor is not configured")
		return status, nil
	}

	status.Configured = true
	status.ServerPath = entry.Command
	status.HistoryPath = entry.Env[envHistoryPath]

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case info.Mode()&0111 == 0:
		status.BinaryExists = true
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	default:
		status.BinaryExists = true
	}

	return status, nil
}
