package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/blueprint/internal/config"
)

// mcpConfig represents the structure of a .mcp.json file.
type mcpConfig struct {
	MCPServers map[string]json.RawMessage `json:"mcpServers"`
}

// blueprintMCPEntry is the MCP server configuration for the blueprint binary.
var blueprintMCPEntry = json.RawMessage(`{
  "type": "stdio",
  "command": "blueprint",
  "args": ["serve-mcp"]
}`)

func newInitCmd(flags *cliFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write blueprint.yml and register the MCP server in .mcp.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), flags.ProjectRoot, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files and entries")
	return cmd
}

func runInit(out io.Writer, projectRoot string, force bool) error {
	abs, err := filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	if err := writeDefaultConfig(out, abs, force); err != nil {
		return err
	}
	if err := mergeMCPConfig(out, filepath.Join(abs, ".mcp.json"), force); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nSetup complete. Run 'blueprint index' to build the code index.")
	return nil
}

func writeDefaultConfig(out io.Writer, abs string, force bool) error {
	for _, name := range config.FileNames {
		path := filepath.Join(abs, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if !force {
			fmt.Fprintf(out, "  skipped %s (exists, use --force to overwrite)\n", dotRelative(abs, path))
			return nil
		}
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	path, err := config.Default().Write(abs)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  created %s\n", dotRelative(abs, path))
	return nil
}

// mergeMCPConfig creates or merges the blueprint entry into .mcp.json.
func mergeMCPConfig(out io.Writer, mcpPath string, force bool) error {
	var cfg mcpConfig

	data, err := os.ReadFile(mcpPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parsing %s: %w", mcpPath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("reading %s: %w", mcpPath, err)
	}

	if cfg.MCPServers == nil {
		cfg.MCPServers = make(map[string]json.RawMessage)
	}

	if _, exists := cfg.MCPServers["blueprint"]; exists && !force {
		fmt.Fprintln(out, "  skipped .mcp.json blueprint entry (exists, use --force to overwrite)")
		return nil
	}

	cfg.MCPServers["blueprint"] = blueprintMCPEntry

	encoded, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling .mcp.json: %w", err)
	}

	if err := os.WriteFile(mcpPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mcpPath, err)
	}

	action := "created"
	if data != nil {
		action = "updated"
	}
	fmt.Fprintf(out, "  %s .mcp.json with blueprint MCP server\n", action)
	return nil
}

// dotRelative returns a display path relative to the project root, prefixed
// with "./".
func dotRelative(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return "./" + rel
}
