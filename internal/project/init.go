package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/index"
)

// defaultIgnoreTemplate seeds .c2n_ignore on init.
const defaultIgnoreTemplate = `# Notion sync ignore patterns (gitignore-style)

# Build artifacts
build/
dist/

# Temporary files
*.tmp
*.log
.DS_Store

# IDE files
.vscode/
.idea/

# Personal notes
_private/

# Dependency trees
node_modules/
vendor/
`

// Init creates the project skeleton: config, empty index, and a default
// ignore file. Shared by the init and clone commands.
func Init(dir, rootURL, workspaceURL, syncMode string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	cfg := &config.Project{
		DefaultParentURL: rootURL,
		SyncMode:         syncMode,
		WorkspaceURL:     workspaceURL,
		PullApply:        true,
	}
	if err := cfg.Save(dir); err != nil {
		return err
	}

	idx, err := index.Load(dir)
	if err != nil {
		return err
	}
	if err := idx.Save(); err != nil {
		return err
	}

	ignorePath := filepath.Join(dir, index.IgnoreFileName)
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(defaultIgnoreTemplate), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", ignorePath, err)
		}
	}
	return nil
}
