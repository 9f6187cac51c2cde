// Package scaffold creates a starter vigil project.
package scaffold

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/vigil/internal/config"
	"github.com/dyluth/vigil/internal/printer"
	"github.com/dyluth/vigil/internal/replay"
)

//go:embed templates/*
var templatesFS embed.FS

// ExampleLog is the sample event log written next to vigil.yml.
var ExampleLog = filepath.Join("events", "example.jsonl")

// FileInfo represents a file to be created during initialization
type FileInfo struct {
	Path        string
	Content     []byte
	Permissions os.FileMode
}

// Initialize creates the vigil project structure in dir.
// If force is true, it will remove an existing vigil.yml and example log first.
func Initialize(dir string, force bool) error {
	if force {
		if err := handleForce(dir); err != nil {
			return err
		}
	}

	files, err := templateFiles()
	if err != nil {
		return err
	}

	for _, file := range files {
		path := filepath.Join(dir, file.Path)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, file.Content, file.Permissions); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.Path, err)
		}
	}

	return validateCreatedFiles(dir)
}

// handleForce removes existing files if --force was specified
func handleForce(dir string) error {
	for _, name := range []string{config.FileName, ExampleLog} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		printer.Warning("Removing existing %s...\n", name)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

// StarterConfig is the configuration written by Initialize: defaults plus
// one example place.
func StarterConfig() *config.Config {
	c := config.Default()
	c.Boards.Places = []config.PlaceConfig{{ID: "Store"}}
	return c
}

func templateFiles() ([]FileInfo, error) {
	cfg, err := StarterConfig().Marshal()
	if err != nil {
		return nil, err
	}

	example, err := templatesFS.ReadFile("templates/example.jsonl")
	if err != nil {
		return nil, fmt.Errorf("failed to read example log template: %w", err)
	}

	return []FileInfo{
		{Path: config.FileName, Content: cfg, Permissions: 0644},
		{Path: ExampleLog, Content: example, Permissions: 0644},
	}, nil
}

// validateCreatedFiles loads what was written the same way the other
// commands will.
func validateCreatedFiles(dir string) error {
	if _, err := config.Load(filepath.Join(dir, config.FileName)); err != nil {
		return fmt.Errorf("created %s is invalid: %w", config.FileName, err)
	}
	if _, err := replay.Load(context.Background(), replay.FileSource{Path: filepath.Join(dir, ExampleLog)}); err != nil {
		return fmt.Errorf("created %s is invalid: %w", ExampleLog, err)
	}
	return nil
}

// PrintSuccess prints the success message with created files
func PrintSuccess() {
	printer.Success("Successfully initialized vigil project!\n")
	printer.Println("Created:")
	printer.Printf("  ✓ %s\n", config.FileName)
	printer.Printf("  ✓ %s\n", ExampleLog)
	printer.Println("\nNext steps:")
	printer.Printf("  1. Add your places under boards.places in %s\n", config.FileName)
	printer.Printf("  2. Run 'vigil replay %s --resimulate' to rebuild verdicts from the sample log\n", ExampleLog)
	printer.Println("  3. Set VIGIL_REDIS_URL and run 'vigil watch' to follow a live engine")
}
