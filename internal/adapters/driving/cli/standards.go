package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/storage/sqlite"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Manage the canonical standards taxonomy",
}

var standardsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import standards and crosswalk edges from a JSON file",
	Long: `Loads canonical standards and crosswalk edges into the local store.

The file holds a JSON object with "standards" and "edges" arrays:

  {
    "standards": [
      {"id": "ccss-a-rei-4", "jurisdiction": "CCSS", "course": "Algebra 1",
       "code": "A.REI.4", "description": "Solve quadratic equations..."}
    ],
    "edges": [
      {"from": "teks-a-8a", "to": "ccss-a-rei-4", "relation": "equivalent",
       "confidence": 0.95}
    ]
  }

Standards without an id get one generated. Existing rows with the same
id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runStandardsImport,
}

func init() {
	standardsCmd.AddCommand(standardsImportCmd)
	rootCmd.AddCommand(standardsCmd)
}

// standardsFile is the JSON import shape.
type standardsFile struct {
	Standards []struct {
		ID           string `json:"id"`
		Jurisdiction string `json:"jurisdiction"`
		Course       string `json:"course"`
		Code         string `json:"code"`
		Description  string `json:"description"`
	} `json:"standards"`
	Edges []struct {
		From       string  `json:"from"`
		To         string  `json:"to"`
		Relation   string  `json:"relation"`
		Confidence float64 `json:"confidence"`
	} `json:"edges"`
}

func runStandardsImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}
	var file standardsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	dir, err := resolveDataDir()
	if err != nil {
		return err
	}
	store, err := sqlite.NewStore(dir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	standards := store.StandardsStore()

	for _, s := range file.Standards {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		std := domain.CanonicalStandard{
			ID:           id,
			Jurisdiction: s.Jurisdiction,
			Course:       s.Course,
			Code:         s.Code,
			Description:  s.Description,
		}
		if err := standards.Put(ctx, std); err != nil {
			return fmt.Errorf("importing standard %s: %w", s.Code, err)
		}
	}
	for _, e := range file.Edges {
		edge := domain.CrosswalkEdge{
			FromStandardID: e.From,
			ToStandardID:   e.To,
			Relation:       domain.CrosswalkRelation(e.Relation),
			Confidence:     e.Confidence,
		}
		if err := standards.PutEdge(ctx, edge); err != nil {
			return fmt.Errorf("importing edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	cmd.Printf("Imported %d standards and %d crosswalk edges.\n", len(file.Standards), len(file.Edges))
	return nil
}

// resolveDataDir applies the same precedence as serve: flag, config
// file, then ~/.aqi.
func resolveDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	settings, err := loadSettings()
	if err != nil {
		return "", err
	}
	if settings.DataDir != "" {
		return settings.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving data directory: %w", err)
	}
	return filepath.Join(home, ".aqi"), nil
}
