package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dqtools/segments/internal/segio"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert SOURCE TARGET",
	Short: "Convert a segment file between formats",
	Long: `Convert a segment file from one serialization format to another.

Formats are identified from file extensions (.txt/.dat segwizard,
.json JSON, .seg/.gob container) or forced with --from/--to.

Examples:
  segctl convert segments.txt segments.json
  segctl convert flag.json archive.seg --kind flag --path quality/flag
  segctl convert vetoes.json vetoes.seg --kind dict --coalesce`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

var (
	convertKind      string
	convertFrom      string
	convertTo        string
	convertPath      string
	convertCoalesce  bool
	convertOverwrite bool
)

func init() {
	rootCmd.AddCommand(convertCmd)

	// Flags
	convertCmd.Flags().StringVar(&convertKind, "kind", "list", "payload kind (list|flag|dict)")
	convertCmd.Flags().StringVar(&convertFrom, "from", "", "source format (default: from extension)")
	convertCmd.Flags().StringVar(&convertTo, "to", "", "target format (default: from extension)")
	convertCmd.Flags().StringVar(&convertPath, "path", "", "entry path inside container files")
	convertCmd.Flags().BoolVar(&convertCoalesce, "coalesce", false, "coalesce segments after reading")
	convertCmd.Flags().BoolVar(&convertOverwrite, "overwrite", false, "overwrite the target if it exists")
}

func runConvert(cmd *cobra.Command, args []string) error {
	source, target := args[0], args[1]

	readOpts := []segio.Option{}
	if convertFrom != "" {
		readOpts = append(readOpts, segio.WithFormat(convertFrom))
	}
	if convertPath != "" {
		readOpts = append(readOpts, segio.WithPath(convertPath))
	}
	if convertCoalesce {
		readOpts = append(readOpts, segio.WithCoalesce())
	}

	writeOpts := []segio.Option{}
	if convertTo != "" {
		writeOpts = append(writeOpts, segio.WithFormat(convertTo))
	}
	if convertPath != "" {
		writeOpts = append(writeOpts, segio.WithPath(convertPath))
	}
	if convertOverwrite {
		writeOpts = append(writeOpts, segio.WithOverwrite())
	}

	switch convertKind {
	case "list":
		l, err := segio.ReadList(source, readOpts...)
		if err != nil {
			return fmt.Errorf("read %s: %w", source, err)
		}
		if err := segio.WriteList(l, target, writeOpts...); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Printf("converted %d segments to %s\n", len(l), target)
	case "flag":
		f, err := segio.ReadFlag(source, readOpts...)
		if err != nil {
			return fmt.Errorf("read %s: %w", source, err)
		}
		if err := segio.WriteFlag(f, target, writeOpts...); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Printf("converted %s to %s\n", f.Name, target)
	case "dict":
		d, err := segio.ReadDict(source, readOpts...)
		if err != nil {
			return fmt.Errorf("read %s: %w", source, err)
		}
		if err := segio.WriteDict(d, target, writeOpts...); err != nil {
			return fmt.Errorf("write %s: %w", target, err)
		}
		fmt.Printf("converted %d flags to %s\n", len(d), target)
	default:
		return fmt.Errorf("unknown kind %q (want list, flag, or dict)", convertKind)
	}

	return nil
}
