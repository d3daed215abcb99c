package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dqtools/segments/internal/dqsegdb"
	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/segio"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/internal/veto"
	"github.com/dqtools/segments/pkg/httputil"
	"github.com/dqtools/segments/pkg/logger"
)

// vetoCmd represents the veto command
var vetoCmd = &cobra.Command{
	Use:   "veto SOURCE",
	Short: "Read a veto definer document",
	Long: `Read a veto definer document into a flag dictionary.

SOURCE is a local LIGO_LW XML file or an http(s) URL. With --populate
each flag's active segments are filled in from the DQSEGDB server over
the flag's own known time, restricted to [--start, --end) when given,
and the flag's veto padding is applied.

Examples:
  segctl veto vetoes.xml
  segctl veto https://example.org/vetoes.xml --populate --start 1126051217 --end 1126137617
  segctl veto vetoes.xml --populate --output vetoes.seg`,
	Args: cobra.ExactArgs(1),
	RunE: runVeto,
}

var (
	vetoPopulate  bool
	vetoStart     string
	vetoEnd       string
	vetoOutput    string
	vetoOverwrite bool
)

func init() {
	rootCmd.AddCommand(vetoCmd)

	// Flags
	vetoCmd.Flags().BoolVar(&vetoPopulate, "populate", false, "fill active segments from the segment database")
	vetoCmd.Flags().StringVar(&vetoStart, "start", "", "restrict population to times at or after this GPS time")
	vetoCmd.Flags().StringVar(&vetoEnd, "end", "", "restrict population to times before this GPS time")
	vetoCmd.Flags().StringVarP(&vetoOutput, "output", "o", "", "write the dictionary to this file instead of stdout")
	vetoCmd.Flags().BoolVar(&vetoOverwrite, "overwrite", false, "overwrite the output file if it exists")
}

func runVeto(cmd *cobra.Command, args []string) error {
	source := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	var dict flags.Dict
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		dict, err = veto.Fetch(cmd.Context(), httputil.New(log), source)
	} else {
		dict, err = veto.LoadFile(source)
	}
	if err != nil {
		return fmt.Errorf("load veto definer %s: %w", source, err)
	}

	if vetoPopulate {
		spans, err := vetoSpans()
		if err != nil {
			return err
		}

		client := dqsegdb.New(cfg, log, httputil.New(log))
		if err := dict.Populate(cmd.Context(), client, spans); err != nil {
			return fmt.Errorf("populate veto flags: %w", err)
		}
	}

	if vetoOutput != "" {
		opts := []segio.Option{}
		if vetoOverwrite {
			opts = append(opts, segio.WithOverwrite())
		}
		if err := segio.WriteDict(dict, vetoOutput, opts...); err != nil {
			return fmt.Errorf("write %s: %w", vetoOutput, err)
		}
		fmt.Printf("wrote %d flags to %s\n", len(dict), vetoOutput)
		return nil
	}

	for _, name := range dict.Names() {
		f := dict[name]
		fmt.Printf("%s (category %d, padding %s/%s)\n",
			name, f.Category, f.Padding.Pre, f.Padding.Post)
		for _, seg := range f.Known {
			fmt.Printf("  known  %s\n", seg)
		}
		for _, seg := range f.Active {
			fmt.Printf("  active %s\n", seg)
		}
	}
	return nil
}

// vetoSpans turns the optional --start/--end pair into a restriction list,
// or nil when neither was given.
func vetoSpans() (segments.List, error) {
	if vetoStart == "" && vetoEnd == "" {
		return nil, nil
	}
	if vetoStart == "" || vetoEnd == "" {
		return nil, fmt.Errorf("--start and --end must be given together")
	}

	start, err := segments.ParseTime(vetoStart)
	if err != nil {
		return nil, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := segments.ParseTime(vetoEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid --end: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("--end must be after --start")
	}
	return segments.List{segments.NewSegment(start, end)}, nil
}
