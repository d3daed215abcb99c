package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dqtools/segments/internal/dqsegdb"
	"github.com/dqtools/segments/internal/flags"
	"github.com/dqtools/segments/internal/gwosc"
	"github.com/dqtools/segments/internal/segio"
	"github.com/dqtools/segments/internal/segments"
	"github.com/dqtools/segments/pkg/httputil"
	"github.com/dqtools/segments/pkg/logger"
	"github.com/dqtools/segments/pkg/redis"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query FLAG START END",
	Short: "Query a flag from a segment database",
	Long: `Query known and active segments for one flag over a GPS span.

By default the query goes to the DQSEGDB server named by DQSEGDB_URL.
With --gwosc-run the flag is fetched from the public GWOSC timeline
service instead, where FLAG is a timeline name such as H1_DATA.

Examples:
  segctl query X1:TEST-FLAG_NAME:1 1126051217 1126137617
  segctl query X1:TEST-FLAG_NAME 1126051217 1126137617 --output flag.json
  segctl query H1_DATA 1126051217 1126137617 --gwosc-run O1`,
	Args: cobra.ExactArgs(3),
	RunE: runQuery,
}

var (
	queryOutput    string
	queryOverwrite bool
	queryGWOSCRun  string
	queryFresh     bool
)

func init() {
	rootCmd.AddCommand(queryCmd)

	// Flags
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "", "write the flag to this file instead of stdout")
	queryCmd.Flags().BoolVar(&queryOverwrite, "overwrite", false, "overwrite the output file if it exists")
	queryCmd.Flags().StringVar(&queryGWOSCRun, "gwosc-run", "", "fetch from the GWOSC timeline for this observing run")
	queryCmd.Flags().BoolVar(&queryFresh, "fresh", false, "drop cached DQSEGDB responses for this span before querying")
}

func runQuery(cmd *cobra.Command, args []string) error {
	name := args[0]

	start, err := segments.ParseTime(args[1])
	if err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	end, err := segments.ParseTime(args[2])
	if err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}
	if end <= start {
		return fmt.Errorf("end time must be after start time")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)
	httpClient := httputil.New(log)

	var f *flags.Flag
	if queryGWOSCRun != "" {
		client := gwosc.New(cfg, log, httpClient)
		f, err = client.FetchSegments(cmd.Context(), queryGWOSCRun, name, start, end)
	} else {
		client := dqsegdb.New(cfg, log, httpClient)
		if cfg.Redis.Enabled {
			rdb, rerr := redis.New(cfg)
			if rerr != nil {
				return fmt.Errorf("connect to redis: %w", rerr)
			}
			defer rdb.Close()
			client = client.WithCache(redis.NewCache(rdb, "dqsegdb"))

			if queryFresh {
				if ierr := client.Invalidate(cmd.Context(), name, start, end); ierr != nil {
					return fmt.Errorf("invalidate cache for %s: %w", name, ierr)
				}
			}
		}
		f, err = flags.QueryDQSegDBSpan(cmd.Context(), client, name, start, end)
	}
	if err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}

	if queryOutput != "" {
		opts := []segio.Option{}
		if queryOverwrite {
			opts = append(opts, segio.WithOverwrite())
		}
		if err := segio.WriteFlag(f, queryOutput, opts...); err != nil {
			return fmt.Errorf("write %s: %w", queryOutput, err)
		}
		fmt.Printf("wrote %s to %s\n", f.Name, queryOutput)
		return nil
	}

	printFlag(f)
	return nil
}

// printFlag writes a human-readable flag summary to stdout.
func printFlag(f *flags.Flag) {
	fmt.Printf("%s\n", f.Name)
	fmt.Printf("  livetime: %s s\n", f.Livetime())
	fmt.Printf("  known:\n")
	for _, seg := range f.Known {
		fmt.Printf("    %s\n", seg)
	}
	fmt.Printf("  active:\n")
	for _, seg := range f.Active {
		fmt.Printf("    %s\n", seg)
	}
}
