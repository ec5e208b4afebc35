package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/georisk"
	"github.com/brunobiangulo/georisk/report"
)

func (a *app) runCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch headlines and record their risk signals in the graph",
		Long: `Fetch up to --max headlines from the news feed (or --file), ask the model
for a Country | Mineral | Score | HistoricalNote reading of each, and store
every well-formed result as an Article linked to its Country and Mineral.

Headlines that fail at any stage are skipped and reported. The command only
fails when the feed itself cannot be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			rep, err := e.Run(cmd.Context())
			if rep != nil {
				if asJSON {
					if werr := writeJSONTo(a.out, rep); werr != nil {
						return werr
					}
				} else {
					printReport(a.out, rep)
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.String("query", "", "news search query or RSS/Atom feed URL")
	f.String("file", "", "read headlines from a .txt or .xlsx file")
	f.Int("max", 0, "maximum headlines to process")
	f.Duration("delay", 0, "minimum time between headlines")
	f.BoolVar(&asJSON, "json", false, "print the run report as JSON")
	a.v.BindPFlag("feed.query", f.Lookup("query"))
	a.v.BindPFlag("feed.path", f.Lookup("file"))
	a.v.BindPFlag("feed.max_headlines", f.Lookup("max"))
	a.v.BindPFlag("item_delay", f.Lookup("delay"))
	return cmd
}

func (a *app) analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <headline>",
		Short: "Show the signal and hype a headline would get, without storing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			res := e.Preview(cmd.Context(), strings.Join(args, " "))
			if err := writeJSONTo(a.out, res); err != nil {
				return err
			}
			if res.State == georisk.StateSkipped {
				return res.Err
			}
			return nil
		},
	}
}

func (a *app) hypeCmd() *cobra.Command {
	var date string
	var all bool
	cmd := &cobra.Command{
		Use:   "hype",
		Short: "Show per-mineral article counts and hype for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			day := date
			if all {
				day = ""
			} else if day == "" {
				day = e.Today()
			}
			rows, err := e.Hype(cmd.Context(), day)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tMINERAL\tARTICLES\tMAX HYPE\tAVG RISK")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.1f\n", r.Date, r.Mineral, r.Articles, r.MaxHype, r.AvgRisk)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&all, "all", false, "cover every day")
	return cmd
}

func (a *app) exposureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exposure <mineral>",
		Short: "List the countries linked to a mineral",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := e.Exposure(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "COUNTRY\tARTICLES\tAVG RISK\tMAX RISK")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\t%.1f\t%d\n", r.Country, r.Articles, r.AvgRisk, r.MaxRisk)
			}
			return tw.Flush()
		},
	}
}

func (a *app) similarCmd() *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "similar <text>",
		Short: "Find stored articles similar to a piece of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			hits, err := e.Similar(cmd.Context(), strings.Join(args, " "), k)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SCORE\tDATE\tCOUNTRY\tMINERAL\tRISK\tTITLE")
			for _, h := range hits {
				fmt.Fprintf(tw, "%.3f\t%s\t%s\t%s\t%d\t%s\n", h.Score, h.Date, h.Country, h.Mineral, h.Risk, h.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&k, "limit", "k", 5, "number of results")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print node and edge counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			stats, err := e.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSONTo(a.out, stats)
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var format, out, date string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored articles as an xlsx workbook or an Atom/RSS feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			ctx := cmd.Context()
			articles, err := e.Articles(ctx, date)
			if err != nil {
				return err
			}

			w := a.out
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("creating %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "xlsx":
				if w == a.out {
					return fmt.Errorf("xlsx export needs --out")
				}
				hype, err := e.Hype(ctx, date)
				if err != nil {
					return err
				}
				return report.WriteXLSX(w, articles, hype)
			case report.FormatAtom, report.FormatRSS:
				return report.WriteFeed(w, format, feedInfo(time.Now()), articles)
			default:
				return fmt.Errorf("unknown export format %q (want xlsx, atom or rss)", format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVar(&format, "format", "xlsx", "xlsx, atom or rss")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout for feeds)")
	f.StringVar(&date, "date", "", "only export one day (YYYY-MM-DD)")
	return cmd
}

func feedInfo(updated time.Time) report.FeedInfo {
	return report.FeedInfo{
		Title:       "georisk: mineral supply-risk signals",
		Link:        "https://github.com/brunobiangulo/georisk",
		Description: "Headlines scored for geopolitical supply risk to critical minerals",
		Updated:     updated,
	}
}

func printReport(w io.Writer, rep *georisk.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATE\tCOUNTRY\tMINERAL\tSCORE\tHYPE\tHEADLINE")
	for _, it := range rep.Items {
		country, mineral, score := "-", "-", "-"
		if it.Signal != nil {
			country, mineral, score = it.Signal.Country, it.Signal.Mineral, it.Signal.Score
		}
		state := string(it.State)
		if it.State == georisk.StateSkipped {
			state += "(" + string(it.Stage) + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", state, country, mineral, score, it.Hype, it.Headline)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nrun %s: fetched %d, stored %d, skipped %d\n", rep.RunID, rep.Fetched, rep.Stored, rep.Skipped)
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
