// ABOUTME: CLI commands for statistics, trends, and recent alerts.
// ABOUTME: Reads daily metrics through the service and prints summaries.
package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/drivewatch/internal/metrics"
	"github.com/spf13/cobra"
)

var (
	statsDays        int
	trendDays        int
	trendGranularity string
	alertsSince      time.Duration
)

var statsCmd = &cobra.Command{
	Use:   "stats <driver>",
	Short: "Show driving statistics and recommendations",
	Long: `Show a driver's driving statistics for a window of days, the fatigue trend
from recent assessments, and recommendations based on the last week.

Examples:
  drivewatch stats jdoe
  drivewatch stats jdoe --days 30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		st, err := cli.svc.GetStatistics(cmd.Context(), d.ID, statsDays)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		s := st.Summary
		fmt.Fprintf(out, "%s, last %d days\n", st.Driver.Username, st.WindowDays)
		fmt.Fprintf(out, "  Driving:  %.2f hours, %.1f km\n", s.Hours, s.DistanceKm)
		fmt.Fprintf(out, "  Sessions: %d over %d days\n", s.Sessions, s.DaysActive)
		fmt.Fprintf(out, "  Fatigue:  %.1f average\n", s.AvgFatigue)
		fmt.Fprintf(out, "  Alerts:   %d\n", s.Alerts)
		if len(st.FatigueTrend) > 0 {
			levels := make([]string, len(st.FatigueTrend))
			for i, l := range st.FatigueTrend {
				levels[i] = fmt.Sprint(l)
			}
			fmt.Fprintf(out, "  Trend:    %s\n", strings.Join(levels, " "))
		}
		if len(st.Recommendations) > 0 {
			fmt.Fprintln(out, "\nRecommendations:")
			for _, r := range st.Recommendations {
				fmt.Fprintf(out, "  - %s\n", r)
			}
		}
		return nil
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend <driver>",
	Short: "Show daily or weekly driving buckets",
	Long: `Show driving hours, distance, fatigue, and alerts per day or per week.

Days without driving are skipped. Weeks start on Monday.

Examples:
  drivewatch trend jdoe
  drivewatch trend jdoe --granularity weekly --days 90`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := metrics.ParseGranularity(trendGranularity)
		if err != nil {
			return err
		}
		if trendDays < 1 {
			return fmt.Errorf("days must be positive, got %d", trendDays)
		}
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		w := metrics.LastDays(trendDays, cli.svc.Now(), g)
		n := 0
		for b, err := range cli.svc.GetTrend(cmd.Context(), d.ID, w) {
			if err != nil {
				return err
			}
			n++
			fmt.Fprintf(out, "%s %6.2fh %7.1fkm sessions %d avg %5.1f max %3d alerts %d\n",
				faint.Sprint(b.Start.Format("2006-01-02")),
				b.Hours, b.DistanceKm, b.Sessions, b.AvgFatigue, b.MaxFatigue, b.Alerts)
		}
		if n == 0 {
			fmt.Fprintln(out, "No driving in this window.")
		}
		return nil
	},
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List recent alerts across all drivers",
	Long: `List alerting health records across all drivers, newest first.

Examples:
  drivewatch alerts
  drivewatch alerts --since 2h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		alerts, err := cli.svc.ListRecentAlerts(cmd.Context(), alertsSince)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No recent alerts.")
			return nil
		}
		for _, r := range alerts {
			fmt.Fprint(out, faint.Sprint(shortID(r.DriverID))+" ")
			printRecord(out, r)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "window size in days (1-365)")

	trendCmd.Flags().IntVar(&trendDays, "days", 30, "window size in days")
	trendCmd.Flags().StringVarP(&trendGranularity, "granularity", "g", "daily", "bucket size (daily, weekly)")

	alertsCmd.Flags().DurationVar(&alertsSince, "since", 24*time.Hour, "look-back window")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(alertsCmd)
}
