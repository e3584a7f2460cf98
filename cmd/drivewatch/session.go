// ABOUTME: CLI commands for the driving session lifecycle.
// ABOUTME: Supports start, end, current, and history subcommands.
package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/session"
	"github.com/spf13/cobra"
)

var (
	sessionLocation string
	sessionWeather  string
	sessionRoad     string
	sessionDistance float64
	sessionAvg      float64
	sessionMax      int
	sessionAlerts   int
	sessionBreaks   int
	sessionLimit    int
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"s"},
	Short:   "Manage driving sessions",
	Long: `Start and end driving sessions.

A driver has at most one open session. Assessments recorded while a session
is open update its running fatigue average, maximum, alert, and break counts.
Ending a session credits its hours to the driver and folds it into the daily
metrics for the day it started.

WORKFLOW:

  1. Start:   drivewatch session start jdoe --location Depot
  2. Assess:  drivewatch assess jdoe --eye 12 --blink 14
  3. End:     drivewatch session end jdoe --location Port --distance 160`,
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <driver>",
	Short: "Start a driving session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		s, err := cli.svc.StartSession(cmd.Context(), d.ID, session.StartRequest{
			Location:       sessionLocation,
			Weather:        sessionWeather,
			RoadConditions: sessionRoad,
		})
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		out := cmd.OutOrStdout()
		success(out, "Started session for %s", d.Username)
		fmt.Fprintf(out, "  ID: %s\n", shortID(s.ID))
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end <driver> [session-id]",
	Short: "End a driving session",
	Long: `End a driving session. Without a session ID the driver's open session is ended.

Summary flags (--avg, --max, --alerts, --breaks) override the values the
server computed from the session's assessments.

Examples:
  drivewatch session end jdoe --location Port --distance 160
  drivewatch session end jdoe 3f2a9c1e-... --breaks 2`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}

		var sessionID uuid.UUID
		if len(args) == 2 {
			if sessionID, err = uuid.Parse(args[1]); err != nil {
				return fmt.Errorf("invalid session id: %s", args[1])
			}
		} else {
			cur, err := cli.svc.CurrentSession(cmd.Context(), d.ID)
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%s has no active session", d.Username)
			}
			if err != nil {
				return err
			}
			sessionID = cur.Session.ID
		}

		req := session.EndRequest{Location: sessionLocation, DistanceKm: sessionDistance}
		flags := cmd.Flags()
		if flags.Changed("avg") {
			req.Summary.AvgFatigue = &sessionAvg
		}
		if flags.Changed("max") {
			req.Summary.MaxFatigue = &sessionMax
		}
		if flags.Changed("alerts") {
			req.Summary.Alerts = &sessionAlerts
		}
		if flags.Changed("breaks") {
			req.Summary.Breaks = &sessionBreaks
		}

		res, err := cli.svc.EndSession(cmd.Context(), d.ID, sessionID, req)
		if err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}

		out := cmd.OutOrStdout()
		success(out, "Ended session for %s", d.Username)
		printSession(out, res.Session)
		fmt.Fprintf(out, "  Total driving: %.2f hours\n", res.Driver.TotalHours)
		return nil
	},
}

var sessionCurrentCmd = &cobra.Command{
	Use:   "current <driver>",
	Short: "Show the driver's open session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		cur, err := cli.svc.CurrentSession(cmd.Context(), d.ID)
		out := cmd.OutOrStdout()
		if errors.Is(err, models.ErrNotFound) {
			fmt.Fprintln(out, "No active session.")
			return nil
		}
		if err != nil {
			return err
		}

		printSession(out, cur.Session)
		fmt.Fprintf(out, "  Elapsed: %.2f hours\n", cur.ElapsedHours)
		fmt.Fprintf(out, "  Fatigue: %d\n", cur.FatigueLevel)
		return nil
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:     "history <driver>",
	Aliases: []string{"ls"},
	Short:   "List a driver's sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		sessions, err := cli.svc.GetSessionHistory(cmd.Context(), d.ID, sessionLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, s := range sessions {
			printSession(out, s)
		}
		return nil
	},
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionLocation, "location", "", "start location")
	sessionStartCmd.Flags().StringVar(&sessionWeather, "weather", "", "weather conditions")
	sessionStartCmd.Flags().StringVar(&sessionRoad, "road", "", "road conditions")

	sessionEndCmd.Flags().StringVar(&sessionLocation, "location", "", "end location")
	sessionEndCmd.Flags().Float64Var(&sessionDistance, "distance", 0, "distance driven in km")
	sessionEndCmd.Flags().Float64Var(&sessionAvg, "avg", 0, "override average fatigue (0-100)")
	sessionEndCmd.Flags().IntVar(&sessionMax, "max", 0, "override max fatigue (0-100)")
	sessionEndCmd.Flags().IntVar(&sessionAlerts, "alerts", 0, "override alert count")
	sessionEndCmd.Flags().IntVar(&sessionBreaks, "breaks", 0, "override break count")

	sessionHistoryCmd.Flags().IntVarP(&sessionLimit, "limit", "n", 20, "max number of results")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionCurrentCmd)
	sessionCmd.AddCommand(sessionHistoryCmd)
	rootCmd.AddCommand(sessionCmd)
}
