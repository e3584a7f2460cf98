// ABOUTME: CLI commands that record health records for a driver.
// ABOUTME: Covers drowsiness assessments, self-reported updates, emergencies, and listing.
package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/session"
	"github.com/spf13/cobra"
)

var (
	assessEye      float64
	assessBlink    float64
	assessHead     string
	assessYawn     bool
	assessHours    float64
	assessResponse string

	updateSleep float64
	updateRest  float64
	updateNotes string

	emergencyNotes string

	recordsLimit int
)

var assessCmd = &cobra.Command{
	Use:   "assess <driver>",
	Short: "Score a drowsiness sample",
	Long: `Score one drowsiness telemetry sample and record it.

The fatigue level (0-100) is a weighted blend of eye closure, blink rate,
head position, yawning, and hours driven. Warning and critical tiers raise
an alert.

Examples:
  drivewatch assess jdoe --eye 25 --blink 15
  drivewatch assess jdoe --eye 10 --blink 5 --head down --yawn --hours 7
  drivewatch assess jdoe --eye 40 --blink 8 --response took_break`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := cli.svc.SubmitAssessment(cmd.Context(), d.ID, models.Sample{
			EyeClosurePct: assessEye,
			BlinkFreq:     assessBlink,
			HeadPosition:  models.HeadPosition(assessHead),
			YawnDetected:  assessYawn,
			HoursDriven:   assessHours,
			Response:      models.DriverResponse(assessResponse),
		})
		if err != nil {
			return fmt.Errorf("failed to record assessment: %w", err)
		}
		printOutcome(cmd.OutOrStdout(), res)
		return nil
	},
}

var healthUpdateCmd = &cobra.Command{
	Use:   "health-update <driver> <tiredness>",
	Short: "Record a self-reported tiredness level (0-10)",
	Long: `Record a self-reported tiredness level from 0 to 10. The fatigue level is
ten times the tiredness.

Examples:
  drivewatch health-update jdoe 3 --sleep 7.5
  drivewatch health-update jdoe 8 --rest 5 --notes "long night"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tiredness, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid tiredness level: %s", args[1])
		}
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}

		u := session.HealthUpdate{TirednessLevel: tiredness, Notes: updateNotes}
		if cmd.Flags().Changed("sleep") {
			u.SleepHours = &updateSleep
		}
		if cmd.Flags().Changed("rest") {
			u.HoursSinceRest = &updateRest
		}

		res, err := cli.svc.RecordHealthUpdate(cmd.Context(), d.ID, u)
		if err != nil {
			return fmt.Errorf("failed to record health update: %w", err)
		}
		printOutcome(cmd.OutOrStdout(), res)
		return nil
	},
}

var emergencyCmd = &cobra.Command{
	Use:   "emergency <driver>",
	Short: "Report a driver emergency",
	Long: `Report a driver emergency. Emergencies are always critical and always alert.

Examples:
  drivewatch emergency jdoe --notes "chest pain, pulled over at km 212"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		res, err := cli.svc.ReportEmergency(cmd.Context(), d.ID, emergencyNotes)
		if err != nil {
			return fmt.Errorf("failed to report emergency: %w", err)
		}
		printOutcome(cmd.OutOrStdout(), res)
		return nil
	},
}

var recordsCmd = &cobra.Command{
	Use:     "records <driver>",
	Aliases: []string{"r"},
	Short:   "List a driver's health records",
	Long: `List a driver's health records, most recent first.

OUTPUT FORMAT:

  Each line shows: ID  TIMESTAMP  KIND  FATIGUE  TIER  [ALERT]  (NOTES)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		records, err := cli.svc.GetHealthHistory(cmd.Context(), d.ID, recordsLimit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No health records found.")
			return nil
		}
		for _, r := range records {
			printRecord(out, r)
		}
		return nil
	},
}

func printOutcome(w io.Writer, res *session.Result) {
	r := res.Record
	success(w, "Recorded %s for %s", r.Kind, res.Driver.Username)
	fmt.Fprintf(w, "  Fatigue: %d %s\n", r.FatigueLevel, tierColor(r.Tier).Sprint(r.Tier))
	fmt.Fprintf(w, "  %s\n", r.Recommendation)
	if r.AlertSent {
		fmt.Fprintln(w, tierColor(r.Tier).Sprint("  Alert sent"))
	}
}

func init() {
	assessCmd.Flags().Float64Var(&assessEye, "eye", 0, "eye closure percentage (0-100)")
	assessCmd.Flags().Float64Var(&assessBlink, "blink", 0, "blinks per minute")
	assessCmd.Flags().StringVar(&assessHead, "head", "normal", "head position (normal, tilted, down)")
	assessCmd.Flags().BoolVar(&assessYawn, "yawn", false, "yawn detected")
	assessCmd.Flags().Float64Var(&assessHours, "hours", 0, "hours driven so far")
	assessCmd.Flags().StringVar(&assessResponse, "response", "", "driver response (acknowledged, dismissed, took_break)")

	healthUpdateCmd.Flags().Float64Var(&updateSleep, "sleep", 0, "hours slept")
	healthUpdateCmd.Flags().Float64Var(&updateRest, "rest", 0, "hours since last rest")
	healthUpdateCmd.Flags().StringVar(&updateNotes, "notes", "", "notes")

	emergencyCmd.Flags().StringVar(&emergencyNotes, "notes", "", "what happened")

	recordsCmd.Flags().IntVarP(&recordsLimit, "limit", "n", 20, "max number of results")

	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(healthUpdateCmd)
	rootCmd.AddCommand(emergencyCmd)
	rootCmd.AddCommand(recordsCmd)
}
