// ABOUTME: CLI commands for managing drivers.
// ABOUTME: Supports register, show, and active subcommands.
package main

import (
	"fmt"

	"github.com/harperreed/drivewatch/internal/service"
	"github.com/spf13/cobra"
)

var (
	driverEmail   string
	driverName    string
	driverPhone   string
	driverLicense string
	driverVehicle string
)

var driverCmd = &cobra.Command{
	Use:     "driver",
	Aliases: []string{"d"},
	Short:   "Manage drivers",
	Long: `Register drivers and inspect their current state.

COMMANDS:

  register   Register a new driver
  show       Show a driver's profile with today's metrics
  active     List drivers with an open session`,
}

var driverRegisterCmd = &cobra.Command{
	Use:   "register <username>",
	Short: "Register a new driver",
	Long: `Register a new driver. Username, email, and license number must be unique.

Examples:
  drivewatch driver register jdoe --email jdoe@example.com
  drivewatch driver register bigrig --email rig@example.com --vehicle truck --license D-1234`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := cli.svc.RegisterDriver(cmd.Context(), service.Registration{
			Username:      args[0],
			FullName:      driverName,
			Email:         driverEmail,
			Phone:         driverPhone,
			LicenseNumber: driverLicense,
			VehicleType:   driverVehicle,
		})
		if err != nil {
			return fmt.Errorf("failed to register driver: %w", err)
		}

		out := cmd.OutOrStdout()
		success(out, "Registered %s", d.Username)
		fmt.Fprintf(out, "  ID: %s\n", shortID(d.ID))
		fmt.Fprintf(out, "  Vehicle: %s\n", d.VehicleType)
		return nil
	},
}

var driverShowCmd = &cobra.Command{
	Use:   "show <driver>",
	Short: "Show a driver's profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := resolveDriver(cmd, args[0])
		if err != nil {
			return err
		}
		p, err := cli.svc.GetProfile(cmd.Context(), d.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", p.Driver.Username, faint.Sprint(p.Driver.ID))
		if p.Driver.FullName != "" {
			fmt.Fprintf(out, "  Name:     %s\n", p.Driver.FullName)
		}
		fmt.Fprintf(out, "  Vehicle:  %s\n", p.Driver.VehicleType)
		fmt.Fprintf(out, "  Status:   %s\n", p.Driver.Status)
		fmt.Fprintf(out, "  Health:   %s\n", p.Driver.HealthStatus)
		fmt.Fprintf(out, "  Fatigue:  %d\n", p.Driver.FatigueLevel)
		fmt.Fprintf(out, "  Total:    %.2f hours\n", p.Driver.TotalHours)
		fmt.Fprintf(out, "  Today:    %.2f hours, %.1f km, %d sessions, %d alerts\n",
			p.Today.Hours, p.Today.DistanceKm, p.Today.SessionCount, p.Today.AlertCount)
		if p.ActiveSession != nil {
			fmt.Fprint(out, "  Session:  ")
			printSession(out, p.ActiveSession)
		}
		if p.LatestRecord != nil {
			fmt.Fprint(out, "  Latest:   ")
			printRecord(out, p.LatestRecord)
		}
		return nil
	},
}

var driverActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "List drivers with an open session",
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := cli.svc.ListActiveDrivers(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(active) == 0 {
			fmt.Fprintln(out, "No active drivers.")
			return nil
		}
		for _, a := range active {
			fmt.Fprintf(out, "%s %s %.2fh fatigue %d\n",
				faint.Sprint(shortID(a.Driver.ID)),
				padRight(a.Driver.Username, 16),
				a.ElapsedHours,
				a.Driver.FatigueLevel)
		}
		return nil
	},
}

func init() {
	driverRegisterCmd.Flags().StringVar(&driverEmail, "email", "", "email address (required)")
	driverRegisterCmd.Flags().StringVar(&driverName, "name", "", "full name")
	driverRegisterCmd.Flags().StringVar(&driverPhone, "phone", "", "phone number")
	driverRegisterCmd.Flags().StringVar(&driverLicense, "license", "", "license number")
	driverRegisterCmd.Flags().StringVar(&driverVehicle, "vehicle", "car", "vehicle type (car, truck, bus)")

	driverCmd.AddCommand(driverRegisterCmd)
	driverCmd.AddCommand(driverShowCmd)
	driverCmd.AddCommand(driverActiveCmd)
	rootCmd.AddCommand(driverCmd)
}
