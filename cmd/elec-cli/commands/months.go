package commands

import (
	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/service"
	"elecharvest/internal/store"
	"elecharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var monthsRoom *string

func init() {
	monthsRoom = monthsCmd.Flags().String("room", "", "Overrides the room of the configured selection.")
	rootCmd.AddCommand(monthsCmd)
}

var monthsCmd = &cobra.Command{
	Use:   "months [--room <room>]",
	Short: "Prints the usage of every month harvested so far for a room.",
	Run: func(cmd *cobra.Command, args []string) {
		if client, ok := remoteClient(); ok {
			room := monthsTarget(loadApp().Config().Selection)
			res, err := client.MonthlyUsage(cmd.Context(), &service.MonthlyUsageRequest{Room: room})
			if err != nil {
				serviceutil.Fatal("failed to get monthly usage", err)
			}
			renderMonthly(res.Months, res.Total)
			return
		}

		withHistory(cmd.Context(), func(history store.Store, selection elecweb.Selection) {
			months, err := history.MonthlyUsage(cmd.Context(), monthsTarget(selection))
			if err != nil {
				serviceutil.Fatal("failed to get monthly usage", err)
			}
			total := 0.0
			for _, m := range months {
				total += m.Usage
			}
			renderMonthly(months, total)
		})
	},
}

func monthsTarget(selection elecweb.Selection) store.Room {
	room := store.RoomOf(selection)
	if *monthsRoom != "" {
		room.Room = *monthsRoom
	}
	return room
}
