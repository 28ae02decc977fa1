package commands

import (
	"context"
	"strconv"

	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/service"
	"elecharvest/internal/store"
	"elecharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	historyLimit   *int
	historyAllRoom *bool
	showRecords    *bool
	showJson       *bool
)

func init() {
	historyLimit = historyCmd.Flags().Int("limit", 20, "The maximum amount of harvests to list.")
	historyAllRoom = historyCmd.Flags().Bool("all", false, "List harvests of every room instead of the configured one.")
	showRecords = showCmd.Flags().Bool("records", false, "Also print every usage record.")
	showJson = showCmd.Flags().Bool("json", false, "Print the harvest as json.")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}

// withHistory runs fn against the local history database.
func withHistory(ctx context.Context, fn func(history store.Store, selection elecweb.Selection)) {
	app := loadApp()
	history, db, err := app.OpenStore(ctx)
	if err != nil {
		serviceutil.Fatal("failed to open history", err)
	}
	defer db.Close()
	fn(history, app.Config().Selection)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--all]",
	Short: "Lists past harvests, most recent first.",
	Run: func(cmd *cobra.Command, args []string) {
		if client, ok := remoteClient(); ok {
			req := &service.ListHarvestsRequest{Limit: *historyLimit}
			if !*historyAllRoom {
				cfg := loadApp().Config()
				room := store.RoomOf(cfg.Selection)
				req.Room = &room
			}
			res, err := client.ListHarvests(cmd.Context(), req)
			if err != nil {
				serviceutil.Fatal("failed to list harvests", err)
			}
			renderHarvests(res.Harvests)
			return
		}

		withHistory(cmd.Context(), func(history store.Store, selection elecweb.Selection) {
			filter := store.HarvestFilter{Limit: *historyLimit}
			if !*historyAllRoom {
				room := store.RoomOf(selection)
				filter.Room = &room
			}
			harvests, err := history.ListHarvests(cmd.Context(), filter)
			if err != nil {
				serviceutil.Fatal("failed to list harvests", err)
			}
			renderHarvests(harvests)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <harvest_id>",
	Short: "Prints a past harvest.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			serviceutil.Fatal("invalid harvest id", err)
		}

		var result *elecweb.HarvestResult
		if client, ok := remoteClient(); ok {
			res, err := client.GetHarvest(cmd.Context(), &service.GetHarvestRequest{Id: id})
			if err != nil {
				serviceutil.Fatal("failed to get harvest", err)
			}
			result = res.Result
		} else {
			withHistory(cmd.Context(), func(history store.Store, _ elecweb.Selection) {
				result, err = history.GetHarvest(cmd.Context(), id)
				if err != nil {
					serviceutil.Fatal("failed to get harvest", err)
				}
			})
		}

		if *showJson {
			err = printJson(result)
			if err != nil {
				serviceutil.Fatal("failed to encode harvest", err)
			}
			return
		}
		renderResult(result, *showRecords)
	},
}
