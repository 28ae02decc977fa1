package commands

import (
	"log/slog"
	"os"

	"elecharvest/internal/scrapers/elecweb"
	"elecharvest/internal/service"
	"elecharvest/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	harvestStart       *string
	harvestEnd         *string
	harvestRoom        *string
	harvestCredential  *string
	harvestWithRecords *bool
	harvestJson        *bool
)

func init() {
	harvestStart = harvestCmd.Flags().String("start", "", "The first month to harvest as YYYY-MM, defaults to the current month.")
	harvestEnd = harvestCmd.Flags().String("end", "", "The last month to harvest as YYYY-MM, defaults to the current month.")
	harvestRoom = harvestCmd.Flags().String("room", "", "Overrides the room of the configured selection.")
	harvestCredential = harvestCmd.Flags().String("credential", "", "Overrides the query password of the configured selection.")
	harvestWithRecords = harvestCmd.Flags().Bool("records", false, "Also print every usage record.")
	harvestJson = harvestCmd.Flags().Bool("json", false, "Print the result as json.")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [--start YYYY-MM] [--end YYYY-MM] [--room <room>]",
	Short: "Harvests the usage records of a room for a range of months and stores them.",
	Run: func(cmd *cobra.Command, args []string) {
		req := service.HarvestRequest{
			Selection: elecweb.Selection{
				Room:       *harvestRoom,
				Credential: *harvestCredential,
			},
			Start: *harvestStart,
			End:   *harvestEnd,
		}

		var res *service.HarvestResponse
		if client, ok := remoteClient(); ok {
			var err error
			res, err = client.Harvest(cmd.Context(), &req)
			if err != nil {
				serviceutil.Fatal("failed to harvest", err)
			}
		} else {
			res = harvestLocally(cmd, req)
		}

		if res.Error != "" {
			slog.Warn("harvest did not complete", "err", res.Error)
		}
		slog.Info("harvest saved", "id", res.HarvestId)

		if *harvestJson {
			err := printJson(res.Result)
			if err != nil {
				serviceutil.Fatal("failed to encode result", err)
			}
			return
		}
		renderResult(res.Result, *harvestWithRecords)
	},
}

func harvestLocally(cmd *cobra.Command, req service.HarvestRequest) *service.HarvestResponse {
	app := loadApp()

	history, db, err := app.OpenStore(cmd.Context())
	if err != nil {
		serviceutil.Fatal("failed to open history", err)
	}
	defer db.Close()

	setup := terminalSetup{in: os.Stdin, out: os.Stderr}
	svc := service.NewHarvestService(
		func() (service.HarvestAPI, error) {
			harvester, err := app.NewHarvester(setup)
			if err != nil {
				return nil, err
			}
			return harvester, nil
		},
		history,
		service.WithSink(app.Sinks()),
		service.WithDefaultSelection(app.Config().Selection),
	)

	res, err := svc.RunHarvest(cmd.Context(), req)
	if err != nil {
		serviceutil.Fatal("failed to harvest", err)
	}
	return &res
}
