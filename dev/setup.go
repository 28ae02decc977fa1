package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	devenv "elecharvest/dev/env"
	"elecharvest/internal/application"
	"elecharvest/internal/store"
	configlibsql "elecharvest/lib/configutil/libsql"
)

const starterConfig = `{
  // the room to harvest, labels are matched against the wizard's options
  selection: {
    campus: "校本部",
    community: "D区",
    building: "1",
    room: "101",
    credential: "",
  },
  session: {
    // a json object of gateway cookie name to value, copied from a logged in browser
    cookies_file: "<dev_state>/cookies.json",
    dump_dir: "<dev_state>/resty",
  },
  database: { file: "<dev_state>/elec.db" },
  workbook_dir: "dev/.state/workbooks",
  server: { port: 8000, schedule: "0 3 * * *" },
}
`

func CreateHistoryDB() error {
	path, err := devenv.ResolvePath("<dev_state>/elec.db")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	db, err := configlibsql.Struct{File: path}.OpenDB()
	if err != nil {
		return err
	}
	defer db.Close()
	return store.NewStore(db).Migrate(context.Background())
}

// WriteStarterConfig writes an elec.json5 into the dev state and checks that it loads.
func WriteStarterConfig() error {
	path, err := devenv.GetStateFilePath("elec.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Println("writing starter config to", path)
		err = os.WriteFile(path, []byte(starterConfig), 0666)
	}
	if err != nil {
		return err
	}

	_, err = application.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("starter config does not load: %w", err)
	}
	return nil
}

func PrintConfigLocations() {
	slog.Info("fill in the credential of dev/.state/elec.json5 and export the gateway cookies to dev/.state/cookies.json, then run `go run ./cmd/elec-cli -c dev/.state/elec.json5 harvest`.")
}
