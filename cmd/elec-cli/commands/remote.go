package commands

import (
	"net/http"

	"elecharvest/internal/service"
	"elecharvest/lib/serviceutil"

	"connectrpc.com/connect"
)

var (
	serverUrl   *string
	serverToken *string
)

func init() {
	serverUrl = rootCmd.PersistentFlags().String("server", "", "Talk to an elecd instance at this url instead of harvesting locally.")
	serverToken = rootCmd.PersistentFlags().String("token", "", "The access token of the elecd instance.")
}

// remoteClient returns a client when --server was given.
func remoteClient() (service.Client, bool) {
	if *serverUrl == "" {
		return service.Client{}, false
	}
	var opts []connect.ClientOption
	if *serverToken != "" {
		opts = append(opts, connect.WithInterceptors(serviceutil.ProvideAccessTokenInterceptor(*serverToken)))
	}
	return service.NewClient(http.DefaultClient, *serverUrl, opts...), true
}
