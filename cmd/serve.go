package cmd

import (
	"github.com/jinconfig/jin/internal/server"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd := NewGlobalCommand("serve", "Serve this store's layer refs over HTTP for other jin instances to link to", runServe)
	serveCmd.Flags().StringVar(&serveHost, "host", server.DefaultHost, "address to bind")
	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "port to bind")
	rootCmd.AddCommand(serveCmd)
}

func runServe(app *App, args []string) error {
	srv := server.NewServer(app.Store, app.Refs)
	srv.Configure(server.ServerOptions{Host: serveHost, Port: servePort, Verbose: true})
	if err := srv.Init(); err != nil {
		return err
	}
	return srv.Start()
}
