package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/lewtec/barber/barber"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the collection over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, coll, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer coll.Close()

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()

		groups, err := coll.Groups(ctx)
		if err != nil {
			return err
		}
		for _, group := range groups {
			logger.Printf("  - %s: %d folders", group.Name, len(group.Folders))
		}

		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		app := &barber.App{Collection: coll, Logger: logger}
		server := &http.Server{Addr: addr, Handler: app.GetHTTPHandler()}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", addr)
		err = server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", barber.DefaultAddr, "Address to bind the webserver")
	rootCmd.AddCommand(serveCmd)
}
