package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/cfoust/skeld/pkg/config"
	"github.com/cfoust/skeld/pkg/gameserver"
	"github.com/cfoust/skeld/pkg/ingress"

	"github.com/rs/zerolog/log"
)

// logBroadcasts journals every event the session sends out, which is the
// only place the whole game can be observed from the server side.
func logBroadcasts(ctx context.Context, server *gameserver.Server) {
	subscriber := server.Broadcasts.Subscribe()
	defer subscriber.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case message := <-subscriber.Recv():
			log.Debug().
				Str("type", string(message.Type())).
				Msg("broadcast")
		}
	}
}

func serveCommand(configs []string) error {
	conf, err := config.Process(configs)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load skeld configuration")
	}

	serverConfig := conf.Server

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := gameserver.New(ctx, serverConfig.Engine())
	go server.Poll(ctx)
	go logBroadcasts(ctx, server)

	wsIngress := ingress.NewWSIngress(server)

	errc := make(chan error, 1)
	go func() {
		errc <- wsIngress.Serve(ctx, serverConfig.Ingress.Web.Port)
	}()

	log.Info().
		Str("description", serverConfig.ServerDescription).
		Int("port", serverConfig.Ingress.Web.Port).
		Msg("server started")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)

	select {
	case err := <-errc:
		log.Printf("failed to serve: %v", err)
	case sig := <-sigs:
		log.Printf("terminating: %v", sig)
	}

	cancel()
	server.Cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		5*time.Second,
	)
	defer shutdownCancel()
	wsIngress.Shutdown(shutdownCtx)

	return nil
}
