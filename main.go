package main

import (
	"context"
	"log"
	"os"
	"time"

	"kitshed/app"
	"kitshed/config"
	"kitshed/controllers"
	"kitshed/routes"
	"kitshed/services"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	root := &cli.Command{
		Name:  "kitshed",
		Usage: "Equipment kit composition and checkout service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the HTTP API and the scheduled overdue sweep",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return serve(ctx)
				},
			},
			{
				Name:  "sweep",
				Usage: "Run one overdue sweep across all tenants and exit",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return sweepOnce(ctx)
				},
			},
		},
	}

	args := os.Args
	if len(args) == 1 {
		args = append(args, "serve")
	}
	if err := root.Run(context.Background(), args); err != nil {
		log.Fatal(err)
	}
}

func serve(ctx context.Context) error {
	config.LoadEnv()
	application := app.MustNew()
	defer application.Close()

	r := application.Router

	// Health
	r.GET("/healthz", func(c *app.Ctx) { c.JSON(200, app.H{"ok": true}) })

	routes.RegisterRoutes(r, application)

	s := controllers.GetSrv(application)
	sweeper := services.NewSweeper(s.Repo, application.RDB, application.Log, application.Config.SweepInterval)
	go sweeper.Run(ctx)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3001"
	}
	application.Log.Info("listening", zap.String("port", port))
	return r.Run(":" + port)
}

func sweepOnce(ctx context.Context) error {
	config.LoadEnv()
	application := app.MustNew()
	defer application.Close()

	s := controllers.GetSrv(application)
	sweeper := services.NewSweeper(s.Repo, application.RDB, application.Log, time.Minute)
	return sweeper.RunOnce(ctx)
}
