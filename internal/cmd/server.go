package cmd

import (
	"context"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"tangle/internal/activity"
	"tangle/internal/api"
	"tangle/internal/auth"
	"tangle/internal/cmd/flags"
	"tangle/internal/core"
	"tangle/internal/feeds"
	"tangle/internal/interactions"
	"tangle/internal/metrics"
	"tangle/internal/nats"
	"tangle/internal/persistence"
	"tangle/internal/persistence/posts"
	"tangle/internal/persistence/users"
)

var serverCmd = &cli.Command{
	Name:  "server",
	Usage: "Run the API server, the metrics server and the activity publisher",
	Flags: []cli.Flag{
		flags.DatabaseURL,
		flags.ListenAddr,
		flags.MetricsAddr,
		flags.NATSUrl,
		flags.InitNATS,
		flags.MaxPostLength,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		return run(ctx, c,
			pal.Provide[core.DB](&persistence.DB{}),
			pal.Provide[core.UserRepository](&users.Repository{}),
			pal.Provide[core.PostRepository](&posts.Repository{}),
			pal.Provide[core.Feeds](&feeds.Service{}),
			pal.Provide[core.Interactions](&interactions.Service{}),
			pal.Provide[core.AuthProvider](&auth.Provider{}),
			pal.Provide[core.ActivityPublisher](&activity.Publisher{}),
			pal.Provide(&api.Backend{}),
			pal.Provide(&api.Server{}),
			pal.Provide(&metrics.Server{}),
			pal.Provide(&metrics.Collector{}),
			nats.Provide(),
		)
	},
}
