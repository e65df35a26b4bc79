package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilianp07/collabsched/auth"
	"github.com/kilianp07/collabsched/core/session"
	"github.com/kilianp07/collabsched/infra/collab"
	"github.com/kilianp07/collabsched/infra/logger"
	"github.com/kilianp07/collabsched/infra/roster"
)

// connect authenticates and checks that the scheduler accepts the token.
func connect(ctx context.Context, cmd *cobra.Command, tokenFile string) (*collab.Client, error) {
	bearer, err := auth.Resolve(ctx, cfg.Auth, tokenFile, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	client := collab.New(cfg.API, bearer,
		collab.WithLogger(logger.New("collab")),
		collab.WithDebug(debug),
	)
	if err := client.Probe(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

func newResolver() (*session.Resolver, error) {
	n, err := session.NewNormalizer(cfg.Session.Timezone, cfg.Session.PreferMonthFirst)
	if err != nil {
		return nil, err
	}
	return session.NewResolver(n), nil
}

// loadLayers reads the class file and the course document.
func loadLayers(classesPath, coursePath string) (session.Layer, []session.Layer, error) {
	f, err := os.Open(classesPath)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = f.Close() }()
	classes, err := roster.ReadClasses(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", classesPath, err)
	}
	course, err := roster.LoadCourse(coursePath)
	if err != nil {
		return nil, nil, err
	}
	return course, classes, nil
}
