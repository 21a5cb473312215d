package app

import (
	"context"

	"github.com/georgemblack/snapgram/pkg/appwrite"
	"github.com/georgemblack/snapgram/pkg/cache"
	"github.com/georgemblack/snapgram/pkg/config"
	"github.com/georgemblack/snapgram/pkg/query"
	"github.com/georgemblack/snapgram/pkg/remote"
	"github.com/georgemblack/snapgram/pkg/secrets"
	"github.com/georgemblack/snapgram/pkg/store"
	"github.com/georgemblack/snapgram/pkg/util"
)

// App holds the process-wide dependencies: configuration, the valkey cache, the
// platform transport and the query store built on it.
type App struct {
	Config   config.Config
	Cache    Cache
	Platform *appwrite.Client
	Store    *store.Store
}

func NewApp(ctx context.Context) (App, error) {
	config, err := config.New()
	if err != nil {
		return App{}, err
	}

	if config.APIKey == "" && config.APIKeySecret != "" {
		sm, err := secrets.New(ctx, config.AWSRegion)
		if err != nil {
			return App{}, err
		}
		config.APIKey, err = sm.GetAppwriteAPIKey(ctx, config.APIKeySecret)
		if err != nil {
			return App{}, util.WrapErr("failed to read appwrite api key", err)
		}
	}

	cache, err := cache.New(config)
	if err != nil {
		return App{}, err
	}

	platform := appwrite.New(config.Endpoint, config.ProjectID,
		appwrite.WithAPIKey(config.APIKey),
		appwrite.WithTimeout(config.Timeout),
		appwrite.WithRetries(config.MaxRetries, appwrite.DefaultRetryInterval),
	)

	client := remote.New(platform, remote.Config{
		DatabaseID:        config.DatabaseID,
		UserCollectionID:  config.UserCollectionID,
		PostCollectionID:  config.PostCollectionID,
		SavesCollectionID: config.SavesCollectionID,
		StorageID:         config.StorageID,
	})

	queries := query.New(query.WithRetention(config.CacheRetention))

	return App{
		Config:   config,
		Cache:    cache,
		Platform: platform,
		Store: store.New(client, queries, store.Collections{
			Users: config.UserCollectionID,
			Posts: config.PostCollectionID,
			Saves: config.SavesCollectionID,
		}),
	}, nil
}

func (a App) Close() {
	a.Cache.Close()
}
