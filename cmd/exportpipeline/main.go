package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"docs-export/pkg/config"
	"docs-export/pkg/exportservice"
	"docs-export/pkg/publish"
	"docs-export/pkg/runlog"
	"docs-export/pkg/source"
	"docs-export/pkg/source/drive"
	"docs-export/pkg/source/web"
	"docs-export/pkg/warehouse"
)

func main() {
	var (
		configPath = flag.String("config", "", "Optional YAML file with tuning overrides")
		sourceName = flag.String("source", "drive", "Document source: drive or web")
		feedURL    = flag.String("feed", "", "Feed or sitemap URL (web source only)")
		maxDocs    = flag.Int("max", 0, "Max documents to fetch from the web source (<=0 means no limit)")
		repoDir    = flag.String("repo", "", "Path to the metadata repository clone (empty skips the commit leg)")
		dryRun     = flag.Bool("dry-run", false, "Build the datasets without committing or uploading")

		dbName     = flag.String("db", "docsexport", "MongoDB database name for run history")
		collection = flag.String("collection", "runs", "MongoDB collection name for run history")
	)
	flag.Parse()

	cfg, err := config.FromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	newSource, err := sourceFactory(*sourceName, cfg, *feedURL, *maxDocs)
	if err != nil {
		log.Fatalf("Failed to configure source: %v", err)
	}

	svcCfg := exportservice.Config{
		Secret:        cfg.CredentialJSON,
		NewSource:     newSource,
		Output:        cfg.Output,
		StoragePrefix: cfg.Storage.Prefix,
	}

	if !*dryRun {
		bucket, err := publish.NewBucketPublisher(cfg)
		if err != nil {
			log.Fatalf("Failed to create bucket publisher: %v", err)
		}
		svcCfg.Bucket = bucket

		if *repoDir != "" {
			svcCfg.Repo = publish.NewRepoPublisher(*repoDir, cfg.PushToken)
			svcCfg.RepoDir = *repoDir
		}
	}

	if cfg.MongoURI != "" {
		store := runlog.NewStore(cfg.MongoURI, *dbName, *collection)
		if err := store.Connect(ctx); err != nil {
			log.Printf("Run history store unavailable, continuing without it: %v", err)
		} else {
			defer store.Close(ctx)
			svcCfg.Recorder = store
		}
	}

	if cfg.WarehouseDSN != "" && !*dryRun {
		loader, err := warehouse.Open(ctx, cfg.WarehouseDSN)
		if err != nil {
			log.Printf("Warehouse unavailable, continuing without it: %v", err)
		} else {
			defer loader.Close()
			svcCfg.Loader = loader
		}
	}

	service, err := exportservice.New(svcCfg)
	if err != nil {
		log.Fatalf("Failed to create export service: %v", err)
	}

	start := time.Now()
	log.Printf("Exporting folder %q to bucket %q (source=%s, dry-run=%t)",
		cfg.Drive.Folder, cfg.BucketName, *sourceName, *dryRun)

	summary, err := service.Run(ctx)
	if err != nil {
		log.Fatalf("Export run %s failed: %v", summary.RunID, err)
	}
	log.Printf("Export run %s finished in state %s. Duration: %s",
		summary.RunID, summary.State, time.Since(start))
}

func sourceFactory(name string, cfg *config.Config, feedURL string, maxDocs int) (exportservice.SourceFactory, error) {
	switch name {
	case "drive":
		return func(ctx context.Context, credentialPath string) (source.Source, error) {
			return drive.NewClient(ctx, drive.Config{
				CredentialPath: credentialPath,
				Folder:         cfg.Drive.Folder,
				ParentFolder:   cfg.Drive.ParentFolder,
				Retry:          cfg.Retry,
			})
		}, nil
	case "web":
		if feedURL == "" {
			return nil, fmt.Errorf("-feed is required for the web source")
		}
		return func(ctx context.Context, credentialPath string) (source.Source, error) {
			return web.New(web.Config{
				FeedURL:      feedURL,
				MaxDocuments: maxDocs,
				Retry:        cfg.Retry,
			}), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
