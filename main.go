package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"docs-export/pkg/config"
	"docs-export/pkg/credential"
	"docs-export/pkg/source/drive"
)

func main() {
	// For now, default to the standard export folder
	folderName := "Fathom"

	if len(os.Args) > 1 {
		folderName = os.Args[1]
	}

	secret := os.Getenv("DRIVE_CREDENTIALS_JSON")
	if secret == "" {
		log.Fatal("DRIVE_CREDENTIALS_JSON is required")
	}

	cfg := config.Default()
	if err := cfg.ValidateTuning(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	art, err := credential.Provision([]byte(secret))
	if err != nil {
		log.Fatalf("Failed to provision credential: %v", err)
	}
	defer art.Release()

	client, err := drive.NewClient(ctx, drive.Config{
		CredentialPath: art.Path(),
		Folder:         folderName,
		ParentFolder:   os.Getenv("DRIVE_PARENT_FOLDER"),
		Retry:          cfg.Retry,
	})
	if err != nil {
		log.Fatalf("Failed to create drive client: %v", err)
	}

	docs, report, err := client.FetchAll(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch documents: %v", err)
	}

	// Print first 10 documents
	maxDocs := 10
	if len(docs) < maxDocs {
		maxDocs = len(docs)
	}

	fmt.Printf("Found %d documents (%d skipped). Showing first %d:\n\n",
		report.Found, report.Skipped, maxDocs)

	for i := 0; i < maxDocs; i++ {
		doc := docs[i]
		fmt.Printf("Document %d:\n", i+1)
		fmt.Printf("  Title: %s\n", doc.Title)
		if doc.Folder != "" {
			fmt.Printf("  Folder: %s\n", doc.Folder)
		}
		if !doc.ModifiedAt.IsZero() {
			fmt.Printf("  Modified: %s\n", doc.ModifiedAt.Format("2006-01-02"))
		}
		fmt.Printf("  Length: %d\n", len(doc.Content))
		fmt.Println()
	}
}
