package drive

import (
	"context"
	"fmt"
	"log"
)

// FindFolder resolves a folder name to its ID. When parentName is non-empty
// and multiple folders match the name, the folder whose parent folder has
// that name wins; otherwise the first match is returned.
func (c *Client) FindFolder(ctx context.Context, name, parentName string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s'", escapeQueryValue(name), mimeTypeFolder)

	folders, err := c.listFiles(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search folder %q: %w", name, err)
	}
	if len(folders) == 0 {
		return "", nil
	}

	if parentName != "" && len(folders) > 1 {
		for _, folder := range folders {
			if len(folder.Parents) == 0 {
				continue
			}
			actual, err := c.getFileName(ctx, folder.Parents[0])
			if err != nil {
				// Inaccessible parent: this candidate cannot be
				// confirmed, try the next one.
				continue
			}
			if actual == parentName {
				return folder.ID, nil
			}
		}
	}

	return folders[0].ID, nil
}

// resolveFolder applies the configured folder selection: exact parent match
// first, then a broader search without the parent constraint.
func (c *Client) resolveFolder(ctx context.Context) (string, error) {
	folderID, err := c.FindFolder(ctx, c.cfg.Folder, c.cfg.ParentFolder)
	if err != nil {
		return "", err
	}

	if folderID == "" && c.cfg.ParentFolder != "" {
		log.Printf("Folder %q not found under %q, trying broader search", c.cfg.Folder, c.cfg.ParentFolder)
		folderID, err = c.FindFolder(ctx, c.cfg.Folder, "")
		if err != nil {
			return "", err
		}
	}

	if folderID == "" {
		return "", fmt.Errorf("folder %q not found", c.cfg.Folder)
	}
	return folderID, nil
}
