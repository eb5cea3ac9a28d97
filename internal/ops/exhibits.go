package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/db"
	"github.com/hpungsan/citelink/internal/exhibit"
)

// ExhibitsInput contains parameters for the Exhibits operation.
type ExhibitsInput struct {
	Project string // default: config default_project
}

// ExhibitsOutput contains a project's directory and file collection.
type ExhibitsOutput struct {
	Project  string          `json:"project"`
	Exhibits []exhibit.Entry `json:"exhibits"`
	Files    []exhibit.File  `json:"files"`
}

// Exhibits returns the stored directory and files for a project, in import order.
func Exhibits(ctx context.Context, database *sql.DB, cfg *config.Config, input ExhibitsInput) (*ExhibitsOutput, error) {
	project, snap, err := LoadSource(ctx, database, cfg, input.Project)
	if err != nil {
		return nil, err
	}
	out := &ExhibitsOutput{
		Project:  project,
		Exhibits: snap.Exhibits(),
		Files:    snap.Files(),
	}
	if out.Exhibits == nil {
		out.Exhibits = []exhibit.Entry{}
	}
	if out.Files == nil {
		out.Files = []exhibit.File{}
	}
	return out, nil
}

// ProjectsOutput lists every stored project.
type ProjectsOutput struct {
	Items []db.ProjectSummary `json:"items"`
}

// Projects summarizes all projects that hold exhibits or files.
func Projects(ctx context.Context, database *sql.DB) (*ProjectsOutput, error) {
	items, err := db.ListProjects(ctx, database)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []db.ProjectSummary{}
	}
	return &ProjectsOutput{Items: items}, nil
}

// LoadSource resolves the project name and reads its snapshot. Hosts that
// run their own session (the terminal editor) start from it.
func LoadSource(ctx context.Context, database *sql.DB, cfg *config.Config, project string) (string, *exhibit.Snapshot, error) {
	project, err := ResolveProject(project, cfg)
	if err != nil {
		return "", nil, err
	}
	snap, err := db.LoadSnapshot(ctx, database, project)
	if err != nil {
		return "", nil, err
	}
	return project, snap, nil
}
