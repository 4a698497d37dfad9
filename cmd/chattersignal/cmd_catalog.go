package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mwhitton/chattersignal/internal/models"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the monitored entity catalog",
	}
	cmd.AddCommand(catalogAddCmd(), catalogListCmd(), catalogDeactivateCmd(), catalogImportCmd())
	return cmd
}

func catalogAddCmd() *cobra.Command {
	var (
		kind     string
		display  string
		aliases  []string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "add <canonical-name>",
		Short: "Add or update a monitored entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			ek := models.EntityKind(kind)
			if !ek.IsValid() {
				return fmt.Errorf("catalog add: invalid kind %q: must be one of person, show, couple, brand, storyline", kind)
			}

			name := strings.TrimSpace(args[0])
			if name == "" {
				return fmt.Errorf("catalog add: canonical name must not be empty")
			}
			if display == "" {
				display = name
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("catalog add: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			entity := models.MonitoredEntity{
				ID:            uuid.New().String(),
				CanonicalName: name,
				DisplayName:   display,
				Kind:          ek,
				Active:        !inactive,
				CreatedAt:     time.Now().UTC(),
				UpdatedAt:     time.Now().UTC(),
			}
			if err := entity.SetAliases(aliases); err != nil {
				return fmt.Errorf("catalog add: encoding aliases: %w", err)
			}

			if err := st.UpsertEntity(ctx, entity); err != nil {
				return fmt.Errorf("catalog add: %w", err)
			}

			fmt.Printf("Added %s (%s) with %d aliases\n", name, kind, len(aliases))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "person", "entity kind: person, show, couple, brand, storyline")
	cmd.Flags().StringVar(&display, "display", "", "display name (default: canonical name)")
	cmd.Flags().StringSliceVar(&aliases, "alias", nil, "alias (repeatable)")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the entity inactive")
	return cmd
}

func catalogListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List monitored entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("catalog list: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			entities, err := st.ListEntities(ctx, !all)
			if err != nil {
				return fmt.Errorf("catalog list: %w", err)
			}

			for _, e := range entities {
				status := "active"
				if !e.Active {
					status = "inactive"
				}
				aliases, aliasErr := e.Aliases()
				aliasText := strings.Join(aliases, ", ")
				if aliasErr != nil {
					aliasText = "(malformed aliases)"
				}
				fmt.Printf("[%s/%s] %s\n", e.Kind, status, e.CanonicalName)
				fmt.Printf("    ID: %s | Aliases: %s\n", e.ID, aliasText)
			}

			if len(entities) == 0 {
				fmt.Println("No entities found.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive entities")
	return cmd
}

func catalogDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <entity-id>",
		Short: "Deactivate a monitored entity",
		Long:  "Deactivates a monitored entity. Inactive entities are excluded from the resolver catalog; their historical signals stay in the ledger.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("catalog deactivate: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			entity, err := st.GetEntity(ctx, args[0])
			if err != nil {
				return fmt.Errorf("catalog deactivate: %w", err)
			}
			if !entity.Active {
				fmt.Printf("%s is already inactive\n", entity.CanonicalName)
				return nil
			}

			entity.Active = false
			if err := st.UpsertEntity(ctx, *entity); err != nil {
				return fmt.Errorf("catalog deactivate: %w", err)
			}

			fmt.Printf("Deactivated %s (%s)\n", entity.CanonicalName, entity.ID)
			return nil
		},
	}
}

// catalogImportEntry is one entity row in a catalog import file.
type catalogImportEntry struct {
	Name    string   `yaml:"name"`
	Kind    string   `yaml:"kind"`
	Display string   `yaml:"display"`
	Aliases []string `yaml:"aliases"`
	Active  *bool    `yaml:"active"`
}

type catalogImportFile struct {
	Entities []catalogImportEntry `yaml:"entities"`
}

func catalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import monitored entities from a YAML file",
		Long: `Imports monitored entities from a YAML file:

  entities:
    - name: Blake Lively
      kind: person
      aliases: [blake, blively]
    - name: It Ends With Us
      kind: show
      display: It Ends With Us (2024)

Entries default to kind "person" and active. Rows are upserted; re-importing
the same file is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("catalog import: %w", err)
			}

			var file catalogImportFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("catalog import: parsing %s: %w", args[0], err)
			}
			if len(file.Entities) == 0 {
				return fmt.Errorf("catalog import: %s contains no entities", args[0])
			}

			st, err := newStore(ctx, logger)
			if err != nil {
				return fmt.Errorf("catalog import: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			// Reuse IDs of entities already in the catalog so re-importing
			// updates rows instead of duplicating them.
			existing, err := st.ListEntities(ctx, false)
			if err != nil {
				return fmt.Errorf("catalog import: %w", err)
			}
			idByName := make(map[string]string, len(existing))
			for _, e := range existing {
				idByName[strings.ToLower(e.CanonicalName)] = e.ID
			}

			imported := 0
			for i, entry := range file.Entities {
				name := strings.TrimSpace(entry.Name)
				if name == "" {
					logger.Warn("skipping entry with empty name", "index", i)
					continue
				}
				kind := models.EntityKind(entry.Kind)
				if entry.Kind == "" {
					kind = models.EntityKindPerson
				}
				if !kind.IsValid() {
					logger.Warn("skipping entry with invalid kind", "name", name, "kind", entry.Kind)
					continue
				}
				display := entry.Display
				if display == "" {
					display = name
				}
				active := true
				if entry.Active != nil {
					active = *entry.Active
				}

				id := idByName[strings.ToLower(name)]
				if id == "" {
					id = uuid.New().String()
				}

				entity := models.MonitoredEntity{
					ID:            id,
					CanonicalName: name,
					DisplayName:   display,
					Kind:          kind,
					Active:        active,
					CreatedAt:     time.Now().UTC(),
					UpdatedAt:     time.Now().UTC(),
				}
				if err := entity.SetAliases(entry.Aliases); err != nil {
					return fmt.Errorf("catalog import: encoding aliases for %s: %w", name, err)
				}
				if err := st.UpsertEntity(ctx, entity); err != nil {
					return fmt.Errorf("catalog import: upserting %s: %w", name, err)
				}
				imported++
			}

			fmt.Printf("Imported %d entities from %s\n", imported, args[0])
			return nil
		},
	}
}
