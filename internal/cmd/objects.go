package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/observability"
	"github.com/parcelops/hubsync/internal/output"
)

// objectAPI binds one CRM object type to its typed manager methods.
type objectAPI struct {
	use      string
	singular string
	search   func(*hubspot.SyncManager, context.Context, hubspot.SearchOptions) ([]hubspot.Object, error)
	get      func(*hubspot.SyncManager, context.Context, string, []string) (*hubspot.Object, error)
	create   func(*hubspot.SyncManager, context.Context, map[string]string) (*hubspot.Object, error)
	update   func(*hubspot.SyncManager, context.Context, string, map[string]string) (*hubspot.Object, error)
}

var (
	dealsAPI = objectAPI{
		use:      "deals",
		singular: "deal",
		search:   (*hubspot.SyncManager).FetchDeals,
		get:      (*hubspot.SyncManager).GetDeal,
		create:   (*hubspot.SyncManager).CreateDeal,
		update:   (*hubspot.SyncManager).UpdateDeal,
	}
	contactsAPI = objectAPI{
		use:      "contacts",
		singular: "contact",
		search:   (*hubspot.SyncManager).FetchContacts,
		get:      (*hubspot.SyncManager).GetContact,
		create:   (*hubspot.SyncManager).CreateContact,
		update:   (*hubspot.SyncManager).UpdateContact,
	}
	companiesAPI = objectAPI{
		use:      "companies",
		singular: "company",
		search:   (*hubspot.SyncManager).FetchCompanies,
		get:      (*hubspot.SyncManager).GetCompany,
		create:   (*hubspot.SyncManager).CreateCompany,
		update:   (*hubspot.SyncManager).UpdateCompany,
	}
)

func newObjectCommand(api objectAPI) *cobra.Command {
	parent := &cobra.Command{
		Use:   api.use,
		Short: fmt.Sprintf("Search, read and write HubSpot %s", api.use),
	}

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: fmt.Sprintf("Search %s", api.use),
		Example: fmt.Sprintf(`  hubsync %s search --filter hs_lastmodifieddate:GTE:2026-01-01 --sort hs_lastmodifieddate:desc
  hubsync %s search --query acme --property name --limit 20 -o json`, api.use, api.use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := searchOptions(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				objects, err := api.search(s.manager, cmd.Context(), opts)
				if err != nil {
					return err
				}
				return render(cmd, func(f output.Formatter) (string, error) {
					return f.FormatObjects(objects, opts.Properties)
				})
			})
		},
	}
	addSearchFlags(searchCmd)

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Fetch one %s by id", api.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := propertyFlag(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				object, err := api.get(s.manager, cmd.Context(), args[0], properties)
				if err != nil {
					return err
				}
				return render(cmd, func(f output.Formatter) (string, error) {
					return f.FormatObject(object)
				})
			})
		},
	}
	addPropertyFlag(getCmd)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s", api.singular),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := setFlag(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				object, err := api.create(s.manager, cmd.Context(), properties)
				if err != nil {
					return err
				}
				observability.CLILogger.Info(fmt.Sprintf("Created %s", api.singular), zap.String("id", object.ID))
				return render(cmd, func(f output.Formatter) (string, error) {
					return f.FormatObject(object)
				})
			})
		},
	}
	addSetFlag(createCmd)

	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Update properties of a %s", api.singular),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			properties, err := setFlag(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, func(s *session) error {
				object, err := api.update(s.manager, cmd.Context(), args[0], properties)
				if err != nil {
					return err
				}
				return render(cmd, func(f output.Formatter) (string, error) {
					return f.FormatObject(object)
				})
			})
		},
	}
	addSetFlag(updateCmd)

	parent.AddCommand(searchCmd, getCmd, createCmd, updateCmd)
	return parent
}

// setFlag reads --set assignments; at least one is required.
func setFlag(cmd *cobra.Command) (map[string]string, error) {
	values, err := cmd.Flags().GetStringArray("set")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: at least one --set key=value is required", hubspot.ErrInvalidInput)
	}
	return parseAssignments(values)
}

// withSession opens a session for the duration of fn.
func withSession(cmd *cobra.Command, fn func(*session) error) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(s)
}

var dealsUpdateManyCmd = &cobra.Command{
	Use:   "update-many",
	Short: "Update many deals from a YAML file",
	Long: `Update many deals in batches of 100, up to four batches in flight.

The file is a YAML list of updates:

  - id: "1001"
    properties:
      dealstage: closedwon
  - id: "1002"
    properties:
      amount: "2500"

Use --file - to read from stdin.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("file")
		if err != nil {
			return err
		}
		updates, err := readBatchUpdates(cmd, path)
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *session) error {
			updated, err := s.manager.BatchUpdateDeals(cmd.Context(), updates)
			if err != nil {
				return err
			}
			observability.CLILogger.Info("Updated deals", zap.Int("count", len(updated)))
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatObjects(updated, nil)
			})
		})
	},
}

func readBatchUpdates(cmd *cobra.Command, path string) ([]hubspot.BatchUpdate, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: --file is required", hubspot.ErrInvalidInput)
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read updates: %w", err)
	}

	var updates []hubspot.BatchUpdate
	if err := yaml.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("%w: parse updates: %v", hubspot.ErrInvalidInput, err)
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: %s contains no updates", hubspot.ErrInvalidInput, path)
	}
	for i, update := range updates {
		if strings.TrimSpace(update.ID) == "" {
			return nil, fmt.Errorf("%w: update %d has no id", hubspot.ErrInvalidInput, i+1)
		}
	}
	return updates, nil
}

var contactsFindCmd = &cobra.Command{
	Use:   "find-by-email <email>",
	Short: "Look up a contact by email address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		properties, err := propertyFlag(cmd)
		if err != nil {
			return err
		}
		return withSession(cmd, func(s *session) error {
			contact, err := s.manager.FindContactByEmail(cmd.Context(), args[0], properties)
			if err != nil {
				return err
			}
			return render(cmd, func(f output.Formatter) (string, error) {
				return f.FormatObject(contact)
			})
		})
	},
}

func init() {
	dealsCmd := newObjectCommand(dealsAPI)
	dealsUpdateManyCmd.Flags().String("file", "", "YAML file of {id, properties} updates, or - for stdin")
	dealsCmd.AddCommand(dealsUpdateManyCmd)

	contactsCmd := newObjectCommand(contactsAPI)
	addPropertyFlag(contactsFindCmd)
	contactsCmd.AddCommand(contactsFindCmd)

	rootCmd.AddCommand(dealsCmd, contactsCmd, newObjectCommand(companiesAPI))
}
