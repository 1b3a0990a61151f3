package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/parcelops/hubsync/internal/hubspot"
	"github.com/parcelops/hubsync/internal/observability"
)

var associateCmd = &cobra.Command{
	Use:   "associate",
	Short: "Link CRM records",
}

var associateContactDealCmd = &cobra.Command{
	Use:   "contact-deal <contact-id> <deal-id>",
	Short: "Associate a contact with a deal",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contactID, dealID := args[0], args[1]
		return withSession(cmd, func(s *session) error {
			if err := s.manager.AssociateContactToDeal(cmd.Context(), contactID, dealID); err != nil {
				return err
			}
			observability.CLILogger.Info("Associated contact with deal",
				zap.String("contact_id", contactID), zap.String("deal_id", dealID))
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "contact %s -> deal %s\n", contactID, dealID)
			return err
		})
	},
}

var associationsListCmd = &cobra.Command{
	Use:   "list <from-type> <id> <to-type>",
	Short: "List associations of a record",
	Example: `  hubsync associate list deals 1001 contacts
  hubsync associate list contacts 501 companies -o json`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromType, err := parseObjectType(args[0])
		if err != nil {
			return err
		}
		toType, err := parseObjectType(args[2])
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *session) error {
			associations, err := s.manager.ListAssociations(cmd.Context(), fromType, args[1], toType)
			if err != nil {
				return err
			}
			// Rendered as records keyed by the associated id so every format applies.
			records := make([]hubspot.Object, 0, len(associations))
			for _, association := range associations {
				labels := make([]string, 0, len(association.Types))
				for _, t := range association.Types {
					label := t.Label
					if label == "" {
						label = fmt.Sprintf("%s/%d", t.Category, t.TypeID)
					}
					labels = append(labels, label)
				}
				records = append(records, hubspot.Object{
					ID:         association.ToObjectID,
					Properties: map[string]string{"association_types": strings.Join(labels, ", ")},
				})
			}
			return renderRecords(cmd, records)
		})
	},
}

func parseObjectType(value string) (hubspot.ObjectType, error) {
	switch objectType := hubspot.ObjectType(strings.ToLower(strings.TrimSpace(value))); objectType {
	case hubspot.ObjectDeals, hubspot.ObjectContacts, hubspot.ObjectCompanies, hubspot.ObjectNotes, hubspot.ObjectTasks:
		return objectType, nil
	default:
		return "", fmt.Errorf("%w: unknown object type %q", hubspot.ErrInvalidInput, value)
	}
}

func init() {
	associateCmd.AddCommand(associateContactDealCmd, associationsListCmd)
	rootCmd.AddCommand(associateCmd)
}
