package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ghgate/internal/access"
	gerrors "github.com/felixgeelhaar/ghgate/internal/errors"
	"github.com/felixgeelhaar/ghgate/internal/tui"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List the catalog items visible to the signed-in role",
	Long: `Restore the stored session and print the item catalog filtered by role.
Items marked privileged are shown to admins only; a group with no visible
children still appears.

The catalog is a YAML file, by default $GHGATE_HOME/items.yaml:

  - id: repos
    label: Repositories
    children:
      - id: settings
        label: Settings
        visibility: privileged

Examples:
  ghgate items
  ghgate items --file ./items.yaml`,
	Args: cobra.NoArgs,
	RunE: runItems,
}

var itemsFile string

func init() {
	itemsCmd.Flags().StringVarP(&itemsFile, "file", "f", "", "item catalog file (default is items_file from config)")

	rootCmd.AddCommand(itemsCmd)
}

func runItems(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.openSession(); err != nil {
		return err
	}

	snapshot, err := restoreSession(cmd, a)
	if err != nil {
		return err
	}
	if !snapshot.Authenticated {
		return gerrors.NewNotSignedInError()
	}

	path := itemsFile
	if path == "" {
		path = a.cfg.ItemsPath()
	}
	items, err := access.LoadItems(path)
	if err != nil {
		return gerrors.NewItemsInvalidError(path, err)
	}

	visible := access.Filter(items, snapshot.Role)
	a.logger.Debug("filtered catalog", "role", string(snapshot.Role), "total", access.Count(items), "visible", access.Count(visible))

	title := fmt.Sprintf("%s (%s)", snapshot.Organization, snapshot.Role)
	fmt.Fprintln(cmd.OutOrStdout(), tui.RenderItems(title, visible, a.styles))
	return nil
}
