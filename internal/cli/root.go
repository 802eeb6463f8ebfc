package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samirrijal/planpresso/internal/adapters/sqlite"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/spf13/cobra"
)

// App holds the services the commands run against.
type App struct {
	Plans *usecases.PlanService
	// Search is nil when no geocoder is configured.
	Search *usecases.PlaceSearch

	DraftsPath string
	DraftsTTL  time.Duration
}

// errInvalid makes the process exit non-zero after a report was printed.
var errInvalid = errors.New("plan has validation errors")

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "plankit",
		Short:         "plankit - trip plan tools",
		Long:          "Validate, format, share and inspect trip plans, and manage local drafts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newValidateCmd(app),
		newFmtCmd(app),
		newShareCmd(app),
		newOpenCmd(app),
		newExampleCmd(app),
		newMapCmd(app),
		newGeocodeCmd(app),
		newDraftsCmd(app),
	)

	return root
}

// readPlanText reads the file named by args[0], or stdin when there is no
// argument or it is "-".
func readPlanText(cmd *cobra.Command, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("reading plan: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func (a *App) openDrafts() (*sqlite.DraftStore, *sql.DB, error) {
	db, err := sqlite.Open(a.DraftsPath)
	if err != nil {
		return nil, nil, err
	}
	return sqlite.NewDraftStore(db, a.DraftsTTL), db, nil
}
