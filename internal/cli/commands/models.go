package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/scaffold/internal/app"
	"github.com/conduit-lang/scaffold/internal/cli/ui"
	"github.com/conduit-lang/scaffold/internal/dto"
)

var modelsNoColor bool

// NewModelsCommand creates the models command
func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [name...]",
		Short: "Describe the loaded models",
		Long: `Show the fields of each model as the API exposes them: the public name,
the type, whether clients may write it and which query filters it accepts.

Examples:
  scaffold models
  scaffold models Post Comment`,
		RunE: runModels,
	}

	cmd.Flags().BoolVar(&modelsNoColor, "no-color", false, "Disable colored output")

	return cmd
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context(), app.Options{Offline: true})
	if err != nil {
		return err
	}
	defer a.Close()

	wanted := make(map[string]bool, len(args))
	for _, name := range args {
		wanted[strings.ToLower(name)] = true
	}

	out := cmd.OutOrStdout()
	shown := 0
	for _, res := range a.Resources() {
		if len(wanted) > 0 && !wanted[strings.ToLower(res.Name())] {
			continue
		}
		shown++

		ui.Header(out, fmt.Sprintf("%s (%s)", res.Name(), res.Definition().BasePath), modelsNoColor)

		// keyed by internal field name
		filters := make(map[string][]string)
		for _, param := range res.Filters().DocParams() {
			if param.Field != "" {
				filters[param.Field] = append(filters[param.Field], param.Name)
			}
		}

		table := ui.NewTable(out, []string{"FIELD", "TYPE", "WRITABLE", "FILTERS"}, &ui.TableOptions{NoColor: modelsNoColor})
		for _, field := range res.Schema().OrderedFields() {
			name := field.PublicName()
			if name == "" {
				continue
			}
			writable := "no"
			if dto.Writable(field) {
				writable = "yes"
			}
			table.AddRow(name, field.Type.String(), writable, strings.Join(filters[field.Name], " "))
		}
		table.Render()
		fmt.Fprintln(out)
	}

	if len(wanted) > 0 && shown == 0 {
		return fmt.Errorf("no model named %s", strings.Join(args, ", "))
	}
	return nil
}
