package cmd

import (
	"fmt"
	"strings"

	"afd-timebank/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchQuery string

// employeesCmd represents the employees command
var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List the employees registered in an AFD export",
	Long: `Employees parses an AFD export and lists the resolved employee registry:
primary identifier, name and every alternate identifier merged into it.

Examples:
  timebank employees --file AFD.txt
  timebank employees --file AFD.txt --search "maria"
  timebank employees --file AFD.txt --search 1234567890`,

	PreRunE: validateEmployeesFlags,
	RunE:    runEmployees,
}

func init() {
	rootCmd.AddCommand(employeesCmd)

	employeesCmd.Flags().StringVarP(&afdFile, "file", "f", "", "path to the AFD export (required)")
	employeesCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "filter by name fragment or identifier")

	employeesCmd.MarkFlagRequired("file")
}

func validateEmployeesFlags(cmd *cobra.Command, args []string) error {
	afdFile = viper.GetString("file")
	searchQuery = strings.TrimSpace(viper.GetString("search"))

	if afdFile == "" {
		return errors.ValidationError(errors.CodeMissingField, "file", afdFile, nil)
	}
	return validateFileExists(afdFile, "AFD file")
}

func runEmployees(cmd *cobra.Command, args []string) error {
	svc, err := loadService(afdFile)
	if err != nil {
		return err
	}

	employees := svc.Employees()
	if searchQuery != "" {
		employees = svc.FindEmployees(searchQuery)
	}

	out := cmd.OutOrStdout()
	if len(employees) == 0 {
		fmt.Fprintf(out, "No employees match %q\n", searchQuery)
		return nil
	}

	fmt.Fprintf(out, "%-12s %-40s %s\n", "IDENTIFIER", "NAME", "ALTERNATES")
	for _, e := range employees {
		alternates := "-"
		if len(e.AlternateIDs) > 0 {
			alternates = strings.Join(e.AlternateIDs, ", ")
		}
		fmt.Fprintf(out, "%-12s %-40s %s\n", e.ID, e.Name, alternates)
	}

	parsed := svc.Parsed()
	fmt.Fprintf(out, "\nEmployees: %d, punches in file: %d", len(employees), len(parsed.Punches))
	if parsed.Bind.Unresolved > 0 {
		fmt.Fprintf(out, " (%d unresolved)", parsed.Bind.Unresolved)
	}
	fmt.Fprintln(out)

	return nil
}
