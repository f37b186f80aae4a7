package cmd

import (
	"fmt"

	"afd-timebank/internal/models"
	"afd-timebank/internal/sample"
	"afd-timebank/pkg/errors"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the sample command
var (
	sampleEmployees  int
	sampleSeed       int64
	samplePattern    string
	sampleLineEnding string
)

var lineEndings = map[string]string{
	"crlf": "\r\n",
	"lf":   "\n",
	"cr":   "\r",
}

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Generate a synthetic AFD export",
	Long: `Sample writes a synthetic AFD export with one identity record per employee
and four punches per weekday. The irregular pattern drops punches, skips
whole days and adds Saturday shifts, which exercises every anomaly the
report can raise. The same seed always yields the same file.

Examples:
  timebank sample --output AFD.txt
  timebank sample --employees 20 --start 2024-01-01 --end 2024-06-30 --pattern irregular -o AFD.txt`,

	PreRunE: validateSampleFlags,
	RunE:    runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	defaults := sample.DefaultGeneratorConfig()
	sampleCmd.Flags().IntVar(&sampleEmployees, "employees", defaults.Employees, "number of employees")
	sampleCmd.Flags().StringVar(&startDate, "start", defaults.Start.ISO(), "first day (YYYY-MM-DD or DD/MM/YYYY)")
	sampleCmd.Flags().StringVar(&endDate, "end", defaults.End.ISO(), "last day (YYYY-MM-DD or DD/MM/YYYY)")
	sampleCmd.Flags().Int64Var(&sampleSeed, "seed", defaults.Seed, "random seed")
	sampleCmd.Flags().StringVar(&samplePattern, "pattern", string(defaults.Pattern), "punch pattern: regular, irregular")
	sampleCmd.Flags().StringVar(&sampleLineEnding, "line-ending", "crlf", "line ending: crlf, lf, cr")
	sampleCmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default: stdout)")
}

func validateSampleFlags(cmd *cobra.Command, args []string) error {
	sampleEmployees = viper.GetInt("employees")
	startDate = viper.GetString("start")
	endDate = viper.GetString("end")
	sampleSeed = viper.GetInt64("seed")
	samplePattern = viper.GetString("pattern")
	sampleLineEnding = viper.GetString("line-ending")
	outputFile = viper.GetString("output")

	if sampleEmployees < 1 {
		return errors.ValidationError(errors.CodeOutOfRange, "employees", sampleEmployees, nil)
	}

	start, err := models.ParseDate(startDate)
	if err != nil {
		return errors.ValidationError(errors.CodeInvalidDate, "start", startDate, err)
	}
	end, err := models.ParseDate(endDate)
	if err != nil {
		return errors.ValidationError(errors.CodeInvalidDate, "end", endDate, err)
	}
	if end.Before(start) {
		return errors.ValidationError(errors.CodeOutOfRange, "end", endDate, fmt.Errorf("end date is before start date %s", startDate))
	}

	switch sample.Pattern(samplePattern) {
	case sample.PatternRegular, sample.PatternIrregular:
	default:
		return errors.ValidationError(errors.CodeOutOfRange, "pattern", samplePattern, nil)
	}

	if _, ok := lineEndings[sampleLineEnding]; !ok {
		return errors.ValidationError(errors.CodeOutOfRange, "line-ending", sampleLineEnding, nil)
	}

	return validateOutputDir(outputFile)
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg := sample.DefaultGeneratorConfig()
	cfg.Employees = sampleEmployees
	cfg.Seed = sampleSeed
	cfg.Pattern = sample.Pattern(samplePattern)
	cfg.Start, _ = models.ParseDate(startDate)
	cfg.End, _ = models.ParseDate(endDate)

	content := sample.Generate(cfg).LineEnding(lineEndings[sampleLineEnding]).Bytes()

	if outputFile == "" {
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}

	if err := afero.WriteFile(fs, outputFile, content, 0644); err != nil {
		return errors.FileError(errors.CodeFilePermission, outputFile, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Sample written to %s\n", outputFile)
	return nil
}
